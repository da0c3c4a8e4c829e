package snowflake

import "testing"

func TestNewNode(t *testing.T) {
	node, err := NewNode(3)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	a, b := node.Generate().Int64(), node.Generate().Int64()
	if b <= a {
		t.Fatalf("ids not increasing: %d then %d", a, b)
	}
}

func TestNewNodeOutOfRange(t *testing.T) {
	for _, id := range []int64{-1, 1024} {
		if _, err := NewNode(id); err == nil {
			t.Errorf("NewNode(%d) should fail", id)
		}
	}
}
