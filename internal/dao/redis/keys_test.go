package redis

import "testing"

func TestKeyShapes(t *testing.T) {
	tests := []struct {
		got  Key
		want string
	}{
		{ActiveMembersKey(42), "chat:42:activeMembers"},
		{MemberKey(7, 42), "chatMember:7:42"},
		{ChatKey(42), "chat:42"},
	}
	for _, tt := range tests {
		if tt.got.String() != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestChatKeys(t *testing.T) {
	keys := ChatKeys(3, 1, 2)
	want := []Key{"chat:3", "chat:3:activeMembers", "chatMember:1:3", "chatMember:2:3"}
	if len(keys) != len(want) {
		t.Fatalf("len = %d, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
