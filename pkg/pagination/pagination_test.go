package pagination

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   Params
		want Params
	}{
		{Params{}, Params{Page: 1, PageSize: DefaultPageSize}},
		{Params{Page: -3, PageSize: 5}, Params{Page: 1, PageSize: 5}},
		{Params{Page: 2, PageSize: 1000}, Params{Page: 2, PageSize: MaxPageSize}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 3, PageSize: 10}).Offset(); got != 20 {
		t.Errorf("offset = %d", got)
	}
	if got := (Params{Page: 0, PageSize: 10}).Offset(); got != 0 {
		t.Errorf("offset = %d", got)
	}
}

func TestNewPageMetadata(t *testing.T) {
	pg := NewPage([]int{1, 2}, 11, Params{Page: 2, PageSize: 5})
	if pg.TotalPages != 3 || pg.Total != 11 || pg.PageSize != 5 || pg.Page != 2 {
		t.Fatalf("page = %+v", pg)
	}
	if !pg.HasNext() {
		t.Error("expected next page")
	}
	empty := NewPage[int](nil, 0, Params{})
	if empty.Items == nil || empty.TotalPages != 0 || empty.HasNext() {
		t.Errorf("empty page = %+v", empty)
	}
}

func TestWindowDeterministic(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7}
	p := Params{Page: 2, PageSize: 3}
	a := Window(all, p)
	b := Window(all, p)
	if len(a.Items) != 3 || a.Items[0] != 4 || a.Items[2] != 6 {
		t.Fatalf("window = %v", a.Items)
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			t.Fatal("window not deterministic")
		}
	}
	last := Window(all, Params{Page: 3, PageSize: 3})
	if len(last.Items) != 1 || last.Items[0] != 7 || last.HasNext() {
		t.Errorf("last = %+v", last)
	}
	beyond := Window(all, Params{Page: 9, PageSize: 3})
	if len(beyond.Items) != 0 {
		t.Errorf("beyond = %+v", beyond)
	}
}
