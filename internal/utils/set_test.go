package utils

import "testing"

func TestSet(t *testing.T) {
	s := MakeSet[int](10)
	if len(s) != 0 {
		t.Errorf("expected len 0, got %d", len(s))
	}

	s.Insert(3, 7)
	if len(s) != 2 {
		t.Errorf("expected len 2, got %d", len(s))
	}
	if !s.Has(3) {
		t.Errorf("expected s.Has(3) to be true")
	}
	if !s.Has(7) {
		t.Errorf("expected s.Has(7) to be true")
	}
	if s.Has(5) {
		t.Errorf("expected s.Has(5) to be false")
	}

	s2 := SetWith(5, 7)
	if len(s2) != 2 || !s2.Has(5) || !s2.Has(7) {
		t.Errorf("expected SetWith(5, 7) to contain exactly {5, 7}, got %v", s2)
	}

	clone := s2.Clone()
	clone.Remove(5)
	if !s2.Has(5) {
		t.Errorf("mutating a clone should not affect the original set")
	}
	if clone.Has(5) {
		t.Errorf("expected clone to no longer have 5 after Remove")
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"foo":       "foo",
		"foo.bar":   "foo_bar",
		"0foo":      "_0foo",
		"a-b c":     "a_b_c",
		"valid_123": "valid_123",
	}
	for in, want := range cases {
		if got := NormalizeIdentifier(in); got != want {
			t.Errorf("NormalizeIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}
