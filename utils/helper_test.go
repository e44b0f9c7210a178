package utils

import "testing"

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Fail", "fail"},
		{"  FAIL  ", "fail"},
		{"", ""},
		{"   ", ""},
		{"No", "no"},
	}
	for _, tc := range cases {
		if got := NormalizeAnswer(tc.in); got != tc.want {
			t.Errorf("NormalizeAnswer(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{1, 2, 2, 3, 1})
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("UniqueSlice = %v", got)
	}
}

func TestDereferencePtr(t *testing.T) {
	v := 7
	if got := DereferencePtr(&v); got != 7 {
		t.Errorf("DereferencePtr(&7) = %d", got)
	}
	if got := DereferencePtr[int](nil); got != 0 {
		t.Errorf("DereferencePtr(nil) = %d, want zero value", got)
	}
	if got := DereferencePtr(nil, 9); got != 9 {
		t.Errorf("DereferencePtr(nil, 9) = %d", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	if !IsValidEmail("inspector@example.com") {
		t.Error("valid email rejected")
	}
	if IsValidEmail("not-an-email") {
		t.Error("invalid email accepted")
	}
}
