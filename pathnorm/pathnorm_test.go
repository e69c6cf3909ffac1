package pathnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/home/user/docs", "/home/user/docs"},
		{"relative/dir", "relative/dir"},
		{"", ""},
		{"file:///home/a%20b", "/home/a%20b"},
		{"file:///C:/x", "C:/x"},
		{"file:///c:/Users/me", "c:/Users/me"},
		{"file://localhost/etc/hosts", "etc/hosts"},
		{"file://localhost//etc/hosts", "/etc/hosts"},
		{"file://localhost/D:/data", "D:/data"},
		{"file:///1:/x", "/1:/x"},
		{"file://", ""},
		{"file:///", "/"},
		{"FILE:///tmp", "FILE:///tmp"},
		{"http://example.com/a", "http://example.com/a"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
