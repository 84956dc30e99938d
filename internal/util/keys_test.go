package util

import "testing"

func TestNamespacePrefix(t *testing.T) {
	cases := []struct {
		prefix, name string
		want         string
	}{
		{"", "user", "user:"},
		{"app", "user", "app:user:"},
		{"app:prod", "cache15m", "app:prod:cache15m:"},
	}
	for _, tc := range cases {
		if got := NamespacePrefix(tc.prefix, tc.name); got != tc.want {
			t.Fatalf("NamespacePrefix(%q,%q)=%q want %q", tc.prefix, tc.name, got, tc.want)
		}
	}
}

// A name that is a prefix of another must not share its namespace.
func TestNamespacesDoNotOverlap(t *testing.T) {
	a, b := NamespacePrefix("", "user"), NamespacePrefix("", "users")
	if len(b) >= len(a) && b[:len(a)] == a {
		t.Fatalf("%q scans into %q", a, b)
	}
}
