package util

import "strings"

// NamespacePrefix returns the shared-store prefix owned by one named cache:
// "[prefix:]name:". A storage key is this prefix followed by the user key, so
// the namespace doubles as the scan prefix for clearing the cache.
func NamespacePrefix(prefix, name string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(name) + 2)
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte(':')
	}
	b.WriteString(name)
	b.WriteByte(':')
	return b.String()
}
