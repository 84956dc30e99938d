// Package codec turns typed values into the opaque payloads clustercache
// stores and broadcasts. The same interface serves two roles: Typed[V] uses
// a Codec[V] for cached values, and the registry uses a Codec[Message] for
// invalidations on the bus.
package codec

// Codec encodes V to bytes and back. Implementations must be safe for
// concurrent use; every codec in this package is.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
