package codec

import "google.golang.org/protobuf/proto"

// Protobuf stores generated protobuf messages as cached values. Marshalling
// is deterministic so equal messages produce equal store frames.
type Protobuf[T proto.Message] struct {
	newMsg func() T
}

// NewProtobuf takes the constructor Decode fills, e.g.
// func() *pb.User { return new(pb.User) }.
func NewProtobuf[T proto.Message](newMsg func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: newMsg}
}

var deterministic = proto.MarshalOptions{Deterministic: true}

func (c Protobuf[T]) Encode(v T) ([]byte, error) { return deterministic.Marshal(v) }

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.newMsg()
	if err := proto.Unmarshal(b, m); err != nil {
		var zero T
		return zero, err
	}
	return m, nil
}
