package codec

import (
	"bytes"
	"encoding/json"
)

// JSON is a Codec backed by encoding/json. The zero value is ready to use.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}

// IsEmptyJSONContainer reports whether b is a JSON object or array with no
// members. Plug it into Options.IsEmpty to keep such values out of the local tier.
func IsEmptyJSONContainer(b []byte) bool {
	b = bytes.TrimSpace(b)
	if len(b) < 2 {
		return false
	}
	first, last := b[0], b[len(b)-1]
	if !(first == '{' && last == '}') && !(first == '[' && last == ']') {
		return false
	}
	return len(bytes.TrimSpace(b[1:len(b)-1])) == 0
}
