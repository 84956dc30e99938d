package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindValue byte = 1
	kindNull  byte = 2

	hdrLen = 4 + 1 + 1 + 4
)

var (
	ErrCorrupt = errors.New("clustercache: corrupt entry")
	magic4     = [...]byte{'C', 'L', 'C', 'H'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Value: magic(4) | ver(1) | kind(1=value) | vlen(u32 be) | payload(vlen)
func EncodeValue(payload []byte) []byte {
	return encode(kindValue, payload)
}

// Null: magic(4) | ver(1) | kind(2=null) | vlen(u32 be)=0
// Marks an explicitly cached null so a later read does not fall through to the loader.
func EncodeNull() []byte {
	return encode(kindNull, nil)
}

// Encode frames payload, using the null frame when payload is nil.
func Encode(payload []byte) []byte {
	if payload == nil {
		return EncodeNull()
	}
	return EncodeValue(payload)
}

func encode(kind byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode returns the framed payload. null is true for a null frame, in which
// case payload is nil. The returned payload aliases b.
func Decode(b []byte) (payload []byte, null bool, err error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return nil, false, ErrCorrupt
	}
	kind := b[5]
	if kind != kindValue && kind != kindNull {
		return nil, false, ErrCorrupt
	}

	off := 6
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// strict framing: exactly vlen bytes must follow
	if vlen < 0 || vlen != len(b)-off {
		return nil, false, ErrCorrupt
	}
	if kind == kindNull {
		if vlen != 0 {
			return nil, false, ErrCorrupt
		}
		return nil, true, nil
	}
	return b[off : off+vlen : off+vlen], false, nil
}
