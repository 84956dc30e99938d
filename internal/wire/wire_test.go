package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func mustDecode(t *testing.T, b []byte) ([]byte, bool) {
	t.Helper()
	p, null, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return p, null
}

func TestValueRTEmptyAndNonEmpty(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("hello"),
		{0, 1, 2, 3, 4},
		bytes.Repeat([]byte{0xAB}, 4096),
	}
	for _, payload := range cases {
		enc := EncodeValue(payload)
		p, null := mustDecode(t, enc)
		if null {
			t.Fatalf("value frame decoded as null")
		}
		if !bytes.Equal(p, payload) {
			t.Fatalf("payload mismatch: got %x want %x", p, payload)
		}
		if p == nil {
			t.Fatalf("non-null payload must decode to a non-nil slice")
		}
	}
}

func TestNullRT(t *testing.T) {
	p, null := mustDecode(t, EncodeNull())
	if !null || p != nil {
		t.Fatalf("null frame: got null=%v payload=%v", null, p)
	}
}

func TestEncodeChoosesFrameByNil(t *testing.T) {
	if _, null := mustDecode(t, Encode(nil)); !null {
		t.Fatalf("Encode(nil) should produce a null frame")
	}
	if _, null := mustDecode(t, Encode([]byte{})); null {
		t.Fatalf("Encode(empty) should produce a value frame")
	}
}

func TestValueRejectsTrailingBytes(t *testing.T) {
	enc := EncodeValue([]byte("x"))
	enc = append(enc, 0xDE, 0xAD) // add junk
	if _, _, err := Decode(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestCorruptHeadersAndLengths(t *testing.T) {
	enc := EncodeValue([]byte("abc"))

	// bad magic
	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, _, err := Decode(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	// wrong version
	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, _, err := Decode(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	// unknown kind
	badKind := append([]byte(nil), enc...)
	badKind[5] = 9
	if _, _, err := Decode(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// vlen too large (announce more than available); vlen lives at 6..9
	tooLong := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(tooLong[6:10], uint32(len("abc")+1))
	if _, _, err := Decode(tooLong); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	// absurd vlen must not panic
	huge := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(huge[6:10], math.MaxUint32)
	if _, _, err := Decode(huge); err == nil {
		t.Fatalf("expected error on absurd vlen")
	}

	// truncated buffer
	if _, _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
	if _, _, err := Decode(enc[:3]); err == nil {
		t.Fatalf("expected error on short header")
	}

	// null frame carrying a payload
	badNull := EncodeValue([]byte("z"))
	badNull[5] = kindNull
	if _, _, err := Decode(badNull); err == nil {
		t.Fatalf("expected error on null frame with payload")
	}
}

func TestForeignBytesAreCorrupt(t *testing.T) {
	for _, b := range [][]byte{nil, []byte(`{"id":1}`), []byte("not-wire-format")} {
		if _, _, err := Decode(b); err != ErrCorrupt {
			t.Fatalf("Decode(%q): got %v want ErrCorrupt", b, err)
		}
	}
}

func TestZeroCopyPayload(t *testing.T) {
	enc := EncodeValue([]byte("Z"))
	p, _ := mustDecode(t, enc)
	if len(p) != 1 {
		t.Fatalf("unexpected payload len")
	}
	// mutate payload slice. should mutate underlying enc bytes (zero-copy)
	p[0] = 'Q'
	p2, _ := mustDecode(t, enc)
	if p2[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}
