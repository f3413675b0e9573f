package serialize

import (
	"encoding/binary"
	"math"

	"github.com/soltixdb/tsfile/internal/tserr"
)

// Fixed-width integers in this format are little-endian.

func AppendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func AppendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func AppendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func AppendI32(buf []byte, v int32) []byte { return AppendU32(buf, uint32(v)) }
func AppendI64(buf []byte, v int64) []byte { return AppendU64(buf, uint64(v)) }

func AppendFloat32(buf []byte, v float32) []byte {
	return AppendU32(buf, math.Float32bits(v))
}

func AppendFloat64(buf []byte, v float64) []byte {
	return AppendU64(buf, math.Float64bits(v))
}

func ReadU32(data []byte) (uint32, int) {
	if len(data) < 4 {
		return 0, 0
	}
	return binary.LittleEndian.Uint32(data), 4
}

func ReadU64(data []byte) (uint64, int) {
	if len(data) < 8 {
		return 0, 0
	}
	return binary.LittleEndian.Uint64(data), 8
}

func ReadI32(data []byte) (int32, int) {
	v, n := ReadU32(data)
	return int32(v), n
}

func ReadI64(data []byte) (int64, int) {
	v, n := ReadU64(data)
	return int64(v), n
}

func ReadFloat32(data []byte) (float32, int) {
	v, n := ReadU32(data)
	return math.Float32frombits(v), n
}

func ReadFloat64(data []byte) (float64, int) {
	v, n := ReadU64(data)
	return math.Float64frombits(v), n
}

// AppendString appends a length-prefixed UTF-8 string. A nil marker is
// not representable here; use AppendNullableString where absence matters.
func AppendString(buf []byte, s string) []byte {
	buf = AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// AppendNullableString encodes absence as signed varint length -1.
// The signed and unsigned length encodings never mix within one field.
func AppendNullableString(buf []byte, s *string) []byte {
	if s == nil {
		return AppendVarint(buf, -1)
	}
	buf = AppendVarint(buf, int64(len(*s)))
	return append(buf, *s...)
}

// AppendBytes appends a uvarint length-prefixed byte sequence
func AppendBytes(buf []byte, b []byte) []byte {
	buf = AppendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// ReadString reads a uvarint length-prefixed string
func ReadString(data []byte) (string, int, error) {
	l, n := ReadUvarint(data)
	if n == 0 {
		return "", 0, tserr.New(tserr.CodeCorrupted, "truncated string length")
	}
	if uint64(len(data)-n) < l {
		return "", 0, tserr.New(tserr.CodeCorrupted, "string length %d exceeds buffer", l)
	}
	return string(data[n : n+int(l)]), n + int(l), nil
}

// ReadNullableString reads a signed-varint length-prefixed string,
// returning nil for the -1 marker
func ReadNullableString(data []byte) (*string, int, error) {
	l, n := ReadVarint(data)
	if n == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated string length")
	}
	if l < 0 {
		return nil, n, nil
	}
	if int64(len(data)-n) < l {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "string length %d exceeds buffer", l)
	}
	s := string(data[n : n+int(l)])
	return &s, n + int(l), nil
}

// ReadBytes reads a uvarint length-prefixed byte sequence. The returned
// slice aliases data.
func ReadBytes(data []byte) ([]byte, int, error) {
	l, n := ReadUvarint(data)
	if n == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated byte sequence length")
	}
	if uint64(len(data)-n) < l {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "byte sequence length %d exceeds buffer", l)
	}
	return data[n : n+int(l)], n + int(l), nil
}
