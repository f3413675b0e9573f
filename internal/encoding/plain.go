package encoding

import (
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// plainEncoder stores numerics fixed-width little-endian, booleans as one
// byte, and binary values length-prefixed.
type plainEncoder struct {
	baseEncoder
	dt  model.DataType
	buf []byte
}

func newPlainEncoder(dt model.DataType) *plainEncoder {
	return &plainEncoder{dt: dt}
}

func (e *plainEncoder) EncodeBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *plainEncoder) EncodeInt32(v int32)     { e.buf = serialize.AppendI32(e.buf, v) }
func (e *plainEncoder) EncodeInt64(v int64)     { e.buf = serialize.AppendI64(e.buf, v) }
func (e *plainEncoder) EncodeFloat32(v float32) { e.buf = serialize.AppendFloat32(e.buf, v) }
func (e *plainEncoder) EncodeFloat64(v float64) { e.buf = serialize.AppendFloat64(e.buf, v) }
func (e *plainEncoder) EncodeBinary(v []byte)   { e.buf = serialize.AppendBytes(e.buf, v) }

func (e *plainEncoder) Size() int { return len(e.buf) }

func (e *plainEncoder) Flush(buf []byte) []byte {
	buf = append(buf, e.buf...)
	e.Reset()
	return buf
}

func (e *plainEncoder) Reset() { e.buf = e.buf[:0] }

type plainDecoder struct {
	baseDecoder
	dt   model.DataType
	data []byte
	off  int
}

func newPlainDecoder(dt model.DataType, data []byte) *plainDecoder {
	return &plainDecoder{dt: dt, data: data}
}

func (d *plainDecoder) HasNext() bool { return d.off < len(d.data) }

func (d *plainDecoder) NextBool() (bool, error) {
	if d.dt != model.Boolean {
		return d.baseDecoder.NextBool()
	}
	if d.off >= len(d.data) {
		return false, tserr.NoMoreData
	}
	v := d.data[d.off] != 0
	d.off++
	return v, nil
}

func (d *plainDecoder) NextInt32() (int32, error) {
	if d.dt != model.Int32 {
		return d.baseDecoder.NextInt32()
	}
	v, n := serialize.ReadI32(d.data[d.off:])
	if n == 0 {
		return 0, tserr.New(tserr.CodeCorrupted, "truncated PLAIN int32 stream")
	}
	d.off += n
	return v, nil
}

func (d *plainDecoder) NextInt64() (int64, error) {
	if !d.dt.IsIntLike() || d.dt == model.Int32 {
		return d.baseDecoder.NextInt64()
	}
	v, n := serialize.ReadI64(d.data[d.off:])
	if n == 0 {
		return 0, tserr.New(tserr.CodeCorrupted, "truncated PLAIN int64 stream")
	}
	d.off += n
	return v, nil
}

func (d *plainDecoder) NextFloat32() (float32, error) {
	if d.dt != model.Float {
		return d.baseDecoder.NextFloat32()
	}
	v, n := serialize.ReadFloat32(d.data[d.off:])
	if n == 0 {
		return 0, tserr.New(tserr.CodeCorrupted, "truncated PLAIN float stream")
	}
	d.off += n
	return v, nil
}

func (d *plainDecoder) NextFloat64() (float64, error) {
	if d.dt != model.Double {
		return d.baseDecoder.NextFloat64()
	}
	v, n := serialize.ReadFloat64(d.data[d.off:])
	if n == 0 {
		return 0, tserr.New(tserr.CodeCorrupted, "truncated PLAIN double stream")
	}
	d.off += n
	return v, nil
}

func (d *plainDecoder) NextBinary() ([]byte, error) {
	if !d.dt.IsBinary() {
		return d.baseDecoder.NextBinary()
	}
	v, n, err := serialize.ReadBytes(d.data[d.off:])
	if err != nil {
		return nil, err
	}
	d.off += n
	return v, nil
}
