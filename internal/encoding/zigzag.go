package encoding

import (
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// zigzagEncoder stores signed integers as zigzag varints.
//
// Sealed layout: [count: uvarint][count zigzag varints]
type zigzagEncoder struct {
	baseEncoder
	dt  model.DataType
	buf []byte
	n   uint64
}

func newZigzagEncoder(dt model.DataType) *zigzagEncoder {
	return &zigzagEncoder{dt: dt}
}

func (e *zigzagEncoder) EncodeInt32(v int32) {
	e.buf = serialize.AppendVarint(e.buf, int64(v))
	e.n++
}

func (e *zigzagEncoder) EncodeInt64(v int64) {
	e.buf = serialize.AppendVarint(e.buf, v)
	e.n++
}

func (e *zigzagEncoder) Size() int { return len(e.buf) + 10 }

func (e *zigzagEncoder) Flush(buf []byte) []byte {
	buf = serialize.AppendUvarint(buf, e.n)
	buf = append(buf, e.buf...)
	e.Reset()
	return buf
}

func (e *zigzagEncoder) Reset() {
	e.buf = e.buf[:0]
	e.n = 0
}

type zigzagDecoder struct {
	baseDecoder
	dt        model.DataType
	data      []byte
	off       int
	remaining uint64
}

func newZigzagDecoder(dt model.DataType, data []byte) (*zigzagDecoder, error) {
	count, n := serialize.ReadUvarint(data)
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated ZIGZAG header")
	}
	return &zigzagDecoder{dt: dt, data: data, off: n, remaining: count}, nil
}

func (d *zigzagDecoder) HasNext() bool { return d.remaining > 0 }

func (d *zigzagDecoder) next() (int64, error) {
	if d.remaining == 0 {
		return 0, tserr.NoMoreData
	}
	v, n := serialize.ReadVarint(d.data[d.off:])
	if n == 0 {
		return 0, tserr.New(tserr.CodeCorrupted, "truncated ZIGZAG stream")
	}
	d.off += n
	d.remaining--
	return v, nil
}

func (d *zigzagDecoder) NextInt32() (int32, error) {
	if d.dt != model.Int32 {
		return d.baseDecoder.NextInt32()
	}
	v, err := d.next()
	return int32(v), err
}

func (d *zigzagDecoder) NextInt64() (int64, error) {
	if !d.dt.IsIntLike() || d.dt == model.Int32 {
		return d.baseDecoder.NextInt64()
	}
	return d.next()
}
