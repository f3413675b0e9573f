package encoding

import (
	"math/bits"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// ts2diffEncoder applies two levels of delta encoding, suited to
// monotonic-ish integer streams such as timestamps. The second-level
// deltas are normalized against their minimum and bit-packed.
//
// Sealed layout:
//
//	[count: uvarint]
//	[first: zigzag varint]                     when count >= 1
//	[firstDelta: zigzag varint]                when count >= 2
//	[minDelta2: zigzag varint]                 when count >= 3
//	[bitWidth: 1 byte]                         when count >= 3
//	[packed (delta2[i] - minDelta2): (count-2) * bitWidth bits]
type ts2diffEncoder struct {
	baseEncoder
	dt     model.DataType
	values []int64
}

func newTS2DiffEncoder(dt model.DataType) *ts2diffEncoder {
	return &ts2diffEncoder{dt: dt}
}

func (e *ts2diffEncoder) EncodeInt32(v int32) { e.values = append(e.values, int64(v)) }
func (e *ts2diffEncoder) EncodeInt64(v int64) { e.values = append(e.values, v) }

func (e *ts2diffEncoder) Size() int { return 12 + len(e.values)*9 }

func (e *ts2diffEncoder) Flush(buf []byte) []byte {
	n := len(e.values)
	buf = serialize.AppendUvarint(buf, uint64(n))
	if n == 0 {
		e.Reset()
		return buf
	}
	buf = serialize.AppendVarint(buf, e.values[0])
	if n == 1 {
		e.Reset()
		return buf
	}
	firstDelta := e.values[1] - e.values[0]
	buf = serialize.AppendVarint(buf, firstDelta)
	if n == 2 {
		e.Reset()
		return buf
	}

	// second-level deltas
	d2 := make([]int64, 0, n-2)
	prevDelta := firstDelta
	minD2 := int64(1<<63 - 1)
	for i := 2; i < n; i++ {
		delta := e.values[i] - e.values[i-1]
		dd := delta - prevDelta
		prevDelta = delta
		d2 = append(d2, dd)
		if dd < minD2 {
			minD2 = dd
		}
	}
	buf = serialize.AppendVarint(buf, minD2)

	var maxOffset uint64
	for _, dd := range d2 {
		if off := uint64(dd - minD2); off > maxOffset {
			maxOffset = off
		}
	}
	bitWidth := uint8(bits.Len64(maxOffset))
	if bitWidth == 0 {
		bitWidth = 1
	}
	buf = append(buf, bitWidth)
	bw := serialize.NewBitWriter(len(d2) * int(bitWidth) / 8)
	for _, dd := range d2 {
		bw.WriteBits(uint64(dd-minD2), bitWidth)
	}
	buf = append(buf, bw.Bytes()...)
	e.Reset()
	return buf
}

func (e *ts2diffEncoder) Reset() { e.values = e.values[:0] }

type ts2diffDecoder struct {
	baseDecoder
	dt model.DataType

	values []int64
	idx    int
}

func newTS2DiffDecoder(dt model.DataType, data []byte) (*ts2diffDecoder, error) {
	d := &ts2diffDecoder{dt: dt}
	count, n := serialize.ReadUvarint(data)
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated TS_2DIFF header")
	}
	off := n
	if count == 0 {
		return d, nil
	}
	first, n := serialize.ReadVarint(data[off:])
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated TS_2DIFF base value")
	}
	off += n
	d.values = make([]int64, 0, count)
	d.values = append(d.values, first)
	if count == 1 {
		return d, nil
	}
	firstDelta, n := serialize.ReadVarint(data[off:])
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated TS_2DIFF first delta")
	}
	off += n
	d.values = append(d.values, first+firstDelta)
	if count == 2 {
		return d, nil
	}
	minD2, n := serialize.ReadVarint(data[off:])
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated TS_2DIFF min delta")
	}
	off += n
	if off >= len(data) {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated TS_2DIFF bit width")
	}
	bitWidth := data[off]
	off++
	if bitWidth == 0 || bitWidth > 64 {
		return nil, tserr.New(tserr.CodeCorrupted, "impossible TS_2DIFF bit width %d", bitWidth)
	}
	br := serialize.NewBitReader(data[off:])
	prevDelta := firstDelta
	prev := d.values[1]
	for i := uint64(2); i < count; i++ {
		offVal, ok := br.ReadBits(bitWidth)
		if !ok {
			return nil, tserr.New(tserr.CodeCorrupted, "truncated TS_2DIFF delta stream")
		}
		delta := prevDelta + minD2 + int64(offVal)
		prev += delta
		prevDelta = delta
		d.values = append(d.values, prev)
	}
	return d, nil
}

func (d *ts2diffDecoder) HasNext() bool { return d.idx < len(d.values) }

func (d *ts2diffDecoder) next() (int64, error) {
	if d.idx >= len(d.values) {
		return 0, tserr.NoMoreData
	}
	v := d.values[d.idx]
	d.idx++
	return v, nil
}

func (d *ts2diffDecoder) NextInt32() (int32, error) {
	if d.dt != model.Int32 {
		return d.baseDecoder.NextInt32()
	}
	v, err := d.next()
	return int32(v), err
}

func (d *ts2diffDecoder) NextInt64() (int64, error) {
	if !d.dt.IsIntLike() || d.dt == model.Int32 {
		return d.baseDecoder.NextInt64()
	}
	return d.next()
}
