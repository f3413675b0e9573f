package encoding

import (
	"math/bits"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// rleEncoder run-length encodes booleans and integers. Integer run values
// are zigzag mapped and bit-packed to the widest run value.
//
// Sealed layout:
//
//	[count:   uvarint]            total value count; nothing follows when 0
//	[numRuns: uvarint]
//	[bitWidth: 1 byte]            at least 1
//	[runLengths: numRuns uvarints]
//	[runValues: numRuns * bitWidth bits, padded to a byte boundary]
type rleEncoder struct {
	baseEncoder
	dt     model.DataType
	values []uint64 // zigzag form for ints, 0/1 for bools
}

func newRLEEncoder(dt model.DataType) *rleEncoder {
	return &rleEncoder{dt: dt}
}

func (e *rleEncoder) EncodeBool(v bool) {
	var u uint64
	if v {
		u = 1
	}
	e.values = append(e.values, u)
}

func (e *rleEncoder) EncodeInt32(v int32) { e.values = append(e.values, serialize.ZigzagEncode(int64(v))) }
func (e *rleEncoder) EncodeInt64(v int64) { e.values = append(e.values, serialize.ZigzagEncode(v)) }

func (e *rleEncoder) Size() int {
	// worst case: every value its own run of a full-width value
	return 16 + len(e.values)*(8+2)
}

func (e *rleEncoder) Flush(buf []byte) []byte {
	buf = serialize.AppendUvarint(buf, uint64(len(e.values)))
	if len(e.values) == 0 {
		e.Reset()
		return buf
	}

	type run struct {
		length uint64
		value  uint64
	}
	var runs []run
	cur := run{length: 1, value: e.values[0]}
	maxVal := e.values[0]
	for _, v := range e.values[1:] {
		if v == cur.value {
			cur.length++
			continue
		}
		runs = append(runs, cur)
		cur = run{length: 1, value: v}
		if v > maxVal {
			maxVal = v
		}
	}
	runs = append(runs, cur)

	bitWidth := uint8(bits.Len64(maxVal))
	if bitWidth == 0 {
		bitWidth = 1
	}

	buf = serialize.AppendUvarint(buf, uint64(len(runs)))
	buf = append(buf, bitWidth)
	for _, r := range runs {
		buf = serialize.AppendUvarint(buf, r.length)
	}
	bw := serialize.NewBitWriter(len(runs) * int(bitWidth) / 8)
	for _, r := range runs {
		bw.WriteBits(r.value, bitWidth)
	}
	buf = append(buf, bw.Bytes()...)
	e.Reset()
	return buf
}

func (e *rleEncoder) Reset() { e.values = e.values[:0] }

type rleDecoder struct {
	baseDecoder
	dt model.DataType

	remaining uint64 // values left overall
	runIdx    int
	runLeft   uint64
	runValue  uint64
	runLens   []uint64
	reader    *serialize.BitReader
	bitWidth  uint8
}

func newRLEDecoder(dt model.DataType, data []byte) (*rleDecoder, error) {
	d := &rleDecoder{dt: dt}
	count, n := serialize.ReadUvarint(data)
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated RLE header")
	}
	d.remaining = count
	off := n
	if count == 0 {
		return d, nil
	}
	numRuns, n := serialize.ReadUvarint(data[off:])
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated RLE run count")
	}
	off += n
	if off >= len(data) {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated RLE bit width")
	}
	d.bitWidth = data[off]
	off++
	if d.bitWidth == 0 || d.bitWidth > 64 {
		return nil, tserr.New(tserr.CodeCorrupted, "impossible RLE bit width %d", d.bitWidth)
	}
	d.runLens = make([]uint64, numRuns)
	var total uint64
	for i := uint64(0); i < numRuns; i++ {
		l, n := serialize.ReadUvarint(data[off:])
		if n == 0 {
			return nil, tserr.New(tserr.CodeCorrupted, "truncated RLE run length")
		}
		off += n
		d.runLens[i] = l
		total += l
	}
	if total != count {
		return nil, tserr.New(tserr.CodeCorrupted, "RLE run lengths sum %d != count %d", total, count)
	}
	d.reader = serialize.NewBitReader(data[off:])
	return d, nil
}

func (d *rleDecoder) HasNext() bool { return d.remaining > 0 }

func (d *rleDecoder) next() (uint64, error) {
	if d.remaining == 0 {
		return 0, tserr.NoMoreData
	}
	if d.runLeft == 0 {
		if d.runIdx >= len(d.runLens) {
			return 0, tserr.New(tserr.CodeCorrupted, "RLE stream exhausted early")
		}
		v, ok := d.reader.ReadBits(d.bitWidth)
		if !ok {
			return 0, tserr.New(tserr.CodeCorrupted, "truncated RLE value stream")
		}
		d.runValue = v
		d.runLeft = d.runLens[d.runIdx]
		d.runIdx++
	}
	d.runLeft--
	d.remaining--
	return d.runValue, nil
}

func (d *rleDecoder) NextBool() (bool, error) {
	if d.dt != model.Boolean {
		return d.baseDecoder.NextBool()
	}
	v, err := d.next()
	return v != 0, err
}

func (d *rleDecoder) NextInt32() (int32, error) {
	if d.dt != model.Int32 {
		return d.baseDecoder.NextInt32()
	}
	v, err := d.next()
	return int32(serialize.ZigzagDecode(v)), err
}

func (d *rleDecoder) NextInt64() (int64, error) {
	if !d.dt.IsIntLike() || d.dt == model.Int32 {
		return d.baseDecoder.NextInt64()
	}
	v, err := d.next()
	return serialize.ZigzagDecode(v), err
}
