package encoding

import (
	"math"
	"math/bits"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// gorillaEncoder implements XOR bit-packing from Facebook's Gorilla paper
// (Pelkonen et al., PVLDB 2015, section 4.1.2). Values are treated as raw
// 64-bit words; FLOAT and INT32 widen losslessly.
//
// Sealed layout:
//
//	[count: uvarint]
//	[first value: 8 bytes LE raw bits]
//	XOR bit stream, per subsequent value:
//	  '0'                           identical to previous
//	  '10' + meaningful bits        fits previous leading/trailing window
//	  '11' + 6 bits leading + 6 bits (meaningful length - 1) + meaningful bits
//	[padding to a byte boundary]
type gorillaEncoder struct {
	baseEncoder
	dt    model.DataType
	words []uint64
}

func newGorillaEncoder(dt model.DataType) *gorillaEncoder {
	return &gorillaEncoder{dt: dt}
}

func (e *gorillaEncoder) EncodeInt32(v int32)     { e.words = append(e.words, uint64(uint32(v))) }
func (e *gorillaEncoder) EncodeInt64(v int64)     { e.words = append(e.words, uint64(v)) }
func (e *gorillaEncoder) EncodeFloat32(v float32) { e.words = append(e.words, uint64(math.Float32bits(v))) }
func (e *gorillaEncoder) EncodeFloat64(v float64) { e.words = append(e.words, math.Float64bits(v)) }

func (e *gorillaEncoder) Size() int { return 16 + len(e.words)*10 }

func (e *gorillaEncoder) Flush(buf []byte) []byte {
	buf = serialize.AppendUvarint(buf, uint64(len(e.words)))
	if len(e.words) == 0 {
		e.Reset()
		return buf
	}
	buf = serialize.AppendU64(buf, e.words[0])

	bw := serialize.NewBitWriter(len(e.words) * 2)
	prev := e.words[0]
	prevLeading, prevTrailing := uint8(64), uint8(0)
	for _, word := range e.words[1:] {
		xor := word ^ prev
		prev = word
		if xor == 0 {
			bw.WriteBit(0)
			continue
		}
		bw.WriteBit(1)
		leading := uint8(bits.LeadingZeros64(xor))
		trailing := uint8(bits.TrailingZeros64(xor))
		if leading > 31 {
			leading = 31 // 6-bit header field; cap is part of the format
		}
		if prevLeading <= 64 && leading >= prevLeading && trailing >= prevTrailing &&
			prevLeading+prevTrailing < 64 {
			// meaningful bits fit the previous window
			bw.WriteBit(0)
			meaning := 64 - prevLeading - prevTrailing
			bw.WriteBits(xor>>prevTrailing, meaning)
		} else {
			bw.WriteBit(1)
			meaning := 64 - leading - trailing
			bw.WriteBits(uint64(leading), 6)
			bw.WriteBits(uint64(meaning-1), 6)
			bw.WriteBits(xor>>trailing, meaning)
			prevLeading, prevTrailing = leading, trailing
		}
	}
	buf = append(buf, bw.Bytes()...)
	e.Reset()
	return buf
}

func (e *gorillaEncoder) Reset() {
	e.words = e.words[:0]
}

type gorillaDecoder struct {
	baseDecoder
	dt    model.DataType
	words []uint64
	idx   int
}

func newGorillaDecoder(dt model.DataType, data []byte) (*gorillaDecoder, error) {
	d := &gorillaDecoder{dt: dt}
	count, n := serialize.ReadUvarint(data)
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated GORILLA header")
	}
	off := n
	if count == 0 {
		return d, nil
	}
	first, n := serialize.ReadU64(data[off:])
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated GORILLA first value")
	}
	off += n
	d.words = make([]uint64, 0, count)
	d.words = append(d.words, first)

	br := serialize.NewBitReader(data[off:])
	prev := first
	prevLeading, prevTrailing := uint8(64), uint8(0)
	for i := uint64(1); i < count; i++ {
		ctrl, ok := br.ReadBit()
		if !ok {
			return nil, tserr.New(tserr.CodeCorrupted, "truncated GORILLA bit stream")
		}
		if ctrl == 0 {
			d.words = append(d.words, prev)
			continue
		}
		windowCtrl, ok := br.ReadBit()
		if !ok {
			return nil, tserr.New(tserr.CodeCorrupted, "truncated GORILLA bit stream")
		}
		var leading, meaning uint8
		if windowCtrl == 0 {
			leading = prevLeading
			meaning = 64 - prevLeading - prevTrailing
		} else {
			l, ok := br.ReadBits(6)
			if !ok {
				return nil, tserr.New(tserr.CodeCorrupted, "truncated GORILLA window header")
			}
			m, ok := br.ReadBits(6)
			if !ok {
				return nil, tserr.New(tserr.CodeCorrupted, "truncated GORILLA window header")
			}
			leading = uint8(l)
			meaning = uint8(m) + 1
			if int(leading)+int(meaning) > 64 {
				return nil, tserr.New(tserr.CodeCorrupted, "impossible GORILLA window %d+%d", leading, meaning)
			}
			prevLeading = leading
			prevTrailing = 64 - leading - meaning
		}
		bitsVal, ok := br.ReadBits(meaning)
		if !ok {
			return nil, tserr.New(tserr.CodeCorrupted, "truncated GORILLA value bits")
		}
		trailing := 64 - leading - meaning
		word := prev ^ (bitsVal << trailing)
		d.words = append(d.words, word)
		prev = word
	}
	return d, nil
}

func (d *gorillaDecoder) HasNext() bool { return d.idx < len(d.words) }

func (d *gorillaDecoder) next() (uint64, error) {
	if d.idx >= len(d.words) {
		return 0, tserr.NoMoreData
	}
	w := d.words[d.idx]
	d.idx++
	return w, nil
}

func (d *gorillaDecoder) NextInt32() (int32, error) {
	if d.dt != model.Int32 {
		return d.baseDecoder.NextInt32()
	}
	w, err := d.next()
	return int32(uint32(w)), err
}

func (d *gorillaDecoder) NextInt64() (int64, error) {
	if !d.dt.IsIntLike() || d.dt == model.Int32 {
		return d.baseDecoder.NextInt64()
	}
	w, err := d.next()
	return int64(w), err
}

func (d *gorillaDecoder) NextFloat32() (float32, error) {
	if d.dt != model.Float {
		return d.baseDecoder.NextFloat32()
	}
	w, err := d.next()
	return math.Float32frombits(uint32(w)), err
}

func (d *gorillaDecoder) NextFloat64() (float64, error) {
	if d.dt != model.Double {
		return d.baseDecoder.NextFloat64()
	}
	w, err := d.next()
	return math.Float64frombits(w), err
}
