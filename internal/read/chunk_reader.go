package read

import (
	"github.com/soltixdb/tsfile/internal/chunk"
	"github.com/soltixdb/tsfile/internal/compression"
	"github.com/soltixdb/tsfile/internal/encoding"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// DeserializeChunkHeader re-exports the chunk header parser for callers
// holding raw chunk bytes.
func DeserializeChunkHeader(data []byte) (*chunk.Header, int, error) {
	return chunk.DeserializeHeader(data)
}

// pageSlice is one undecoded page cut out of a chunk body.
type pageSlice struct {
	header *chunk.PageHeader
	body   []byte // still compressed
}

// splitPages walks a chunk body into its pages. Multi-page chunks carry
// per-page statistics in each page header.
func splitPages(h *chunk.Header, body []byte) ([]pageSlice, error) {
	multi := h.NumPages != 1
	var pages []pageSlice
	off := 0
	for off < len(body) {
		ph, n, err := chunk.DeserializePageHeader(body[off:], h.DataType, multi)
		if err != nil {
			return nil, err
		}
		off += n
		if off+ph.CompressedSize > len(body) {
			return nil, tserr.New(tserr.CodeCorrupted,
				"page claims %d bytes, %d remain in chunk", ph.CompressedSize, len(body)-off)
		}
		pages = append(pages, pageSlice{header: ph, body: body[off : off+ph.CompressedSize]})
		off += ph.CompressedSize
	}
	return pages, nil
}

// decodeTimes drains an int64 decoder.
func decodeTimes(dec encoding.Decoder) ([]int64, error) {
	var times []int64
	for dec.HasNext() {
		t, err := dec.NextInt64()
		if err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, nil
}

// decodeValues drains a value decoder into a block column, count values.
// A negative count drains until exhaustion.
func decodeValues(dec encoding.Decoder, dt model.DataType, col *model.BlockColumn, count int) error {
	read := 0
	for dec.HasNext() && (count < 0 || read < count) {
		switch dt {
		case model.Boolean:
			v, err := dec.NextBool()
			if err != nil {
				return err
			}
			col.Append(v)
		case model.Int32:
			v, err := dec.NextInt32()
			if err != nil {
				return err
			}
			col.Append(v)
		case model.Int64, model.Timestamp, model.Date:
			v, err := dec.NextInt64()
			if err != nil {
				return err
			}
			col.Append(v)
		case model.Float:
			v, err := dec.NextFloat32()
			if err != nil {
				return err
			}
			col.Append(v)
		case model.Double:
			v, err := dec.NextFloat64()
			if err != nil {
				return err
			}
			col.Append(v)
		case model.Text, model.String, model.Blob:
			v, err := dec.NextBinary()
			if err != nil {
				return err
			}
			col.Append(v)
		default:
			return tserr.New(tserr.CodeNotSupported, "decoding %s values", dt)
		}
		read++
	}
	return nil
}

// decodeUnalignedPage decodes one page of an unaligned chunk:
// {timeLen uvarint, time stream, value stream}.
func decodeUnalignedPage(h *chunk.Header, p pageSlice, timeEnc model.Encoding) ([]int64, *model.BlockColumn, error) {
	comp, err := compression.GetCompressor(h.Compression)
	if err != nil {
		return nil, nil, err
	}
	body, err := comp.Decompress(p.body, p.header.UncompressedSize)
	if err != nil {
		return nil, nil, err
	}
	timeBuf, n, err := serialize.ReadBytes(body)
	if err != nil {
		return nil, nil, err
	}
	valueBuf := body[n:]

	timeDec, err := encoding.GetDecoder(timeEnc, model.Int64, timeBuf)
	if err != nil {
		return nil, nil, err
	}
	times, err := decodeTimes(timeDec)
	if err != nil {
		return nil, nil, err
	}

	valueDec, err := encoding.GetDecoder(h.Encoding, h.DataType, valueBuf)
	if err != nil {
		return nil, nil, err
	}
	col := model.NewBlockColumn(h.MeasurementName, h.DataType)
	if err := decodeValues(valueDec, h.DataType, col, len(times)); err != nil {
		return nil, nil, err
	}
	if col.Len() != len(times) {
		return nil, nil, tserr.New(tserr.CodeCorrupted,
			"page decoded %d values for %d timestamps", col.Len(), len(times))
	}
	return times, col, nil
}

// decodeTimePage decodes one page of an aligned time chunk: the body is
// the compressed time stream alone.
func decodeTimePage(h *chunk.Header, p pageSlice) ([]int64, error) {
	comp, err := compression.GetCompressor(h.Compression)
	if err != nil {
		return nil, err
	}
	body, err := comp.Decompress(p.body, p.header.UncompressedSize)
	if err != nil {
		return nil, err
	}
	dec, err := encoding.GetDecoder(h.Encoding, model.Int64, body)
	if err != nil {
		return nil, err
	}
	return decodeTimes(dec)
}

// alignedValuePage is a decoded value page: present[i] says whether row i
// holds a value; values hold the present rows in order.
type alignedValuePage struct {
	rowCount int
	present  []bool
	values   *model.BlockColumn
}

// decodeValuePage decodes one page of an aligned value chunk:
// {rowCount uvarint, present bitmap, value stream}.
func decodeValuePage(h *chunk.Header, p pageSlice, name string) (*alignedValuePage, error) {
	comp, err := compression.GetCompressor(h.Compression)
	if err != nil {
		return nil, err
	}
	body, err := comp.Decompress(p.body, p.header.UncompressedSize)
	if err != nil {
		return nil, err
	}
	rowCount, n := serialize.ReadUvarint(body)
	if n == 0 {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated value page row count")
	}
	bitmapLen := int((rowCount + 7) / 8)
	if len(body)-n < bitmapLen {
		return nil, tserr.New(tserr.CodeCorrupted, "truncated value page bitmap")
	}
	bitmap := body[n : n+bitmapLen]
	valueBuf := body[n+bitmapLen:]

	out := &alignedValuePage{
		rowCount: int(rowCount),
		present:  make([]bool, rowCount),
		values:   model.NewBlockColumn(name, h.DataType),
	}
	presentCount := 0
	for i := 0; i < int(rowCount); i++ {
		if bitmap[i/8]&(1<<(i%8)) != 0 {
			out.present[i] = true
			presentCount++
		}
	}
	dec, err := encoding.GetDecoder(h.Encoding, h.DataType, valueBuf)
	if err != nil {
		return nil, err
	}
	if err := decodeValues(dec, h.DataType, out.values, presentCount); err != nil {
		return nil, err
	}
	if out.values.Len() != presentCount {
		return nil, tserr.New(tserr.CodeCorrupted,
			"value page decoded %d of %d present rows", out.values.Len(), presentCount)
	}
	return out, nil
}
