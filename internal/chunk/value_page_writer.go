package chunk

import (
	"github.com/soltixdb/tsfile/internal/compression"
	"github.com/soltixdb/tsfile/internal/encoding"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/stats"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// ValuePageWriter buffers one value column of an aligned group. Rows
// align positionally with the shared time page; nulls occupy a row but
// encode no value. Bit 1 in the bitmap means present.
//
// Uncompressed page body: {rowCount uvarint, present bitmap, value stream}.
type ValuePageWriter struct {
	dt         model.DataType
	valueEnc   encoding.Encoder
	compressor compression.Compressor
	stats      *stats.Statistics
	bitmap     []byte
	rowCount   int
}

// NewValuePageWriter wires the encoder and compressor for one value column.
func NewValuePageWriter(dt model.DataType, valueEnc model.Encoding,
	comp model.Compression) (*ValuePageWriter, error) {
	ve, err := encoding.GetEncoder(valueEnc, dt)
	if err != nil {
		return nil, err
	}
	c, err := compression.GetCompressor(comp)
	if err != nil {
		return nil, err
	}
	return &ValuePageWriter{
		dt:         dt,
		valueEnc:   ve,
		compressor: c,
		stats:      stats.New(dt),
	}, nil
}

func (p *ValuePageWriter) addRow(present bool) {
	byteIdx := p.rowCount / 8
	for len(p.bitmap) <= byteIdx {
		p.bitmap = append(p.bitmap, 0)
	}
	if present {
		p.bitmap[byteIdx] |= 1 << (p.rowCount % 8)
	}
	p.rowCount++
}

// WriteNull appends a null row. Null rows still count toward alignment.
func (p *ValuePageWriter) WriteNull() {
	p.addRow(false)
}

// WriteBool appends a boolean row.
func (p *ValuePageWriter) WriteBool(t int64, v bool) {
	p.addRow(true)
	p.valueEnc.EncodeBool(v)
	p.stats.UpdateBool(t, v)
}

// WriteInt32 appends an int32 row.
func (p *ValuePageWriter) WriteInt32(t int64, v int32) {
	p.addRow(true)
	p.valueEnc.EncodeInt32(v)
	p.stats.UpdateInt(t, int64(v))
}

// WriteInt64 appends an int64/timestamp/date row.
func (p *ValuePageWriter) WriteInt64(t int64, v int64) {
	p.addRow(true)
	p.valueEnc.EncodeInt64(v)
	p.stats.UpdateInt(t, v)
}

// WriteFloat32 appends a float row.
func (p *ValuePageWriter) WriteFloat32(t int64, v float32) {
	p.addRow(true)
	p.valueEnc.EncodeFloat32(v)
	p.stats.UpdateFloat(t, float64(v))
}

// WriteFloat64 appends a double row.
func (p *ValuePageWriter) WriteFloat64(t int64, v float64) {
	p.addRow(true)
	p.valueEnc.EncodeFloat64(v)
	p.stats.UpdateFloat(t, v)
}

// WriteBinary appends a text/string/blob row.
func (p *ValuePageWriter) WriteBinary(t int64, v []byte) {
	p.addRow(true)
	p.valueEnc.EncodeBinary(v)
	p.stats.UpdateBinary(t, v)
}

// Write appends a boxed row; isNull rows record only alignment.
func (p *ValuePageWriter) Write(t int64, v interface{}, isNull bool) error {
	if isNull {
		p.WriteNull()
		return nil
	}
	switch p.dt {
	case model.Boolean:
		b, ok := v.(bool)
		if !ok {
			return mismatch(p.dt, v)
		}
		p.WriteBool(t, b)
	case model.Int32:
		n, ok := v.(int32)
		if !ok {
			return mismatch(p.dt, v)
		}
		p.WriteInt32(t, n)
	case model.Int64, model.Timestamp, model.Date:
		n, ok := v.(int64)
		if !ok {
			return mismatch(p.dt, v)
		}
		p.WriteInt64(t, n)
	case model.Float:
		f, ok := v.(float32)
		if !ok {
			return mismatch(p.dt, v)
		}
		p.WriteFloat32(t, f)
	case model.Double:
		f, ok := v.(float64)
		if !ok {
			return mismatch(p.dt, v)
		}
		p.WriteFloat64(t, f)
	case model.Text, model.String, model.Blob:
		switch b := v.(type) {
		case []byte:
			p.WriteBinary(t, b)
		case string:
			p.WriteBinary(t, []byte(b))
		default:
			return mismatch(p.dt, v)
		}
	default:
		return tserr.New(tserr.CodeNotSupported, "value page writer for %s", p.dt)
	}
	return nil
}

// RowCount returns buffered rows including nulls.
func (p *ValuePageWriter) RowCount() int { return p.rowCount }

// Statistics exposes the live page statistics. Null rows contribute to
// alignment, not to the statistics count.
func (p *ValuePageWriter) Statistics() *stats.Statistics { return p.stats }

// EstimateSize returns a conservative upper bound of the sealed size.
func (p *ValuePageWriter) EstimateSize() int {
	return p.valueEnc.Size() + len(p.bitmap) + 16
}

// Seal compresses the page body and resets the writer.
func (p *ValuePageWriter) Seal() (SealedPage, error) {
	var body []byte
	body = serialize.AppendUvarint(body, uint64(p.rowCount))
	body = append(body, p.bitmap[:(p.rowCount+7)/8]...)
	body = p.valueEnc.Flush(body)

	compressed, err := p.compressor.Compress(body)
	if err != nil {
		return SealedPage{}, tserr.Wrap(tserr.CodeFileWriteErr, err, "compress value page")
	}
	sealed := SealedPage{
		UncompressedSize: len(body),
		Body:             compressed,
		Statistics:       p.stats,
	}
	p.stats = stats.New(p.dt)
	p.bitmap = p.bitmap[:0]
	p.rowCount = 0
	return sealed, nil
}
