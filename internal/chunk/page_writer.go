package chunk

import (
	"github.com/soltixdb/tsfile/internal/compression"
	"github.com/soltixdb/tsfile/internal/encoding"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/stats"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// SealedPage is one sealed page: the compressed body plus everything the
// chunk writer needs to frame it.
type SealedPage struct {
	UncompressedSize int
	Body             []byte
	Statistics       *stats.Statistics
}

// PageWriter buffers (time, value) points of an unaligned series under one
// time encoder and one value encoder, tracking page statistics.
//
// Uncompressed page body: {timeLen uvarint, time stream, value stream}.
type PageWriter struct {
	dt         model.DataType
	timeEnc    encoding.Encoder
	valueEnc   encoding.Encoder
	compressor compression.Compressor
	stats      *stats.Statistics
	pointCount int
}

// NewPageWriter wires the encoders and compressor for one series.
func NewPageWriter(dt model.DataType, timeEnc model.Encoding, valueEnc model.Encoding,
	comp model.Compression) (*PageWriter, error) {
	te, err := encoding.GetEncoder(timeEnc, model.Int64)
	if err != nil {
		return nil, err
	}
	ve, err := encoding.GetEncoder(valueEnc, dt)
	if err != nil {
		return nil, err
	}
	c, err := compression.GetCompressor(comp)
	if err != nil {
		return nil, err
	}
	return &PageWriter{
		dt:         dt,
		timeEnc:    te,
		valueEnc:   ve,
		compressor: c,
		stats:      stats.New(dt),
	}, nil
}

func (p *PageWriter) writeTime(t int64) {
	p.timeEnc.EncodeInt64(t)
	p.pointCount++
}

// WriteBool appends a boolean point.
func (p *PageWriter) WriteBool(t int64, v bool) {
	p.writeTime(t)
	p.valueEnc.EncodeBool(v)
	p.stats.UpdateBool(t, v)
}

// WriteInt32 appends an int32 point.
func (p *PageWriter) WriteInt32(t int64, v int32) {
	p.writeTime(t)
	p.valueEnc.EncodeInt32(v)
	p.stats.UpdateInt(t, int64(v))
}

// WriteInt64 appends an int64/timestamp/date point.
func (p *PageWriter) WriteInt64(t int64, v int64) {
	p.writeTime(t)
	p.valueEnc.EncodeInt64(v)
	p.stats.UpdateInt(t, v)
}

// WriteFloat32 appends a float point.
func (p *PageWriter) WriteFloat32(t int64, v float32) {
	p.writeTime(t)
	p.valueEnc.EncodeFloat32(v)
	p.stats.UpdateFloat(t, float64(v))
}

// WriteFloat64 appends a double point.
func (p *PageWriter) WriteFloat64(t int64, v float64) {
	p.writeTime(t)
	p.valueEnc.EncodeFloat64(v)
	p.stats.UpdateFloat(t, v)
}

// WriteBinary appends a text/string/blob point.
func (p *PageWriter) WriteBinary(t int64, v []byte) {
	p.writeTime(t)
	p.valueEnc.EncodeBinary(v)
	p.stats.UpdateBinary(t, v)
}

// Write appends a boxed point, routing by the declared type.
func (p *PageWriter) Write(t int64, v interface{}) error {
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
		return tserr.New(tserr.CodeNotSupported, "page writer for %s", p.dt)
	}
	return nil
}

func mismatch(want model.DataType, got interface{}) error {
	return tserr.New(tserr.CodeInvalidDataPoint, "value %T does not match declared type %s", got, want)
}

// PointCount returns the buffered point count.
func (p *PageWriter) PointCount() int { return p.pointCount }

// Statistics exposes the live page statistics.
func (p *PageWriter) Statistics() *stats.Statistics { return p.stats }

// EstimateSize returns a conservative upper bound of the sealed size.
func (p *PageWriter) EstimateSize() int {
	return p.timeEnc.Size() + p.valueEnc.Size() + 16
}

// Seal compresses the page body and resets the writer for the next page.
func (p *PageWriter) Seal() (SealedPage, error) {
	var body []byte
	timeBuf := p.timeEnc.Flush(nil)
	body = serialize.AppendBytes(body, timeBuf)
	body = p.valueEnc.Flush(body)

	compressed, err := p.compressor.Compress(body)
	if err != nil {
		return SealedPage{}, tserr.Wrap(tserr.CodeFileWriteErr, err, "compress page")
	}
	sealed := SealedPage{
		UncompressedSize: len(body),
		Body:             compressed,
		Statistics:       p.stats,
	}
	p.stats = stats.New(p.dt)
	p.pointCount = 0
	return sealed, nil
}

// Reset drops buffered points without sealing.
func (p *PageWriter) Reset() {
	p.timeEnc.Reset()
	p.valueEnc.Reset()
	p.stats = stats.New(p.dt)
	p.pointCount = 0
}
