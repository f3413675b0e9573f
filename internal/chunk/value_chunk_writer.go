package chunk

import (
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/stats"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// ValueChunkWriter buffers one value column of an aligned group. Page
// sealing is driven by the group so rows stay aligned with the time chunk.
type ValueChunkWriter struct {
	schema model.MeasurementSchema

	pw     *ValuePageWriter
	buf    *pageBuffer
	header *Header
	sealed bool
}

// NewValueChunkWriter creates a writer for one aligned value column.
func NewValueChunkWriter(schema model.MeasurementSchema) (*ValueChunkWriter, error) {
	pw, err := NewValuePageWriter(schema.DataType, schema.Encoding, schema.Compression)
	if err != nil {
		return nil, err
	}
	return &ValueChunkWriter{
		schema: schema,
		pw:     pw,
		buf:    newPageBuffer(schema.DataType),
	}, nil
}

// Write appends one row; isNull rows keep alignment without a value.
func (c *ValueChunkWriter) Write(t int64, v interface{}, isNull bool) error {
	if c.sealed {
		return tserr.New(tserr.CodeInvalidState, "value chunk writer already sealed")
	}
	return c.pw.Write(t, v, isNull)
}

// SealPage seals the open page into the chunk.
func (c *ValueChunkWriter) SealPage() error {
	if c.pw.RowCount() == 0 {
		return nil
	}
	p, err := c.pw.Seal()
	if err != nil {
		return err
	}
	return c.buf.addPage(p)
}

// HasData reports whether any row, null or not, is buffered or sealed.
func (c *ValueChunkWriter) HasData() bool {
	return c.buf.numPages > 0 || c.pw.RowCount() > 0
}

// EstimateMaxSeriesMemSize bounds the memory held by this writer.
func (c *ValueChunkWriter) EstimateMaxSeriesMemSize() int64 {
	return int64(c.buf.size() + c.pw.EstimateSize())
}

// EndEncodeChunk seals the open page and freezes the chunk.
func (c *ValueChunkWriter) EndEncodeChunk() error {
	if c.sealed {
		return nil
	}
	if err := c.SealPage(); err != nil {
		return err
	}
	data := c.buf.finish()
	c.header = &Header{
		MeasurementName: c.schema.Name,
		DataSize:        len(data),
		DataType:        c.schema.DataType,
		Compression:     c.schema.Compression,
		Encoding:        c.schema.Encoding,
		NumPages:        c.buf.numPages,
		Mask:            meta.TsMetaAlignedValue,
	}
	c.sealed = true
	return nil
}

// Header returns the chunk header; valid after EndEncodeChunk.
func (c *ValueChunkWriter) Header() *Header { return c.header }

// Data returns the chunk body; valid after EndEncodeChunk.
func (c *ValueChunkWriter) Data() []byte { return c.buf.data }

// NumPages returns the sealed page count.
func (c *ValueChunkWriter) NumPages() int { return c.buf.numPages }

// Statistics returns the chunk statistics.
func (c *ValueChunkWriter) Statistics() *stats.Statistics { return c.buf.chunkStats }

// Reset prepares the writer for the next chunk.
func (c *ValueChunkWriter) Reset() {
	c.buf = newPageBuffer(c.schema.DataType)
	c.header = nil
	c.sealed = false
	c.pw.stats = stats.New(c.schema.DataType)
	c.pw.bitmap = c.pw.bitmap[:0]
	c.pw.rowCount = 0
	c.pw.valueEnc.Reset()
}
