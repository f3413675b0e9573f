package chunk

import (
	"github.com/soltixdb/tsfile/internal/config"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/stats"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// pageBuffer accumulates sealed pages of one chunk and implements the
// single-page-elides-stats rule as a two-state machine: the first sealed
// page is staged; its statistics prefix is committed only once a second
// page arrives. A chunk that ends with the page still staged emits it
// without statistics, and the chunk marker says single-page.
type pageBuffer struct {
	data       []byte
	staged     *SealedPage
	numPages   int
	chunkStats *stats.Statistics
}

func newPageBuffer(dt model.DataType) *pageBuffer {
	return &pageBuffer{chunkStats: stats.New(dt)}
}

func (b *pageBuffer) appendPage(p *SealedPage, withStats bool) {
	b.data = serialize.AppendUvarint(b.data, uint64(p.UncompressedSize))
	b.data = serialize.AppendUvarint(b.data, uint64(len(p.Body)))
	if withStats {
		b.data = p.Statistics.Serialize(b.data)
	}
	b.data = append(b.data, p.Body...)
}

// addPage folds a sealed page into the chunk.
func (b *pageBuffer) addPage(p SealedPage) error {
	if err := b.chunkStats.Merge(p.Statistics); err != nil {
		return err
	}
	switch b.numPages {
	case 0:
		b.staged = &p
	case 1:
		// a second page arrived: the staged first page gets its
		// statistics after all
		b.appendPage(b.staged, true)
		b.staged = nil
		b.appendPage(&p, true)
	default:
		b.appendPage(&p, true)
	}
	b.numPages++
	return nil
}

// finish commits a still-staged single page without statistics and
// returns the chunk body.
func (b *pageBuffer) finish() []byte {
	if b.numPages == 1 && b.staged != nil {
		b.appendPage(b.staged, false)
		b.staged = nil
	}
	return b.data
}

func (b *pageBuffer) size() int {
	n := len(b.data)
	if b.staged != nil {
		n += len(b.staged.Body) + b.staged.Statistics.SerializedSize() + 10
	}
	return n
}

// ChunkWriter buffers one unaligned series: a page writer plus the sealed
// pages of the open chunk.
type ChunkWriter struct {
	schema model.MeasurementSchema
	cfg    *config.WriteConfig

	pw     *PageWriter
	buf    *pageBuffer
	header *Header
	sealed bool
}

// NewChunkWriter creates a writer for one measurement.
func NewChunkWriter(schema model.MeasurementSchema, cfg *config.WriteConfig,
	timeEnc model.Encoding) (*ChunkWriter, error) {
	pw, err := NewPageWriter(schema.DataType, timeEnc, schema.Encoding, schema.Compression)
	if err != nil {
		return nil, err
	}
	return &ChunkWriter{
		schema: schema,
		cfg:    cfg,
		pw:     pw,
		buf:    newPageBuffer(schema.DataType),
	}, nil
}

// Write appends one point and seals the open page when it is full.
func (c *ChunkWriter) Write(t int64, v interface{}) error {
	if c.sealed {
		return tserr.New(tserr.CodeInvalidState, "chunk writer already sealed")
	}
	if err := c.pw.Write(t, v); err != nil {
		return err
	}
	return c.checkPageSeal()
}

func (c *ChunkWriter) checkPageSeal() error {
	if c.pw.PointCount() >= c.cfg.PageMaxPointCount ||
		c.pw.EstimateSize() >= c.cfg.PageMaxMemoryBytes {
		return c.sealPage()
	}
	return nil
}

func (c *ChunkWriter) sealPage() error {
	if c.pw.PointCount() == 0 {
		return nil
	}
	p, err := c.pw.Seal()
	if err != nil {
		return err
	}
	return c.buf.addPage(p)
}

// HasData reports whether the chunk holds any point, sealed or buffered.
func (c *ChunkWriter) HasData() bool {
	return c.buf.numPages > 0 || c.pw.PointCount() > 0
}

// EstimateMaxSeriesMemSize bounds the memory held by this writer.
func (c *ChunkWriter) EstimateMaxSeriesMemSize() int64 {
	return int64(c.buf.size() + c.pw.EstimateSize())
}

// EndEncodeChunk seals the open page and freezes the chunk.
func (c *ChunkWriter) EndEncodeChunk() error {
	if c.sealed {
		return nil
	}
	if err := c.sealPage(); err != nil {
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
	}
	c.sealed = true
	return nil
}

// Header returns the chunk header; valid after EndEncodeChunk.
func (c *ChunkWriter) Header() *Header { return c.header }

// Data returns the chunk body; valid after EndEncodeChunk.
func (c *ChunkWriter) Data() []byte { return c.buf.data }

// NumPages returns the sealed page count.
func (c *ChunkWriter) NumPages() int { return c.buf.numPages }

// Statistics returns the chunk statistics, the merge of its pages'.
func (c *ChunkWriter) Statistics() *stats.Statistics { return c.buf.chunkStats }

// Reset prepares the writer for the next chunk of the same series.
func (c *ChunkWriter) Reset() {
	c.buf = newPageBuffer(c.schema.DataType)
	c.header = nil
	c.sealed = false
	c.pw.Reset()
}
