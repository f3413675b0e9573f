package chunk

import (
	"github.com/soltixdb/tsfile/internal/compression"
	"github.com/soltixdb/tsfile/internal/config"
	"github.com/soltixdb/tsfile/internal/encoding"
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/stats"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// TimeChunkWriter writes the shared timestamp chunk of an aligned group.
// Its data type is the VECTOR surrogate and its pages hold only the
// encoded time stream.
type TimeChunkWriter struct {
	cfg *config.WriteConfig

	timeEnc    encoding.Encoder
	compressor compression.Compressor
	pageStats  *stats.Statistics
	pointCount int

	encKind  model.Encoding
	compKind model.Compression

	buf    *pageBuffer
	header *Header
	sealed bool
}

// NewTimeChunkWriter uses the configured time encoding and compression.
func NewTimeChunkWriter(cfg *config.WriteConfig, enc model.Encoding,
	comp model.Compression) (*TimeChunkWriter, error) {
	te, err := encoding.GetEncoder(enc, model.Int64)
	if err != nil {
		return nil, err
	}
	c, err := compression.GetCompressor(comp)
	if err != nil {
		return nil, err
	}
	return &TimeChunkWriter{
		cfg:        cfg,
		timeEnc:    te,
		compressor: c,
		pageStats:  stats.New(model.Vector),
		encKind:    enc,
		compKind:   comp,
		buf:        newPageBuffer(model.Vector),
	}, nil
}

// Write appends one timestamp. Page sealing is driven by the owning
// aligned group so time and value pages share row boundaries.
func (c *TimeChunkWriter) Write(t int64) error {
	if c.sealed {
		return tserr.New(tserr.CodeInvalidState, "time chunk writer already sealed")
	}
	c.timeEnc.EncodeInt64(t)
	c.pageStats.UpdateTime(t)
	c.pointCount++
	return nil
}

// PageFull reports whether the group should seal the current page row.
func (c *TimeChunkWriter) PageFull() bool {
	return c.pointCount >= c.cfg.PageMaxPointCount ||
		c.timeEnc.Size()+16 >= c.cfg.PageMaxMemoryBytes
}

// PagePointCount returns the open page's row count.
func (c *TimeChunkWriter) PagePointCount() int { return c.pointCount }

// SealPage seals the open page into the chunk.
func (c *TimeChunkWriter) SealPage() error { return c.sealPage() }

func (c *TimeChunkWriter) sealPage() error {
	if c.pointCount == 0 {
		return nil
	}
	body := c.timeEnc.Flush(nil)
	compressed, err := c.compressor.Compress(body)
	if err != nil {
		return tserr.Wrap(tserr.CodeFileWriteErr, err, "compress time page")
	}
	p := SealedPage{
		UncompressedSize: len(body),
		Body:             compressed,
		Statistics:       c.pageStats,
	}
	c.pageStats = stats.New(model.Vector)
	c.pointCount = 0
	return c.buf.addPage(p)
}

// HasData reports whether any timestamp is buffered or sealed.
func (c *TimeChunkWriter) HasData() bool {
	return c.buf.numPages > 0 || c.pointCount > 0
}

// EstimateMaxSeriesMemSize bounds the memory held by this writer.
func (c *TimeChunkWriter) EstimateMaxSeriesMemSize() int64 {
	return int64(c.buf.size() + c.timeEnc.Size() + 16)
}

// EndEncodeChunk seals the open page and freezes the chunk.
func (c *TimeChunkWriter) EndEncodeChunk() error {
	if c.sealed {
		return nil
	}
	if err := c.sealPage(); err != nil {
		return err
	}
	data := c.buf.finish()
	c.header = &Header{
		MeasurementName: "",
		DataSize:        len(data),
		DataType:        model.Vector,
		Compression:     c.compKind,
		Encoding:        c.encKind,
		NumPages:        c.buf.numPages,
		Mask:            meta.TsMetaAlignedTime,
	}
	c.sealed = true
	return nil
}

// Header returns the chunk header; valid after EndEncodeChunk.
func (c *TimeChunkWriter) Header() *Header { return c.header }

// Data returns the chunk body; valid after EndEncodeChunk.
func (c *TimeChunkWriter) Data() []byte { return c.buf.data }

// NumPages returns the sealed page count.
func (c *TimeChunkWriter) NumPages() int { return c.buf.numPages }

// Statistics returns the chunk statistics.
func (c *TimeChunkWriter) Statistics() *stats.Statistics { return c.buf.chunkStats }

// RowCount returns the number of timestamps written to the open chunk.
func (c *TimeChunkWriter) RowCount() int64 {
	return c.buf.chunkStats.Count + int64(c.pointCount)
}

// Reset prepares the writer for the next chunk.
func (c *TimeChunkWriter) Reset() {
	c.buf = newPageBuffer(model.Vector)
	c.header = nil
	c.sealed = false
	c.timeEnc.Reset()
	c.pageStats = stats.New(model.Vector)
	c.pointCount = 0
}
