package write

import (
	"bufio"
	"os"

	"github.com/soltixdb/tsfile/internal/chunk"
	"github.com/soltixdb/tsfile/internal/config"
	"github.com/soltixdb/tsfile/internal/logging"
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// IOWriter owns the output byte stream: it frames chunk groups and chunks
// as they flush, accumulates their metadata, and emits the metadata
// section plus footer at end of file. All writes go through it, so the
// file position is always known.
type IOWriter struct {
	f   *os.File
	w   *bufio.Writer
	pos int64
	log *logging.Logger

	groups   []*meta.ChunkGroupMeta
	curGroup *meta.ChunkGroupMeta
	started  bool
	finished bool
}

// NewIOWriter creates the output file.
func NewIOWriter(path string, log *logging.Logger) (*IOWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, tserr.Wrap(tserr.CodeFileWriteErr, err, "create %s", path)
	}
	return &IOWriter{f: f, w: bufio.NewWriterSize(f, 1<<16), log: log}, nil
}

// Pos returns the current file position.
func (io *IOWriter) Pos() int64 { return io.pos }

func (io *IOWriter) write(b []byte) error {
	n, err := io.w.Write(b)
	io.pos += int64(n)
	if err != nil {
		return tserr.Wrap(tserr.CodeFileWriteErr, err, "write at %d", io.pos)
	}
	return nil
}

// StartFile writes the leading magic and version byte once.
func (io *IOWriter) StartFile() error {
	if io.started {
		return nil
	}
	io.started = true
	return io.write(append([]byte(meta.MagicString), meta.VersionByte))
}

// StartChunkGroup frames a new chunk group for the device.
func (io *IOWriter) StartChunkGroup(device model.DeviceID) error {
	var buf []byte
	buf = append(buf, meta.ChunkGroupHeaderMarker)
	buf = device.Serialize(buf)
	if err := io.write(buf); err != nil {
		return err
	}
	io.curGroup = &meta.ChunkGroupMeta{Device: device}
	return nil
}

// WriteChunk frames one sealed chunk and records its metadata.
func (io *IOWriter) WriteChunk(h *chunk.Header, data []byte, cm *meta.ChunkMeta) error {
	cm.OffsetOfChunkHeader = io.pos
	if err := io.write(h.Serialize(nil)); err != nil {
		return err
	}
	if err := io.write(data); err != nil {
		return err
	}
	io.curGroup.Chunks = append(io.curGroup.Chunks, cm)
	return nil
}

// EndChunkGroup closes the open chunk group.
func (io *IOWriter) EndChunkGroup() {
	if io.curGroup != nil && len(io.curGroup.Chunks) > 0 {
		io.groups = append(io.groups, io.curGroup)
	}
	io.curGroup = nil
}

// EndFile emits the metadata section, footer, footer size, and trailing
// magic, then syncs and closes the file.
func (io *IOWriter) EndFile(tables map[string]*model.TableSchema,
	properties map[string]string, cfg *config.WriteConfig) error {
	if io.finished {
		return nil
	}
	if err := io.StartFile(); err != nil {
		return err
	}

	metaOffset := io.pos
	builder := newIndexBuilder(cfg.MaxDegreeOfIndexNode)
	it := meta.NewTSMIterator(io.groups)
	type emitted struct {
		device model.DeviceID
		name   string
		offset int64
	}
	var all []emitted
	for it.HasNext() {
		device, ti, err := it.Next()
		if err != nil {
			return err
		}
		offset := io.pos
		if err := io.write(ti.Serialize(nil)); err != nil {
			return err
		}
		all = append(all, emitted{device: device, name: ti.MeasurementName, offset: offset})
	}
	// each index's region ends where the next begins; the last ends where
	// the node section starts
	for i, e := range all {
		end := io.pos
		if i+1 < len(all) {
			end = all[i+1].offset
		}
		builder.addSeries(e.device, e.name, e.offset, end)
	}

	roots, err := builder.build(io)
	if err != nil {
		return err
	}

	var bloom *meta.BloomFilter
	if len(all) > 0 {
		bloom = meta.NewBloomFilter(len(all), cfg.BloomFilterErrorRate)
		for _, e := range all {
			bloom.Add(meta.SeriesKey(e.device.TableName(), e.device, e.name))
		}
	}

	fileMeta := &meta.TsFileMeta{
		TableIndexRoots: roots,
		TableSchemas:    tables,
		MetaOffset:      metaOffset,
		Bloom:           bloom,
		Properties:      properties,
	}
	footer := fileMeta.Serialize(nil)
	if err := io.write(footer); err != nil {
		return err
	}
	var tail []byte
	tail = serialize.AppendU32(tail, uint32(len(footer)))
	tail = append(tail, meta.MagicString...)
	if err := io.write(tail); err != nil {
		return err
	}

	if err := io.w.Flush(); err != nil {
		return tserr.Wrap(tserr.CodeFileWriteErr, err, "flush output")
	}
	if err := io.f.Sync(); err != nil {
		return tserr.Wrap(tserr.CodeFileWriteErr, err, "sync output")
	}
	if err := io.f.Close(); err != nil {
		return tserr.Wrap(tserr.CodeFileWriteErr, err, "close output")
	}
	io.finished = true
	io.log.Debug().Int64("size", io.pos).Int("series", len(all)).Msg("file sealed")
	return nil
}
