package write

import (
	"sort"

	"github.com/soltixdb/tsfile/internal/chunk"
	"github.com/soltixdb/tsfile/internal/config"
	"github.com/soltixdb/tsfile/internal/logging"
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/tserr"
)

const initialRecordsForMemCheck = 100

// deviceGroup holds the open chunk writers of one device. A device is
// either aligned (one time chunk plus value chunks) or unaligned (one
// chunk per measurement); the mode is fixed on first registration.
type deviceGroup struct {
	device  model.DeviceID
	aligned bool

	schemas map[string]model.MeasurementSchema
	// unaligned
	writers map[string]*chunk.ChunkWriter
	// aligned
	timeWriter   *chunk.TimeChunkWriter
	valueWriters map[string]*chunk.ValueChunkWriter
}

func (g *deviceGroup) measurementNames() []string {
	names := make([]string, 0, len(g.schemas))
	for name := range g.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *deviceGroup) hasData() bool {
	if g.aligned {
		if g.timeWriter != nil && g.timeWriter.HasData() {
			return true
		}
		return false
	}
	for _, w := range g.writers {
		if w.HasData() {
			return true
		}
	}
	return false
}

func (g *deviceGroup) memSize() int64 {
	var total int64
	if g.aligned {
		if g.timeWriter != nil {
			total += g.timeWriter.EstimateMaxSeriesMemSize()
		}
		for _, w := range g.valueWriters {
			total += w.EstimateMaxSeriesMemSize()
		}
		return total
	}
	for _, w := range g.writers {
		total += w.EstimateMaxSeriesMemSize()
	}
	return total
}

// Writer is the single-producer file writer: schema registration, row and
// tablet ingestion, memory-threshold flushing, and final index emission.
// It is not safe for concurrent use.
type Writer struct {
	io  *IOWriter
	cfg *config.Config
	log *logging.Logger

	tables     map[string]*model.TableSchema
	groups     map[string]*deviceGroup
	properties map[string]string

	timeEncoding    model.Encoding
	timeCompression model.Compression

	recordsSinceFlush          int64
	recordCountForNextMemCheck int64
	closed                     bool
}

// NewWriter creates a TsFile at path.
func NewWriter(path string, cfg *config.Config, log *logging.Logger) (*Writer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, tserr.Wrap(tserr.CodeInvalidArg, err, "writer config")
	}
	if log == nil {
		log = logging.Global()
	}
	te, err := cfg.TimeEncoding()
	if err != nil {
		return nil, tserr.Wrap(tserr.CodeInvalidArg, err, "writer config")
	}
	tc, err := cfg.TimeCompression()
	if err != nil {
		return nil, tserr.Wrap(tserr.CodeInvalidArg, err, "writer config")
	}
	io, err := NewIOWriter(path, log)
	if err != nil {
		return nil, err
	}
	return &Writer{
		io:                         io,
		cfg:                        cfg,
		log:                        log.WithStr("file", path),
		tables:                     make(map[string]*model.TableSchema),
		groups:                     make(map[string]*deviceGroup),
		timeEncoding:               te,
		timeCompression:            tc,
		recordCountForNextMemCheck: initialRecordsForMemCheck,
	}, nil
}

// SetProperty attaches a free-form key/value pair to the footer.
func (w *Writer) SetProperty(key, value string) {
	if w.properties == nil {
		w.properties = make(map[string]string)
	}
	w.properties[key] = value
}

// RegisterTable registers a table schema. Duplicate names are an error.
func (w *Writer) RegisterTable(schema *model.TableSchema) error {
	if w.closed {
		return tserr.New(tserr.CodeInvalidState, "writer closed")
	}
	if schema == nil || schema.TableName == "" {
		return tserr.New(tserr.CodeInvalidArg, "table schema missing name")
	}
	if _, dup := w.tables[schema.TableName]; dup {
		return tserr.New(tserr.CodeAlreadyExists, "table %q", schema.TableName)
	}
	seen := make(map[string]struct{}, len(schema.Columns))
	for _, c := range schema.Columns {
		if _, dup := seen[c.Name]; dup {
			return tserr.New(tserr.CodeInvalidArg, "duplicate column %q in table %q", c.Name, schema.TableName)
		}
		seen[c.Name] = struct{}{}
	}
	w.tables[schema.TableName] = schema
	return nil
}

// RegisterTimeseries registers one unaligned series under a device.
func (w *Writer) RegisterTimeseries(device model.DeviceID, ms model.MeasurementSchema) error {
	if w.closed {
		return tserr.New(tserr.CodeInvalidState, "writer closed")
	}
	if device.IsEmpty() || ms.Name == "" {
		return tserr.New(tserr.CodeInvalidArg, "empty device or measurement name")
	}
	g, err := w.groupFor(device, false)
	if err != nil {
		return err
	}
	if _, dup := g.schemas[ms.Name]; dup {
		return tserr.New(tserr.CodeAlreadyExists, "series %s.%s", device, ms.Name)
	}
	cw, err := chunk.NewChunkWriter(ms, &w.cfg.Write, w.timeEncoding)
	if err != nil {
		return err
	}
	g.schemas[ms.Name] = ms
	g.writers[ms.Name] = cw
	return nil
}

// RegisterAlignedTimeseries registers the value columns of an aligned
// device. Within one device the aligned mode is fixed on first
// registration.
func (w *Writer) RegisterAlignedTimeseries(device model.DeviceID, schemas []model.MeasurementSchema) error {
	if w.closed {
		return tserr.New(tserr.CodeInvalidState, "writer closed")
	}
	if device.IsEmpty() || len(schemas) == 0 {
		return tserr.New(tserr.CodeInvalidArg, "empty device or schema list")
	}
	g, err := w.groupFor(device, true)
	if err != nil {
		return err
	}
	if g.timeWriter.HasData() {
		return tserr.New(tserr.CodeInvalidArg,
			"device %s already holds rows; aligned columns are fixed before the first write", device)
	}
	for _, ms := range schemas {
		if _, dup := g.schemas[ms.Name]; dup {
			return tserr.New(tserr.CodeAlreadyExists, "series %s.%s", device, ms.Name)
		}
		vw, err := chunk.NewValueChunkWriter(ms)
		if err != nil {
			return err
		}
		g.schemas[ms.Name] = ms
		g.valueWriters[ms.Name] = vw
	}
	return nil
}

func (w *Writer) groupFor(device model.DeviceID, aligned bool) (*deviceGroup, error) {
	key := device.Key()
	if g, ok := w.groups[key]; ok {
		if g.aligned != aligned {
			return nil, tserr.New(tserr.CodeInvalidArg,
				"device %s is registered as aligned=%v", device, g.aligned)
		}
		return g, nil
	}
	g := &deviceGroup{
		device:  device,
		aligned: aligned,
		schemas: make(map[string]model.MeasurementSchema),
	}
	if aligned {
		tw, err := chunk.NewTimeChunkWriter(&w.cfg.Write, w.timeEncoding, w.timeCompression)
		if err != nil {
			return nil, err
		}
		g.timeWriter = tw
		g.valueWriters = make(map[string]*chunk.ValueChunkWriter)
	} else {
		g.writers = make(map[string]*chunk.ChunkWriter)
	}
	w.groups[key] = g
	return g, nil
}

// WriteRecord appends one row. Unknown measurements and per-point type
// mismatches are skipped, not fatal. Type mismatches are logged; unknown
// measurements are logged on the unaligned path only.
func (w *Writer) WriteRecord(rec *model.TsRecord) error {
	if w.closed {
		return tserr.New(tserr.CodeInvalidState, "writer closed")
	}
	g, ok := w.groups[rec.Device.Key()]
	if !ok {
		return tserr.New(tserr.CodeDeviceNotExist, "device %s", rec.Device)
	}
	if g.aligned {
		if err := w.writeRecordAligned(g, rec); err != nil {
			return err
		}
	} else {
		for _, p := range rec.Points {
			cw, ok := g.writers[p.Measurement]
			if !ok {
				w.log.Warn().Str("device", rec.Device.String()).
					Str("measurement", p.Measurement).Msg("unknown measurement, point dropped")
				continue
			}
			if err := cw.Write(rec.Timestamp, p.Value); err != nil {
				if tserr.CodeOf(err) == tserr.CodeInvalidDataPoint {
					w.log.Warn().Err(err).Str("measurement", p.Measurement).Msg("point dropped")
					continue
				}
				return err
			}
		}
	}
	w.recordsSinceFlush++
	return w.checkMemAndMayFlush()
}

// writeRecordAligned writes the shared time plus one row per registered
// value column; columns absent from the record get a null row.
func (w *Writer) writeRecordAligned(g *deviceGroup, rec *model.TsRecord) error {
	if err := g.timeWriter.Write(rec.Timestamp); err != nil {
		return err
	}
	byName := make(map[string]*model.DataPoint, len(rec.Points))
	for i := range rec.Points {
		byName[rec.Points[i].Measurement] = &rec.Points[i]
	}
	for name, vw := range g.valueWriters {
		p, ok := byName[name]
		if !ok || p.IsNull {
			if err := vw.Write(rec.Timestamp, nil, true); err != nil {
				return err
			}
			continue
		}
		if err := vw.Write(rec.Timestamp, p.Value, false); err != nil {
			if tserr.CodeOf(err) == tserr.CodeInvalidDataPoint {
				w.log.Warn().Err(err).Str("measurement", name).Msg("point dropped, null row kept")
				if err := vw.Write(rec.Timestamp, nil, true); err != nil {
					return err
				}
				continue
			}
			return err
		}
	}
	return w.maySealAlignedPage(g)
}

// maySealAlignedPage seals one page across the whole group so row
// boundaries match between the time chunk and every value chunk.
func (w *Writer) maySealAlignedPage(g *deviceGroup) error {
	if !g.timeWriter.PageFull() {
		return nil
	}
	if err := g.timeWriter.SealPage(); err != nil {
		return err
	}
	for _, vw := range g.valueWriters {
		if err := vw.SealPage(); err != nil {
			return err
		}
	}
	return nil
}

// WriteTablet appends a columnar batch for one registered device.
func (w *Writer) WriteTablet(t *model.Tablet) error {
	if w.closed {
		return tserr.New(tserr.CodeInvalidState, "writer closed")
	}
	device := model.NewDeviceID(t.TargetName)
	g, ok := w.groups[device.Key()]
	if !ok {
		return tserr.New(tserr.CodeDeviceNotExist, "device %s", device)
	}
	var err error
	if g.aligned {
		err = w.writeTabletAligned(g, t, 0, t.RowCount())
	} else {
		err = w.writeTabletUnaligned(g, t, 0, t.RowCount())
	}
	if err != nil {
		return err
	}
	w.recordsSinceFlush += int64(t.RowCount())
	return w.checkMemAndMayFlush()
}

func (w *Writer) writeTabletUnaligned(g *deviceGroup, t *model.Tablet, start, stop int) error {
	times := t.Timestamps()
	for col, cs := range t.Columns {
		if cs.Category != model.CategoryField {
			continue
		}
		cw, ok := g.writers[cs.Name]
		if !ok {
			w.log.Warn().Str("device", g.device.String()).
				Str("measurement", cs.Name).Msg("unknown measurement, column dropped")
			continue
		}
		values := t.ColumnValuesAt(col)
		for row := start; row < stop; row++ {
			if t.IsNull(row, col) {
				continue
			}
			if err := cw.Write(times[row], values.Get(row)); err != nil {
				if tserr.CodeOf(err) == tserr.CodeInvalidDataPoint {
					w.log.Warn().Err(err).Str("measurement", cs.Name).Msg("point dropped")
					continue
				}
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeTabletAligned(g *deviceGroup, t *model.Tablet, start, stop int) error {
	times := t.Timestamps()
	colFor := make(map[string]int, len(t.Columns))
	for col, cs := range t.Columns {
		if cs.Category == model.CategoryField {
			colFor[cs.Name] = col
		}
	}
	for row := start; row < stop; row++ {
		if err := g.timeWriter.Write(times[row]); err != nil {
			return err
		}
		for name, vw := range g.valueWriters {
			col, ok := colFor[name]
			if !ok || t.IsNull(row, col) {
				if err := vw.Write(times[row], nil, true); err != nil {
					return err
				}
				continue
			}
			if err := vw.Write(times[row], t.ColumnValuesAt(col).Get(row), false); err != nil {
				if tserr.CodeOf(err) == tserr.CodeInvalidDataPoint {
					w.log.Warn().Err(err).Str("measurement", name).Msg("point dropped, null row kept")
					if err := vw.Write(times[row], nil, true); err != nil {
						return err
					}
					continue
				}
				return err
			}
		}
		if err := w.maySealAlignedPage(g); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable appends a columnar batch spanning multiple devices of one
// table. Rows are split into contiguous same-device runs derived from the
// TAG columns.
func (w *Writer) WriteTable(t *model.Tablet) error {
	if w.closed {
		return tserr.New(tserr.CodeInvalidState, "writer closed")
	}
	schema, ok := w.tables[t.TargetName]
	if !ok {
		return tserr.New(tserr.CodeTableNotExist, "table %q", t.TargetName)
	}
	for _, c := range t.Columns {
		if schema.ColumnIndex(c.Name) < 0 {
			return tserr.New(tserr.CodeColumnNotExist, "column %q of table %q", c.Name, t.TargetName)
		}
	}

	rows := t.RowCount()
	start := 0
	for start < rows {
		device, err := t.DeviceIDAt(start)
		if err != nil {
			return err
		}
		stop := start + 1
		for stop < rows {
			next, err := t.DeviceIDAt(stop)
			if err != nil {
				return err
			}
			if !next.Equal(device) {
				break
			}
			stop++
		}
		g, err := w.tableGroupFor(device, schema)
		if err != nil {
			return err
		}
		if err := w.writeTabletAligned(g, t, start, stop); err != nil {
			return err
		}
		start = stop
	}
	w.recordsSinceFlush += int64(rows)
	return w.checkMemAndMayFlush()
}

// tableGroupFor lazily creates the aligned device group of a table-model
// device from the table's FIELD columns.
func (w *Writer) tableGroupFor(device model.DeviceID, schema *model.TableSchema) (*deviceGroup, error) {
	if g, ok := w.groups[device.Key()]; ok {
		return g, nil
	}
	g, err := w.groupFor(device, true)
	if err != nil {
		return nil, err
	}
	for _, c := range schema.FieldColumns() {
		vw, err := chunk.NewValueChunkWriter(c.MeasurementSchema)
		if err != nil {
			return nil, err
		}
		g.schemas[c.Name] = c.MeasurementSchema
		g.valueWriters[c.Name] = vw
	}
	return g, nil
}

// checkMemAndMayFlush extrapolates how many records fit the threshold and
// flushes when the open chunks outgrow it.
func (w *Writer) checkMemAndMayFlush() error {
	if w.recordsSinceFlush < w.recordCountForNextMemCheck {
		return nil
	}
	var memSize int64
	for _, g := range w.groups {
		memSize += g.memSize()
	}
	if memSize <= 0 {
		memSize = 1
	}
	w.recordCountForNextMemCheck = w.recordsSinceFlush *
		w.cfg.Write.ChunkGroupSizeThreshold / memSize
	if w.recordCountForNextMemCheck < 1 {
		w.recordCountForNextMemCheck = 1
	}
	if memSize > w.cfg.Write.ChunkGroupSizeThreshold {
		return w.Flush()
	}
	return nil
}

// Flush writes every open chunk group in device-id order. A flush with no
// pending data is a no-op.
func (w *Writer) Flush() error {
	if w.closed {
		return tserr.New(tserr.CodeInvalidState, "writer closed")
	}
	if err := w.io.StartFile(); err != nil {
		return err
	}

	keys := make([]string, 0, len(w.groups))
	for k := range w.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		g := w.groups[key]
		if !g.hasData() {
			continue
		}
		if err := w.flushGroup(g); err != nil {
			return err
		}
	}
	w.recordsSinceFlush = 0
	return nil
}

func (w *Writer) flushGroup(g *deviceGroup) error {
	if err := w.io.StartChunkGroup(g.device); err != nil {
		return err
	}
	chunkCount := 0
	if g.aligned {
		if err := g.timeWriter.EndEncodeChunk(); err != nil {
			return err
		}
		h := g.timeWriter.Header()
		cm := &meta.ChunkMeta{
			MeasurementName: h.MeasurementName,
			DataType:        h.DataType,
			Encoding:        h.Encoding,
			Compression:     h.Compression,
			Mask:            h.Mask,
			Statistics:      g.timeWriter.Statistics(),
		}
		if err := w.io.WriteChunk(h, g.timeWriter.Data(), cm); err != nil {
			return err
		}
		g.timeWriter.Reset()
		chunkCount++
		for _, name := range g.measurementNames() {
			vw := g.valueWriters[name]
			if !vw.HasData() {
				continue
			}
			if err := vw.EndEncodeChunk(); err != nil {
				return err
			}
			h := vw.Header()
			cm := &meta.ChunkMeta{
				MeasurementName: h.MeasurementName,
				DataType:        h.DataType,
				Encoding:        h.Encoding,
				Compression:     h.Compression,
				Mask:            h.Mask,
				Statistics:      vw.Statistics(),
			}
			if err := w.io.WriteChunk(h, vw.Data(), cm); err != nil {
				return err
			}
			vw.Reset()
			chunkCount++
		}
	} else {
		for _, name := range g.measurementNames() {
			cw := g.writers[name]
			if !cw.HasData() {
				continue
			}
			if err := cw.EndEncodeChunk(); err != nil {
				return err
			}
			h := cw.Header()
			cm := &meta.ChunkMeta{
				MeasurementName: h.MeasurementName,
				DataType:        h.DataType,
				Encoding:        h.Encoding,
				Compression:     h.Compression,
				Mask:            h.Mask,
				Statistics:      cw.Statistics(),
			}
			if err := w.io.WriteChunk(h, cw.Data(), cm); err != nil {
				return err
			}
			cw.Reset()
			chunkCount++
		}
	}
	w.io.EndChunkGroup()
	w.log.Debug().Str("device", g.device.String()).Int("chunks", chunkCount).Msg("chunk group flushed")
	return nil
}

// Close flushes pending data, writes indices and footer, and closes the
// file. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.io.EndFile(w.tables, w.properties, &w.cfg.Write); err != nil {
		return err
	}
	w.closed = true
	w.log.Info().Int64("bytes", w.io.Pos()).Msg("tsfile closed")
	return nil
}
