package read

import (
	"errors"

	"github.com/soltixdb/tsfile/internal/config"
	"github.com/soltixdb/tsfile/internal/logging"
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/read/filter"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// IsNoMoreData reports whether err is the end-of-stream sentinel.
func IsNoMoreData(err error) bool {
	return errors.Is(err, tserr.NoMoreData)
}

// ScanOrder selects how a table scan orders its output blocks.
type ScanOrder int

const (
	// DeviceOrder emits blocks device-major, time-minor.
	DeviceOrder ScanOrder = iota
	// TimeOrder is reserved; requesting it fails with UNSUPPORTED_ORDER.
	TimeOrder
)

// DefaultBlockRows bounds rows per materialized block.
const DefaultBlockRows = 4096

// Reader is the query surface over one sealed file. Not safe for
// concurrent use; separate readers on separate files are independent.
type Reader struct {
	io      *IOReader
	cfg     *config.Config
	timeEnc model.Encoding
	log     *logging.Logger
}

// Open opens a sealed TsFile. cache may be nil or shared across readers.
func Open(path string, cfg *config.Config, log *logging.Logger, cache *ChunkCache) (*Reader, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.Global()
	}
	te, err := cfg.TimeEncoding()
	if err != nil {
		return nil, tserr.Wrap(tserr.CodeInvalidArg, err, "reader config")
	}
	io, err := OpenIOReader(path, log, cache)
	if err != nil {
		return nil, err
	}
	return &Reader{io: io, cfg: cfg, timeEnc: te, log: log}, nil
}

// IO exposes the underlying IOReader.
func (r *Reader) IO() *IOReader { return r.io }

// FileMeta returns the parsed footer.
func (r *Reader) FileMeta() (*meta.TsFileMeta, error) { return r.io.FileMeta() }

// MightContain consults the bloom filter for a series.
func (r *Reader) MightContain(device model.DeviceID, measurement string) (bool, error) {
	return r.io.MightContain(device, measurement)
}

// QuerySeries materializes rows of selected measurements of one device.
func (r *Reader) QuerySeries(device model.DeviceID, measurements []string,
	tf filter.TimeFilter) (*SingleDeviceReader, error) {
	if r.io.Closed() {
		return nil, tserr.New(tserr.CodeInvalidState, "reader closed")
	}
	return NewSingleDeviceReader(r.io, device, nil, measurements, tf, nil, r.timeEnc)
}

// QueryTable scans a table's devices in order, materializing the
// requested TAG and FIELD columns.
func (r *Reader) QueryTable(table string, columns []string, tf filter.TimeFilter,
	df filter.DeviceFilter, vfs map[string]ValueFilter, order ScanOrder) (*TableResultSet, error) {
	if r.io.Closed() {
		return nil, tserr.New(tserr.CodeInvalidState, "reader closed")
	}
	if order != DeviceOrder {
		return nil, tserr.New(tserr.CodeUnsupportedOrder, "time-major table scans are not supported")
	}
	fm, err := r.io.FileMeta()
	if err != nil {
		return nil, err
	}
	schema, ok := fm.TableSchemas[table]
	if !ok {
		return nil, tserr.New(tserr.CodeTableNotExist, "table %q", table)
	}

	// classify requested columns; tagPos maps a TAG column to its
	// position among the schema's TAG columns, hence its id segment
	tagPos := make(map[string]int)
	pos := 0
	for _, c := range schema.Columns {
		if c.Category == model.CategoryTag {
			tagPos[c.Name] = pos
			pos++
		}
	}
	var tagCols []requestedTag
	var fieldCols []string
	for _, name := range columns {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			return nil, tserr.New(tserr.CodeColumnNotExist, "column %q of table %q", name, table)
		}
		if schema.Columns[idx].Category == model.CategoryTag {
			tagCols = append(tagCols, requestedTag{name: name, segment: tagPos[name]})
		} else {
			fieldCols = append(fieldCols, name)
		}
	}

	devices, err := NewDeviceTaskIterator(r.io, table, df)
	if err != nil {
		return nil, err
	}
	return &TableResultSet{
		reader:  r,
		devices: devices,
		tagCols: tagCols,
		fields:  fieldCols,
		tf:      tf,
		vfs:     vfs,
		maxRows: DefaultBlockRows,
	}, nil
}

// Close releases the file. Open result sets become invalid; their
// operations fail with INVALID_STATE.
func (r *Reader) Close() error {
	return r.io.Close()
}

type requestedTag struct {
	name    string
	segment int
}

// TableResultSet streams blocks of a device-ordered table scan. It holds
// a back-link to its reader; once the reader closes, every operation
// fails with INVALID_STATE.
type TableResultSet struct {
	reader  *Reader
	devices *DeviceTaskIterator
	tagCols []requestedTag
	fields  []string
	tf      filter.TimeFilter
	vfs     map[string]ValueFilter
	maxRows int

	cur    *SingleDeviceReader
	closed bool
}

// SetBlockRows overrides the per-block row bound.
func (rs *TableResultSet) SetBlockRows(n int) {
	if n > 0 {
		rs.maxRows = n
	}
}

// Next returns the next non-empty block, or NO_MORE_DATA after the last
// device is exhausted.
func (rs *TableResultSet) Next() (*model.TsBlock, error) {
	if rs.closed {
		return nil, tserr.New(tserr.CodeInvalidState, "result set closed")
	}
	if rs.reader.io.Closed() {
		return nil, tserr.New(tserr.CodeInvalidState, "reader closed under result set")
	}
	for {
		if rs.cur == nil {
			device, err := rs.devices.Next()
			if err != nil {
				return nil, err // NO_MORE_DATA passes through
			}
			tags := make([]TagColumn, 0, len(rs.tagCols))
			segments := device.TagValues()
			for _, tc := range rs.tagCols {
				value := ""
				if tc.segment < len(segments) {
					value = segments[tc.segment]
				}
				tags = append(tags, TagColumn{Name: tc.name, Value: value})
			}
			sdr, err := NewSingleDeviceReader(rs.reader.io, device, tags, rs.fields,
				rs.tf, rs.vfs, rs.reader.timeEnc)
			if err != nil {
				return nil, err
			}
			rs.cur = sdr
		}
		if !rs.cur.HasNext() {
			rs.cur.Close()
			rs.cur = nil
			continue
		}
		block, err := rs.cur.NextBlock(rs.maxRows)
		if err != nil {
			return nil, err
		}
		if block.RowCount() == 0 {
			rs.cur.Close()
			rs.cur = nil
			continue
		}
		return block, nil
	}
}

// Close releases the scan. Closing twice is a no-op.
func (rs *TableResultSet) Close() {
	if rs.closed {
		return
	}
	rs.closed = true
	if rs.cur != nil {
		rs.cur.Close()
		rs.cur = nil
	}
}
