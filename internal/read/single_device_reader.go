package read

import (
	"errors"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/read/filter"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// colIterator keeps one column's scan position: the current decoded block
// and a cursor into it.
type colIterator struct {
	name      string
	ssi       *SeriesScanIterator
	block     *SeriesBlock
	idx       int
	exhausted bool
}

func newColIterator(name string, ssi *SeriesScanIterator) (*colIterator, error) {
	it := &colIterator{name: name, ssi: ssi}
	if ssi == nil {
		it.exhausted = true
		return it, nil
	}
	if err := it.fetch(); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *colIterator) fetch() error {
	for {
		block, err := it.ssi.NextBlock()
		if err != nil {
			if errors.Is(err, tserr.NoMoreData) {
				it.exhausted = true
				it.block = nil
				return nil
			}
			return err
		}
		if len(block.Times) > 0 {
			it.block = block
			it.idx = 0
			return nil
		}
	}
}

func (it *colIterator) currentTime() int64 { return it.block.Times[it.idx] }

func (it *colIterator) currentValue() interface{} { return it.block.Values.Get(it.idx) }

func (it *colIterator) advance() error {
	it.idx++
	if it.idx >= len(it.block.Times) {
		return it.fetch()
	}
	return nil
}

func (it *colIterator) close() {
	if it.ssi != nil {
		it.ssi.Close()
	}
}

// TagColumn is one requested TAG column with its constant per-device
// value from the device identifier.
type TagColumn struct {
	Name  string
	Value string
}

// ValueFilter drops rows whose decoded value fails the predicate.
type ValueFilter interface {
	SatisfyValue(v interface{}) bool
}

// SingleDeviceReader materializes rows of one device by merging its field
// columns on time. Columns exhaust independently; absent columns
// contribute nulls.
type SingleDeviceReader struct {
	r      *IOReader
	device model.DeviceID
	tags   []TagColumn
	fields []string
	iters  []*colIterator
	vfs    map[string]ValueFilter
	closed bool
}

// NewSingleDeviceReader opens one SSI per requested field column. A field
// with no series in the file contributes only nulls.
func NewSingleDeviceReader(r *IOReader, device model.DeviceID, tags []TagColumn,
	fields []string, tf filter.TimeFilter, vfs map[string]ValueFilter,
	timeEnc model.Encoding) (*SingleDeviceReader, error) {
	sdr := &SingleDeviceReader{
		r:      r,
		device: device,
		tags:   tags,
		fields: fields,
		vfs:    vfs,
	}
	for _, name := range fields {
		ssi, err := NewSeriesScanIterator(r, device, name, tf, timeEnc)
		if err != nil {
			code := tserr.CodeOf(err)
			if code == tserr.CodeNotExist || code == tserr.CodeMeasurementNotExist {
				it, _ := newColIterator(name, nil)
				sdr.iters = append(sdr.iters, it)
				continue
			}
			sdr.Close()
			return nil, err
		}
		it, err := newColIterator(name, ssi)
		if err != nil {
			sdr.Close()
			return nil, err
		}
		sdr.iters = append(sdr.iters, it)
	}
	return sdr, nil
}

// HasNext reports whether any field column still has rows.
func (s *SingleDeviceReader) HasNext() bool {
	if s.closed {
		return false
	}
	for _, it := range s.iters {
		if !it.exhausted {
			return true
		}
	}
	return false
}

// NextBlock materializes up to maxRows rows in time order. Each row takes
// the minimum current time across columns; columns at that time
// contribute their value, the rest null. TAG columns repeat the device's
// tag values.
func (s *SingleDeviceReader) NextBlock(maxRows int) (*model.TsBlock, error) {
	if s.closed {
		return nil, tserr.New(tserr.CodeInvalidState, "single device reader closed")
	}
	cols := make([]*model.BlockColumn, 0, len(s.tags)+len(s.fields))
	for _, tc := range s.tags {
		cols = append(cols, model.NewBlockColumn(tc.Name, model.String))
	}
	fieldCols := make([]*model.BlockColumn, len(s.iters))
	for i, it := range s.iters {
		dt := model.String
		if it.ssi != nil {
			dt = it.ssi.DataType()
		}
		fieldCols[i] = model.NewBlockColumn(it.name, dt)
		cols = append(cols, fieldCols[i])
	}
	block := model.NewTsBlock(cols...)

	for block.RowCount() < maxRows && s.HasNext() {
		// t* = min of current times
		var tMin int64
		first := true
		for _, it := range s.iters {
			if it.exhausted {
				continue
			}
			if first || it.currentTime() < tMin {
				tMin = it.currentTime()
				first = false
			}
		}
		if first {
			break
		}

		// collect the row, then decide whether a value filter drops it
		values := make([]interface{}, len(s.iters))
		has := make([]bool, len(s.iters))
		for i, it := range s.iters {
			if it.exhausted || it.currentTime() != tMin {
				continue
			}
			values[i] = it.currentValue()
			has[i] = true
			if err := it.advance(); err != nil {
				return nil, err
			}
		}
		if s.rowDropped(values, has) {
			continue
		}

		block.AppendTime(tMin)
		for j, tc := range s.tags {
			cols[j].Append(tc.Value)
		}
		for i := range s.iters {
			if has[i] {
				fieldCols[i].Append(values[i])
			} else {
				fieldCols[i].AppendNull()
			}
		}
	}
	return block, nil
}

func (s *SingleDeviceReader) rowDropped(values []interface{}, has []bool) bool {
	if len(s.vfs) == 0 {
		return false
	}
	for i, it := range s.iters {
		vf, ok := s.vfs[it.name]
		if !ok {
			continue
		}
		if !has[i] || !vf.SatisfyValue(values[i]) {
			return true
		}
	}
	return false
}

// Close releases every column iterator.
func (s *SingleDeviceReader) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, it := range s.iters {
		it.close()
	}
}
