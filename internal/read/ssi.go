package read

import (
	"github.com/soltixdb/tsfile/internal/chunk"
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/read/filter"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// ssiState tracks the scan position of a SeriesScanIterator.
type ssiState int

const (
	ssiReady ssiState = iota
	ssiChunkOpen
	ssiPageOpen
	ssiExhausted
	ssiClosed
)

// SeriesBlock is one decoded page worth of a series: parallel times and
// values. Values never hold nulls here; null rows of aligned groups are
// omitted from the series stream.
type SeriesBlock struct {
	Times  []int64
	Values *model.BlockColumn
}

// SeriesScanIterator streams one series chunk by chunk, page by page,
// pruning chunks and pages whose statistics fail the time filter.
//
//	Ready -loadNextChunk-> ChunkOpen | Exhausted
//	ChunkOpen -nextPage-> PageOpen | Ready
//	PageOpen -NextBlock-> PageOpen | ChunkOpen
type SeriesScanIterator struct {
	r          *IOReader
	device     model.DeviceID
	name       string
	timeFilter filter.TimeFilter
	timeEnc    model.Encoding

	tsIndex  *meta.TimeseriesIndex
	aligned  *meta.AlignedTimeseriesIndex
	state    ssiState
	chunkIdx int

	// open chunk
	curHeader *chunk.Header
	curPages  []pageSlice
	// open aligned value chunk
	curValueHeader *chunk.Header
	curValuePages  []pageSlice
	pageIdx        int
}

// NewSeriesScanIterator locates the series and positions before its first
// chunk. A NOT_EXIST from index descent passes through unchanged.
func NewSeriesScanIterator(r *IOReader, device model.DeviceID, name string,
	tf filter.TimeFilter, timeEnc model.Encoding) (*SeriesScanIterator, error) {
	ti, aligned, err := r.LoadTimeseriesIndex(device, name)
	if err != nil {
		return nil, err
	}
	ssi := &SeriesScanIterator{
		r:          r,
		device:     device,
		name:       name,
		timeFilter: tf,
		timeEnc:    timeEnc,
		tsIndex:    ti,
		aligned:    aligned,
		state:      ssiReady,
	}
	if tf != nil && !tf.SatisfyRange(ssi.valueIndex().Statistics) {
		ssi.state = ssiExhausted
	}
	return ssi, nil
}

// DataType returns the series value type.
func (s *SeriesScanIterator) DataType() model.DataType {
	if s.aligned != nil {
		return s.aligned.Value.DataType
	}
	return s.tsIndex.DataType
}

func (s *SeriesScanIterator) valueIndex() *meta.TimeseriesIndex {
	if s.aligned != nil {
		return s.aligned.Value
	}
	return s.tsIndex
}

// Close releases the iterator. Further calls fail with INVALID_STATE.
func (s *SeriesScanIterator) Close() {
	s.state = ssiClosed
	s.curPages = nil
	s.curValuePages = nil
}

// loadNextChunk opens the next chunk whose statistics pass the filter.
func (s *SeriesScanIterator) loadNextChunk() error {
	vi := s.valueIndex()
	for s.chunkIdx < len(vi.ChunkMetas) {
		idx := s.chunkIdx
		s.chunkIdx++
		if s.timeFilter != nil && !s.timeFilter.SatisfyRange(vi.ChunkStatistics(idx)) {
			continue
		}
		if s.aligned != nil {
			if idx >= len(s.aligned.Time.ChunkMetas) {
				return tserr.New(tserr.CodeCorrupted,
					"aligned series %s.%s has %d value chunks but %d time chunks",
					s.device, s.name, len(vi.ChunkMetas), len(s.aligned.Time.ChunkMetas))
			}
			th, tp, err := s.openChunkAt(s.aligned.Time.ChunkMetas[idx].Offset)
			if err != nil {
				return err
			}
			vh, vp, err := s.openChunkAt(vi.ChunkMetas[idx].Offset)
			if err != nil {
				return err
			}
			s.curHeader, s.curPages = th, tp
			s.curValueHeader, s.curValuePages = vh, vp
		} else {
			h, pages, err := s.openChunkAt(vi.ChunkMetas[idx].Offset)
			if err != nil {
				return err
			}
			s.curHeader, s.curPages = h, pages
			s.curValueHeader, s.curValuePages = nil, nil
		}
		s.pageIdx = 0
		s.state = ssiChunkOpen
		return nil
	}
	s.state = ssiExhausted
	return nil
}

func (s *SeriesScanIterator) openChunkAt(offset int64) (*chunk.Header, []pageSlice, error) {
	raw, err := s.r.ReadChunkBytes(offset)
	if err != nil {
		return nil, nil, err
	}
	h, n, err := DeserializeChunkHeader(raw)
	if err != nil {
		return nil, nil, err
	}
	pages, err := splitPages(h, raw[n:])
	if err != nil {
		return nil, nil, err
	}
	return h, pages, nil
}

// NextBlock returns the next decoded page that passes the filter, or
// NO_MORE_DATA once the series is exhausted.
func (s *SeriesScanIterator) NextBlock() (*SeriesBlock, error) {
	for {
		switch s.state {
		case ssiClosed:
			return nil, tserr.New(tserr.CodeInvalidState, "series scan iterator closed")
		case ssiExhausted:
			return nil, tserr.NoMoreData
		case ssiReady:
			if err := s.loadNextChunk(); err != nil {
				return nil, err
			}
		case ssiChunkOpen, ssiPageOpen:
			if s.pageIdx >= len(s.curPages) {
				s.state = ssiReady
				continue
			}
			idx := s.pageIdx
			s.pageIdx++
			s.state = ssiPageOpen
			if s.timeFilter != nil && s.curPages[idx].header.Statistics != nil &&
				!s.timeFilter.SatisfyRange(s.curPages[idx].header.Statistics) {
				continue
			}
			block, err := s.decodePage(idx)
			if err != nil {
				return nil, err
			}
			if block == nil || len(block.Times) == 0 {
				continue
			}
			return block, nil
		}
	}
}

func (s *SeriesScanIterator) decodePage(idx int) (*SeriesBlock, error) {
	if s.aligned == nil {
		times, col, err := decodeUnalignedPage(s.curHeader, s.curPages[idx], s.timeEnc)
		if err != nil {
			return nil, err
		}
		return s.filterRows(times, col, nil)
	}
	if idx >= len(s.curValuePages) {
		return nil, tserr.New(tserr.CodeCorrupted,
			"aligned chunk has %d value pages, want page %d", len(s.curValuePages), idx)
	}
	times, err := decodeTimePage(s.curHeader, s.curPages[idx])
	if err != nil {
		return nil, err
	}
	vp, err := decodeValuePage(s.curValueHeader, s.curValuePages[idx], s.name)
	if err != nil {
		return nil, err
	}
	if vp.rowCount != len(times) {
		return nil, tserr.New(tserr.CodeCorrupted,
			"value page has %d rows, time page has %d", vp.rowCount, len(times))
	}
	return s.filterRows(times, vp.values, vp.present)
}

// filterRows applies the row-level time filter and, for aligned pages,
// drops null rows from the series stream.
func (s *SeriesScanIterator) filterRows(times []int64, col *model.BlockColumn,
	present []bool) (*SeriesBlock, error) {
	out := &SeriesBlock{Values: model.NewBlockColumn(col.Name, col.DataType)}
	valIdx := 0
	for i, t := range times {
		has := present == nil || present[i]
		var v interface{}
		if has {
			if present == nil {
				v = col.Get(i)
			} else {
				v = col.Get(valIdx)
			}
			valIdx++
		}
		if !has {
			continue
		}
		if s.timeFilter != nil && !s.timeFilter.Satisfy(t) {
			continue
		}
		out.Times = append(out.Times, t)
		out.Values.Append(v)
	}
	return out, nil
}
