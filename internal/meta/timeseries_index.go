package meta

import (
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/stats"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// IndexChunkMeta is the on-disk form of one chunk reference inside a
// TimeseriesIndex: the chunk header offset plus, for multi-chunk series,
// the per-chunk statistics. Single-chunk series elide them; the series
// statistics stand in.
type IndexChunkMeta struct {
	Offset     int64
	Statistics *stats.Statistics // nil when elided
}

// TimeseriesIndex is the per-(device, measurement) index record: merged
// statistics plus the chunk list.
//
// On-disk: {tsMetaType byte, measurementName varstring, dataType byte,
// statistics, chunkMetaBytes uvarint-length-prefixed}.
type TimeseriesIndex struct {
	TsMetaType      uint8
	MeasurementName string
	DataType        model.DataType
	Statistics      *stats.Statistics
	ChunkMetas      []IndexChunkMeta
}

// MultiChunk reports whether per-chunk statistics are present.
func (t *TimeseriesIndex) MultiChunk() bool { return t.TsMetaType&TsMetaMultiChunkBit != 0 }

// AlignedTime reports whether this is the time column of an aligned group.
func (t *TimeseriesIndex) AlignedTime() bool { return t.TsMetaType&TsMetaAlignedTime != 0 }

// AlignedValue reports whether this is a value column of an aligned group.
func (t *TimeseriesIndex) AlignedValue() bool { return t.TsMetaType&TsMetaAlignedValue != 0 }

// ChunkStatistics returns the statistics to evaluate for chunk i,
// falling back to the series statistics for single-chunk series.
func (t *TimeseriesIndex) ChunkStatistics(i int) *stats.Statistics {
	if t.ChunkMetas[i].Statistics != nil {
		return t.ChunkMetas[i].Statistics
	}
	return t.Statistics
}

// Serialize appends the on-disk form.
func (t *TimeseriesIndex) Serialize(buf []byte) []byte {
	buf = append(buf, t.TsMetaType)
	buf = serialize.AppendString(buf, t.MeasurementName)
	buf = append(buf, byte(t.DataType))
	buf = t.Statistics.Serialize(buf)

	var cms []byte
	for i := range t.ChunkMetas {
		cm := &t.ChunkMetas[i]
		cms = serialize.AppendI64(cms, cm.Offset)
		if t.MultiChunk() && cm.Statistics != nil {
			cms = cm.Statistics.Serialize(cms)
		}
	}
	buf = serialize.AppendBytes(buf, cms)
	return buf
}

// DeserializeTimeseriesIndex parses one record, returning bytes consumed.
func DeserializeTimeseriesIndex(data []byte) (*TimeseriesIndex, int, error) {
	if len(data) < 2 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated timeseries index")
	}
	t := &TimeseriesIndex{TsMetaType: data[0]}
	off := 1
	name, n, err := serialize.ReadString(data[off:])
	if err != nil {
		return nil, 0, err
	}
	t.MeasurementName = name
	off += n
	if off >= len(data) {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated timeseries index %q", name)
	}
	t.DataType = model.DataType(data[off])
	off++
	st, n, err := stats.Deserialize(t.DataType, data[off:])
	if err != nil {
		return nil, 0, err
	}
	t.Statistics = st
	off += n

	cms, n, err := serialize.ReadBytes(data[off:])
	if err != nil {
		return nil, 0, err
	}
	off += n
	for len(cms) > 0 {
		var cm IndexChunkMeta
		var k int
		if cm.Offset, k = serialize.ReadI64(cms); k == 0 {
			return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated chunk meta in index %q", name)
		}
		cms = cms[8:]
		if t.MultiChunk() {
			st, k, err := stats.Deserialize(t.DataType, cms)
			if err != nil {
				return nil, 0, err
			}
			cm.Statistics = st
			cms = cms[k:]
		}
		t.ChunkMetas = append(t.ChunkMetas, cm)
	}
	return t, off, nil
}

// AlignedTimeseriesIndex pairs the shared time index with one value index
// of an aligned group.
type AlignedTimeseriesIndex struct {
	Time  *TimeseriesIndex
	Value *TimeseriesIndex
}
