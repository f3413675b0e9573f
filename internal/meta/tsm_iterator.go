package meta

import (
	"sort"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/stats"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// TSMIterator turns the chunk-group metas recorded during writing into an
// ordered stream of TimeseriesIndex records: devices in id order, then
// measurements in name order, chunks of one series in append order.
type TSMIterator struct {
	devices []model.DeviceID
	series  map[string]map[string][]*ChunkMeta // device key -> measurement -> chunks
	byKey   map[string]model.DeviceID

	devIdx  int
	msNames []string
	msIdx   int
}

// NewTSMIterator groups and sorts the recorded chunk-group metas.
func NewTSMIterator(groups []*ChunkGroupMeta) *TSMIterator {
	it := &TSMIterator{
		series: make(map[string]map[string][]*ChunkMeta),
		byKey:  make(map[string]model.DeviceID),
	}
	for _, g := range groups {
		key := g.Device.Key()
		perMs, ok := it.series[key]
		if !ok {
			perMs = make(map[string][]*ChunkMeta)
			it.series[key] = perMs
			it.byKey[key] = g.Device
		}
		for _, cm := range g.Chunks {
			perMs[cm.MeasurementName] = append(perMs[cm.MeasurementName], cm)
		}
	}

	keys := make([]string, 0, len(it.series))
	for k := range it.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	it.devices = make([]model.DeviceID, 0, len(keys))
	for _, k := range keys {
		it.devices = append(it.devices, it.byKey[k])
		// chunks of one series keep temporal (offset) order
		for _, cms := range it.series[k] {
			sort.Slice(cms, func(i, j int) bool {
				return cms[i].OffsetOfChunkHeader < cms[j].OffsetOfChunkHeader
			})
		}
	}
	it.loadMeasurements()
	return it
}

func (it *TSMIterator) loadMeasurements() {
	it.msNames = it.msNames[:0]
	it.msIdx = 0
	if it.devIdx >= len(it.devices) {
		return
	}
	perMs := it.series[it.devices[it.devIdx].Key()]
	for name := range perMs {
		it.msNames = append(it.msNames, name)
	}
	sort.Strings(it.msNames)
	// aligned groups: the time column (empty name, VECTOR) sorts first
	// naturally, which is also the order the reader requires
}

// HasNext reports whether another TimeseriesIndex remains.
func (it *TSMIterator) HasNext() bool {
	return it.devIdx < len(it.devices)
}

// Next assembles the next TimeseriesIndex. Returns NO_MORE_DATA when the
// stream is exhausted.
func (it *TSMIterator) Next() (model.DeviceID, *TimeseriesIndex, error) {
	if !it.HasNext() {
		return model.DeviceID{}, nil, tserr.NoMoreData
	}
	device := it.devices[it.devIdx]
	name := it.msNames[it.msIdx]
	cms := it.series[device.Key()][name]

	it.msIdx++
	if it.msIdx >= len(it.msNames) {
		it.devIdx++
		it.loadMeasurements()
	}

	if len(cms) == 0 {
		return model.DeviceID{}, nil, tserr.New(tserr.CodeInvalidState,
			"series %s.%s has no chunks", device, name)
	}

	multi := len(cms) > 1
	tsMetaType := cms[0].Mask
	if multi {
		tsMetaType |= TsMetaMultiChunkBit
	}
	ti := &TimeseriesIndex{
		TsMetaType:      tsMetaType,
		MeasurementName: name,
		DataType:        cms[0].DataType,
		Statistics:      stats.New(cms[0].DataType),
	}
	for _, cm := range cms {
		if err := ti.Statistics.Merge(cm.Statistics); err != nil {
			return model.DeviceID{}, nil, err
		}
		icm := IndexChunkMeta{Offset: cm.OffsetOfChunkHeader}
		if multi {
			icm.Statistics = cm.Statistics
		}
		ti.ChunkMetas = append(ti.ChunkMetas, icm)
	}
	return device, ti, nil
}
