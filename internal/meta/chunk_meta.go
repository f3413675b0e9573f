package meta

import (
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/stats"
)

// ChunkMeta records one flushed chunk: where its header starts and what it
// holds. Mask carries the aligned-time/aligned-value bits that end up in
// the owning TimeseriesIndex's tsMetaType.
type ChunkMeta struct {
	MeasurementName   string
	OffsetOfChunkHeader int64
	DataType          model.DataType
	Encoding          model.Encoding
	Compression       model.Compression
	Mask              uint8
	Statistics        *stats.Statistics
}

// ChunkGroupMeta accumulates the chunks of one device within one flush.
type ChunkGroupMeta struct {
	Device model.DeviceID
	Chunks []*ChunkMeta
}
