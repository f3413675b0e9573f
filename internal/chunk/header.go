package chunk

import (
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/stats"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// Header is the on-disk chunk header:
// {marker, measurementName varstring, dataSize uvarint, dataType,
// compression, encoding}. The marker's low bits say whether the chunk has
// one page (0x05) or several (0x01); 0x80/0x40 mark aligned time/value
// chunks.
type Header struct {
	MeasurementName string
	DataSize        int
	DataType        model.DataType
	Compression     model.Compression
	Encoding        model.Encoding
	NumPages        int
	Mask            uint8
}

// Marker derives the header marker byte.
func (h *Header) Marker() byte {
	base := byte(meta.ChunkHeaderMarker)
	if h.NumPages == 1 {
		base = meta.OnlyOnePageChunkMarker
	}
	return base | h.Mask
}

// Serialize appends the header bytes.
func (h *Header) Serialize(buf []byte) []byte {
	buf = append(buf, h.Marker())
	buf = serialize.AppendString(buf, h.MeasurementName)
	buf = serialize.AppendUvarint(buf, uint64(h.DataSize))
	buf = append(buf, byte(h.DataType), byte(h.Compression), byte(h.Encoding))
	return buf
}

// DeserializeHeader parses a chunk header including its marker byte.
func DeserializeHeader(data []byte) (*Header, int, error) {
	if len(data) < 1 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated chunk header")
	}
	marker := data[0]
	h := &Header{Mask: marker & 0xC0}
	switch marker &^ 0xC0 {
	case meta.ChunkHeaderMarker:
		h.NumPages = 2 // multi; true count unknown until pages are walked
	case meta.OnlyOnePageChunkMarker:
		h.NumPages = 1
	default:
		return nil, 0, tserr.New(tserr.CodeCorrupted, "unexpected chunk marker 0x%02x", marker)
	}
	off := 1
	name, n, err := serialize.ReadString(data[off:])
	if err != nil {
		return nil, 0, err
	}
	h.MeasurementName = name
	off += n
	size, n := serialize.ReadUvarint(data[off:])
	if n == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated chunk data size")
	}
	h.DataSize = int(size)
	off += n
	if len(data)-off < 3 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated chunk header of %q", name)
	}
	h.DataType = model.DataType(data[off])
	h.Compression = model.Compression(data[off+1])
	h.Encoding = model.Encoding(data[off+2])
	off += 3
	return h, off, nil
}

// PageHeader is the parsed page prefix: {uncompressedSize uvarint,
// compressedSize uvarint, statistics unless the chunk has a single page}.
type PageHeader struct {
	UncompressedSize int
	CompressedSize   int
	Statistics       *stats.Statistics // nil in single-page chunks
}

// DeserializePageHeader parses a page header. withStats mirrors the
// owning chunk's multi-page marker.
func DeserializePageHeader(data []byte, dt model.DataType, withStats bool) (*PageHeader, int, error) {
	un, n := serialize.ReadUvarint(data)
	if n == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated page header")
	}
	off := n
	comp, n := serialize.ReadUvarint(data[off:])
	if n == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated page header")
	}
	off += n
	ph := &PageHeader{UncompressedSize: int(un), CompressedSize: int(comp)}
	if withStats {
		st, n, err := stats.Deserialize(dt, data[off:])
		if err != nil {
			return nil, 0, err
		}
		ph.Statistics = st
		off += n
	}
	return ph, off, nil
}
