package read

import (
	"bytes"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/soltixdb/tsfile/internal/logging"
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

const (
	tailReadSize     = 1024
	tailMagicAndSize = 10 // footerSize u32 + magic(6)
	maxFooterSize    = 1 << 20
	maxIndexRegion   = 1 << 30
)

// IOReader opens a sealed file: footer discovery, index descent, and raw
// chunk access. A shared ChunkCache may be attached; chunk bytes are
// copied out of it under its lock.
type IOReader struct {
	f      *os.File
	size   int64
	fileID uuid.UUID
	log    *logging.Logger
	cache  *ChunkCache

	fileMeta  *meta.TsFileMeta
	metaReady bool
	closed    bool
}

// OpenIOReader opens path and validates its size against the smallest
// possible TsFile.
func OpenIOReader(path string, log *logging.Logger, cache *ChunkCache) (*IOReader, error) {
	if log == nil {
		log = logging.Global()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, tserr.Wrap(tserr.CodeFileReadErr, err, "open %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, tserr.Wrap(tserr.CodeFileReadErr, err, "stat %s", path)
	}
	if st.Size() < int64(meta.MagicLen+1+tailMagicAndSize) {
		f.Close()
		return nil, tserr.New(tserr.CodeCorrupted, "file %s too small (%d bytes)", path, st.Size())
	}
	head := make([]byte, meta.MagicLen+1)
	if _, err := f.ReadAt(head, 0); err != nil {
		f.Close()
		return nil, tserr.Wrap(tserr.CodeFileReadErr, err, "read head of %s", path)
	}
	if !bytes.Equal(head[:meta.MagicLen], []byte(meta.MagicString)) {
		f.Close()
		return nil, tserr.New(tserr.CodeCorrupted, "leading magic mismatch in %s", path)
	}
	if head[meta.MagicLen] != meta.VersionByte {
		f.Close()
		return nil, tserr.New(tserr.CodeNotSupported, "file version 0x%02x", head[meta.MagicLen])
	}
	return &IOReader{
		f:      f,
		size:   st.Size(),
		fileID: uuid.New(),
		log:    log.WithStr("file", path),
		cache:  cache,
	}, nil
}

// FileSize returns the file length in bytes.
func (r *IOReader) FileSize() int64 { return r.size }

// FileID identifies this open file in the shared chunk cache.
func (r *IOReader) FileID() uuid.UUID { return r.fileID }

// Closed reports whether Close was called.
func (r *IOReader) Closed() bool { return r.closed }

// Close releases the file descriptor. Subsequent operations fail with
// INVALID_STATE.
func (r *IOReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.f.Close(); err != nil {
		return tserr.Wrap(tserr.CodeFileReadErr, err, "close")
	}
	return nil
}

func (r *IOReader) readAt(offset int64, length int) ([]byte, error) {
	if r.closed {
		return nil, tserr.New(tserr.CodeInvalidState, "reader closed")
	}
	if offset < 0 || length < 0 || offset+int64(length) > r.size {
		return nil, tserr.New(tserr.CodeCorrupted,
			"read [%d,%d) outside file of %d bytes", offset, offset+int64(length), r.size)
	}
	buf := make([]byte, length)
	if _, err := r.f.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, tserr.Wrap(tserr.CodeFileReadErr, err, "read %d bytes at %d", length, offset)
	}
	return buf, nil
}

// FileMeta loads and caches the footer.
func (r *IOReader) FileMeta() (*meta.TsFileMeta, error) {
	if r.metaReady {
		return r.fileMeta, nil
	}
	if err := r.loadFileMeta(); err != nil {
		return nil, err
	}
	r.metaReady = true
	return r.fileMeta, nil
}

// loadFileMeta reads the tail, validates the magic, and deserializes the
// footer, re-reading once when the footer outgrows the first tail read.
func (r *IOReader) loadFileMeta() error {
	allocSize := int64(tailReadSize)
	if r.size < allocSize {
		allocSize = r.size
	}
	buf, err := r.readAt(r.size-allocSize, int(allocSize))
	if err != nil {
		return err
	}
	tail := buf[len(buf)-tailMagicAndSize:]
	if !bytes.Equal(tail[4:], []byte(meta.MagicString)) {
		return tserr.New(tserr.CodeCorrupted, "trailing magic mismatch")
	}
	footerSize, _ := serialize.ReadU32(tail)
	if footerSize == 0 || int64(footerSize) > maxFooterSize ||
		int64(footerSize)+tailMagicAndSize+int64(meta.MagicLen)+1 > r.size {
		return tserr.New(tserr.CodeCorrupted, "impossible footer size %d", footerSize)
	}

	var footer []byte
	if int64(footerSize)+tailMagicAndSize > allocSize {
		// the footer did not fit the first read; re-read exactly
		footer, err = r.readAt(r.size-int64(footerSize)-tailMagicAndSize, int(footerSize))
		if err != nil {
			return err
		}
	} else {
		footer = buf[len(buf)-tailMagicAndSize-int(footerSize) : len(buf)-tailMagicAndSize]
	}
	fm, err := meta.DeserializeTsFileMeta(footer)
	if err != nil {
		return err
	}
	r.fileMeta = fm
	r.log.Debug().Uint32("footer_size", footerSize).Int("tables", len(fm.TableIndexRoots)).Msg("footer loaded")
	return nil
}

// MightContain asks the footer bloom filter about a series. A false
// result is definitive.
func (r *IOReader) MightContain(device model.DeviceID, measurement string) (bool, error) {
	fm, err := r.FileMeta()
	if err != nil {
		return false, err
	}
	if fm.Bloom == nil {
		return false, nil
	}
	return fm.Bloom.MightContain(meta.SeriesKey(device.TableName(), device, measurement)), nil
}

// loadDeviceIndexEntry descends the device tree of the device's table and
// returns the measurement-root region [offset, end).
func (r *IOReader) loadDeviceIndexEntry(device model.DeviceID) (int64, int64, error) {
	fm, err := r.FileMeta()
	if err != nil {
		return 0, 0, err
	}
	root, ok := fm.TableIndexRoots[device.TableName()]
	if !ok {
		return 0, 0, tserr.New(tserr.CodeTableNotExist, "table %q", device.TableName())
	}
	node := root
	target := device.Key()
	for {
		if node.NodeType == meta.LeafDevice {
			entry, end, err := node.BinarySearchChildren(target, true)
			if err != nil {
				return 0, 0, tserr.New(tserr.CodeDeviceNotExist, "device %s", device)
			}
			return entry.Offset, end, nil
		}
		entry, end, err := node.BinarySearchChildren(target, false)
		if err != nil {
			return 0, 0, tserr.New(tserr.CodeDeviceNotExist, "device %s", device)
		}
		node, err = r.readIndexNode(entry.Offset, end, true)
		if err != nil {
			return 0, 0, err
		}
	}
}

// loadMeasurementIndexEntry descends a measurement subtree rooted in
// [start, end) and returns the TimeseriesIndex region. Leaf search is a
// prefix match: the largest key <= name.
func (r *IOReader) loadMeasurementIndexEntry(name string, start, end int64) (int64, int64, error) {
	node, err := r.readIndexNode(start, end, false)
	if err != nil {
		return 0, 0, err
	}
	for {
		if node.NodeType == meta.LeafMeasurement {
			entry, entryEnd, err := node.BinarySearchChildren(name, false)
			if err != nil {
				return 0, 0, tserr.New(tserr.CodeMeasurementNotExist, "measurement %q", name)
			}
			return entry.Offset, entryEnd, nil
		}
		entry, entryEnd, err := node.BinarySearchChildren(name, false)
		if err != nil {
			return 0, 0, tserr.New(tserr.CodeMeasurementNotExist, "measurement %q", name)
		}
		node, err = r.readIndexNode(entry.Offset, entryEnd, false)
		if err != nil {
			return 0, 0, err
		}
	}
}

func (r *IOReader) readIndexNode(start, end int64, deviceNode bool) (*meta.IndexNode, error) {
	if end <= start || end-start > maxIndexRegion {
		return nil, tserr.New(tserr.CodeCorrupted, "impossible index region [%d,%d)", start, end)
	}
	buf, err := r.readAt(start, int(end-start))
	if err != nil {
		return nil, err
	}
	node, _, err := meta.DeserializeIndexNode(buf, deviceNode)
	return node, err
}

// LoadTimeseriesIndex locates the index record of (device, measurement).
// For a measurement inside an aligned group it returns the paired time
// and value indices; otherwise the value index alone.
func (r *IOReader) LoadTimeseriesIndex(device model.DeviceID, measurement string) (
	*meta.TimeseriesIndex, *meta.AlignedTimeseriesIndex, error) {
	devOffset, devEnd, err := r.loadDeviceIndexEntry(device)
	if err != nil {
		return nil, nil, err
	}
	tsOffset, tsEnd, err := r.loadMeasurementIndexEntry(measurement, devOffset, devEnd)
	if err != nil {
		return nil, nil, err
	}
	buf, err := r.readAt(tsOffset, int(tsEnd-tsOffset))
	if err != nil {
		return nil, nil, err
	}

	var timeIndex *meta.TimeseriesIndex
	off := 0
	for off < len(buf) {
		ti, n, err := meta.DeserializeTimeseriesIndex(buf[off:])
		if err != nil {
			return nil, nil, err
		}
		off += n
		switch {
		case ti.AlignedTime():
			timeIndex = ti
		case ti.MeasurementName == measurement:
			if ti.AlignedValue() {
				if timeIndex == nil {
					// the time index lives in an earlier leaf region
					timeIndex, err = r.loadAlignedTimeIndex(devOffset, devEnd)
					if err != nil {
						return nil, nil, err
					}
				}
				return nil, &meta.AlignedTimeseriesIndex{Time: timeIndex, Value: ti}, nil
			}
			return ti, nil, nil
		}
	}
	return nil, nil, tserr.New(tserr.CodeNotExist, "series %s.%s", device, measurement)
}

// loadAlignedTimeIndex fetches the empty-named time index of an aligned
// device, which sorts first in the device's measurement sequence.
func (r *IOReader) loadAlignedTimeIndex(devOffset, devEnd int64) (*meta.TimeseriesIndex, error) {
	tsOffset, tsEnd, err := r.loadMeasurementIndexEntry("", devOffset, devEnd)
	if err != nil {
		return nil, err
	}
	buf, err := r.readAt(tsOffset, int(tsEnd-tsOffset))
	if err != nil {
		return nil, err
	}
	ti, _, err := meta.DeserializeTimeseriesIndex(buf)
	if err != nil {
		return nil, err
	}
	if !ti.AlignedTime() {
		return nil, tserr.New(tserr.CodeCorrupted, "expected aligned time index, got %q", ti.MeasurementName)
	}
	return ti, nil
}

// DeviceTimeseriesMetas returns every TimeseriesIndex of a device in
// measurement order.
func (r *IOReader) DeviceTimeseriesMetas(device model.DeviceID) ([]*meta.TimeseriesIndex, error) {
	devOffset, devEnd, err := r.loadDeviceIndexEntry(device)
	if err != nil {
		return nil, err
	}
	return r.collectTimeseriesMetas(devOffset, devEnd)
}

func (r *IOReader) collectTimeseriesMetas(start, end int64) ([]*meta.TimeseriesIndex, error) {
	node, err := r.readIndexNode(start, end, false)
	if err != nil {
		return nil, err
	}
	var out []*meta.TimeseriesIndex
	for i := range node.Children {
		childEnd := node.EndOffset
		if i+1 < len(node.Children) {
			childEnd = node.Children[i+1].Offset
		}
		if node.NodeType == meta.LeafMeasurement {
			buf, err := r.readAt(node.Children[i].Offset, int(childEnd-node.Children[i].Offset))
			if err != nil {
				return nil, err
			}
			off := 0
			for off < len(buf) {
				ti, n, err := meta.DeserializeTimeseriesIndex(buf[off:])
				if err != nil {
					return nil, err
				}
				off += n
				out = append(out, ti)
			}
		} else {
			sub, err := r.collectTimeseriesMetas(node.Children[i].Offset, childEnd)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// ReadChunkBytes returns the raw chunk (header plus body) starting at
// offset, through the shared cache when one is attached.
func (r *IOReader) ReadChunkBytes(offset int64) ([]byte, error) {
	if r.cache != nil {
		if data := r.cache.Get(r.fileID, offset); data != nil {
			return data, nil
		}
	}
	data, err := r.readChunkUncached(offset)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Put(r.fileID, offset, data)
	}
	return data, nil
}

func (r *IOReader) readChunkUncached(offset int64) ([]byte, error) {
	prefixLen := 256
	for {
		if int64(prefixLen) > r.size-offset {
			prefixLen = int(r.size - offset)
		}
		prefix, err := r.readAt(offset, prefixLen)
		if err != nil {
			return nil, err
		}
		h, headerLen, err := DeserializeChunkHeader(prefix)
		if err != nil {
			if prefixLen < int(r.size-offset) && prefixLen < 1<<20 {
				prefixLen *= 4
				continue
			}
			return nil, err
		}
		total := headerLen + h.DataSize
		if int64(total) > r.size-offset {
			return nil, tserr.New(tserr.CodeCorrupted,
				"chunk at %d claims %d bytes beyond EOF", offset, total)
		}
		if total <= prefixLen {
			return prefix[:total], nil
		}
		rest, err := r.readAt(offset+int64(prefixLen), total-prefixLen)
		if err != nil {
			return nil, err
		}
		return append(prefix, rest...), nil
	}
}
