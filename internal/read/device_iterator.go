package read

import (
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/read/filter"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// DeviceTaskIterator yields a table's devices in lexicographic id order
// by walking the device index, honoring an optional device filter.
type DeviceTaskIterator struct {
	devices []model.DeviceID
	idx     int
}

// NewDeviceTaskIterator collects the table's devices. A table absent from
// the footer yields TABLE_NOT_EXIST.
func NewDeviceTaskIterator(r *IOReader, table string, df filter.DeviceFilter) (*DeviceTaskIterator, error) {
	fm, err := r.FileMeta()
	if err != nil {
		return nil, err
	}
	root, ok := fm.TableIndexRoots[table]
	if !ok {
		return nil, tserr.New(tserr.CodeTableNotExist, "table %q", table)
	}
	it := &DeviceTaskIterator{}
	if err := it.collect(r, root); err != nil {
		return nil, err
	}
	if df != nil {
		kept := it.devices[:0]
		for _, d := range it.devices {
			if df.SatisfyDevice(d.Segments()) {
				kept = append(kept, d)
			}
		}
		it.devices = kept
	}
	return it, nil
}

func (it *DeviceTaskIterator) collect(r *IOReader, node *meta.IndexNode) error {
	if node.NodeType == meta.LeafDevice {
		for i := range node.Children {
			it.devices = append(it.devices, node.Children[i].Device)
		}
		return nil
	}
	for i := range node.Children {
		end := node.EndOffset
		if i+1 < len(node.Children) {
			end = node.Children[i+1].Offset
		}
		child, err := r.readIndexNode(node.Children[i].Offset, end, true)
		if err != nil {
			return err
		}
		if err := it.collect(r, child); err != nil {
			return err
		}
	}
	return nil
}

// HasNext reports whether another device remains.
func (it *DeviceTaskIterator) HasNext() bool { return it.idx < len(it.devices) }

// Next returns the next device, or NO_MORE_DATA.
func (it *DeviceTaskIterator) Next() (model.DeviceID, error) {
	if !it.HasNext() {
		return model.DeviceID{}, tserr.NoMoreData
	}
	d := it.devices[it.idx]
	it.idx++
	return d, nil
}
