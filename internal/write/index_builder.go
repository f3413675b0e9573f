package write

import (
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/model"
)

// indexBuilder turns the ordered stream of emitted TimeseriesIndex
// records into the on-disk index trees: one measurement tree per device,
// one device tree per table. Nodes are written children-first, so every
// child offset is known when its parent is serialized.
type indexBuilder struct {
	maxDegree int

	deviceOrder []string
	devices     map[string]*deviceSeries
}

type deviceSeries struct {
	device  model.DeviceID
	entries []meta.IndexEntry // measurement name -> ts index offset
	ends    []int64           // exclusive end of each ts index region
}

func newIndexBuilder(maxDegree int) *indexBuilder {
	return &indexBuilder{maxDegree: maxDegree, devices: make(map[string]*deviceSeries)}
}

// addSeries records one emitted TimeseriesIndex. Calls arrive in device
// order, measurements sorted within each device.
func (b *indexBuilder) addSeries(device model.DeviceID, name string, offset, end int64) {
	key := device.Key()
	ds, ok := b.devices[key]
	if !ok {
		ds = &deviceSeries{device: device}
		b.devices[key] = ds
		b.deviceOrder = append(b.deviceOrder, key)
	}
	ds.entries = append(ds.entries, meta.IndexEntry{Name: name, Offset: offset})
	ds.ends = append(ds.ends, end)
}

// writtenNode remembers where a node landed.
type writtenNode struct {
	firstKey    string
	firstDevice model.DeviceID
	offset      int64
	end         int64
}

// build writes every index node and returns the per-table roots that the
// footer embeds inline.
func (b *indexBuilder) build(io *IOWriter) (map[string]*meta.IndexNode, error) {
	type deviceRoot struct {
		device model.DeviceID
		offset int64
		end    int64
	}
	var deviceRoots []deviceRoot

	// measurement trees, one device at a time
	for _, key := range b.deviceOrder {
		ds := b.devices[key]

		level := make([]writtenNode, 0, (len(ds.entries)+b.maxDegree-1)/b.maxDegree)
		for start := 0; start < len(ds.entries); start += b.maxDegree {
			stop := start + b.maxDegree
			if stop > len(ds.entries) {
				stop = len(ds.entries)
			}
			node := &meta.IndexNode{
				Children:  ds.entries[start:stop],
				EndOffset: ds.ends[stop-1],
				NodeType:  meta.LeafMeasurement,
			}
			offset := io.Pos()
			if err := io.write(node.Serialize(nil)); err != nil {
				return nil, err
			}
			level = append(level, writtenNode{firstKey: node.Children[0].Name, offset: offset, end: io.Pos()})
		}

		// stack internal measurement levels until one root remains
		for len(level) > 1 {
			var next []writtenNode
			for start := 0; start < len(level); start += b.maxDegree {
				stop := start + b.maxDegree
				if stop > len(level) {
					stop = len(level)
				}
				node := &meta.IndexNode{
					EndOffset: level[stop-1].end,
					NodeType:  meta.InternalMeasurement,
				}
				for _, child := range level[start:stop] {
					node.Children = append(node.Children, meta.IndexEntry{
						Name:   child.firstKey,
						Offset: child.offset,
					})
				}
				offset := io.Pos()
				if err := io.write(node.Serialize(nil)); err != nil {
					return nil, err
				}
				next = append(next, writtenNode{firstKey: node.Children[0].Name, offset: offset, end: io.Pos()})
			}
			level = next
		}
		deviceRoots = append(deviceRoots, deviceRoot{
			device: ds.device,
			offset: level[0].offset,
			end:    level[0].end,
		})
	}

	// device trees, one table at a time; devices are already sorted and
	// group contiguously by table name
	roots := make(map[string]*meta.IndexNode)
	for start := 0; start < len(deviceRoots); {
		table := deviceRoots[start].device.TableName()
		stop := start
		for stop < len(deviceRoots) && deviceRoots[stop].device.TableName() == table {
			stop++
		}
		tableDevices := deviceRoots[start:stop]
		start = stop

		level := make([]writtenNode, 0, (len(tableDevices)+b.maxDegree-1)/b.maxDegree)
		leafNodes := make([]*meta.IndexNode, 0, cap(level))
		for s := 0; s < len(tableDevices); s += b.maxDegree {
			e := s + b.maxDegree
			if e > len(tableDevices) {
				e = len(tableDevices)
			}
			node := &meta.IndexNode{
				EndOffset: tableDevices[e-1].end,
				NodeType:  meta.LeafDevice,
			}
			for _, dr := range tableDevices[s:e] {
				node.Children = append(node.Children, meta.IndexEntry{
					Device: dr.device,
					Offset: dr.offset,
				})
			}
			leafNodes = append(leafNodes, node)
		}
		if len(leafNodes) == 1 {
			// single leaf: embed it in the footer directly
			roots[table] = leafNodes[0]
			continue
		}
		for _, node := range leafNodes {
			offset := io.Pos()
			if err := io.write(node.Serialize(nil)); err != nil {
				return nil, err
			}
			level = append(level, writtenNode{
				firstDevice: node.Children[0].Device,
				offset:      offset,
				end:         io.Pos(),
			})
		}
		for {
			var parents []*meta.IndexNode
			for s := 0; s < len(level); s += b.maxDegree {
				e := s + b.maxDegree
				if e > len(level) {
					e = len(level)
				}
				node := &meta.IndexNode{
					EndOffset: level[e-1].end,
					NodeType:  meta.InternalDevice,
				}
				for _, child := range level[s:e] {
					node.Children = append(node.Children, meta.IndexEntry{
						Device: child.firstDevice,
						Offset: child.offset,
					})
				}
				parents = append(parents, node)
			}
			if len(parents) == 1 {
				roots[table] = parents[0]
				break
			}
			level = level[:0]
			for _, node := range parents {
				offset := io.Pos()
				if err := io.write(node.Serialize(nil)); err != nil {
					return nil, err
				}
				level = append(level, writtenNode{
					firstDevice: node.Children[0].Device,
					offset:      offset,
					end:         io.Pos(),
				})
			}
		}
	}
	return roots, nil
}
