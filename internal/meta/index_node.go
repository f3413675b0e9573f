package meta

import (
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// NodeType marks the role of a MetaIndexNode in the two-level index.
type NodeType uint8

const (
	InternalDevice      NodeType = 0
	LeafDevice          NodeType = 1
	InternalMeasurement NodeType = 2
	LeafMeasurement     NodeType = 3
)

func (n NodeType) String() string {
	switch n {
	case InternalDevice:
		return "INTERNAL_DEVICE"
	case LeafDevice:
		return "LEAF_DEVICE"
	case InternalMeasurement:
		return "INTERNAL_MEASUREMENT"
	case LeafMeasurement:
		return "LEAF_MEASUREMENT"
	default:
		return "NODE(?)"
	}
}

// IsDeviceNode reports whether children carry device ids.
func (n NodeType) IsDeviceNode() bool { return n == InternalDevice || n == LeafDevice }

// IsLeaf reports whether children point outside the node tree.
func (n NodeType) IsLeaf() bool { return n == LeafDevice || n == LeafMeasurement }

// IndexEntry is one child of a MetaIndexNode. Device nodes key children by
// device id; measurement nodes by measurement name.
type IndexEntry struct {
	Name   string         // measurement nodes
	Device model.DeviceID // device nodes
	Offset int64
}

// Key returns the comparable child key for a node of the given kind.
func (e *IndexEntry) Key(deviceNode bool) string {
	if deviceNode {
		return e.Device.Key()
	}
	return e.Name
}

// IndexNode is one node of the on-disk index tree. Children are stored in
// strictly ascending key order; EndOffset is the exclusive upper bound of
// the last child's byte region.
//
// On-disk: {uvarint childCount, children, endOffset i64 LE, nodeType byte}.
// A device child is {deviceID, offset i64 LE}; a measurement child is
// {varstring name, offset i64 LE}.
type IndexNode struct {
	Children  []IndexEntry
	EndOffset int64
	NodeType  NodeType
}

// Serialize appends the on-disk node form.
func (n *IndexNode) Serialize(buf []byte) []byte {
	buf = serialize.AppendUvarint(buf, uint64(len(n.Children)))
	device := n.NodeType.IsDeviceNode()
	for i := range n.Children {
		c := &n.Children[i]
		if device {
			buf = c.Device.Serialize(buf)
		} else {
			buf = serialize.AppendString(buf, c.Name)
		}
		buf = serialize.AppendI64(buf, c.Offset)
	}
	buf = serialize.AppendI64(buf, n.EndOffset)
	buf = append(buf, byte(n.NodeType))
	return buf
}

// DeserializeIndexNode parses a node. deviceNode selects the child layout;
// the caller knows it from descent context.
func DeserializeIndexNode(data []byte, deviceNode bool) (*IndexNode, int, error) {
	cnt, off := serialize.ReadUvarint(data)
	if off == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated index node")
	}
	node := &IndexNode{Children: make([]IndexEntry, 0, cnt)}
	for i := uint64(0); i < cnt; i++ {
		var e IndexEntry
		if deviceNode {
			dev, n, err := model.DeserializeDeviceID(data[off:])
			if err != nil {
				return nil, 0, err
			}
			e.Device = dev
			off += n
		} else {
			name, n, err := serialize.ReadString(data[off:])
			if err != nil {
				return nil, 0, err
			}
			e.Name = name
			off += n
		}
		var k int
		if e.Offset, k = serialize.ReadI64(data[off:]); k == 0 {
			return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated index entry offset")
		}
		off += 8
		node.Children = append(node.Children, e)
	}
	var k int
	if node.EndOffset, k = serialize.ReadI64(data[off:]); k == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated index node end offset")
	}
	off += 8
	if off >= len(data) {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated index node type")
	}
	node.NodeType = NodeType(data[off])
	off++
	if node.NodeType.IsDeviceNode() != deviceNode {
		return nil, 0, tserr.New(tserr.CodeCorrupted,
			"index node type %s does not match descent context", node.NodeType)
	}
	return node, off, nil
}

// BinarySearchChildren finds the child with the largest key <= target.
// With exact set, the key must match exactly or NOT_EXIST is returned.
// The returned end offset is the next sibling's offset, or the node's
// EndOffset for the last child.
func (n *IndexNode) BinarySearchChildren(target string, exact bool) (*IndexEntry, int64, error) {
	device := n.NodeType.IsDeviceNode()
	// children[l] <= target < children[h]
	l, h := -1, len(n.Children)
	found := false
	for l < h-1 {
		m := (l + h) / 2
		key := n.Children[m].Key(device)
		switch {
		case key == target:
			l = m
			found = true
		case key > target:
			h = m
		default:
			l = m
		}
		if found {
			break
		}
	}
	if l == -1 || (exact && !found) {
		return nil, 0, tserr.NotExist
	}
	end := n.EndOffset
	if l < len(n.Children)-1 {
		end = n.Children[l+1].Offset
	}
	return &n.Children[l], end, nil
}
