package model

import (
	"strings"

	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// DeviceID identifies a row source within a table: an ordered, non-empty
// tuple of segments. The first segment is the table name; the rest are the
// TAG column values in schema order. Ordering is lexicographic on segments.
type DeviceID struct {
	segments []string
}

// NewDeviceID builds a device identifier from its segments.
func NewDeviceID(segments ...string) DeviceID {
	s := make([]string, len(segments))
	copy(s, segments)
	return DeviceID{segments: s}
}

// TableName returns the routing table of the device.
func (d DeviceID) TableName() string {
	if len(d.segments) == 0 {
		return ""
	}
	return d.segments[0]
}

// Segments returns the underlying tuple. Callers must not mutate it.
func (d DeviceID) Segments() []string { return d.segments }

// TagValues returns the segments after the table name.
func (d DeviceID) TagValues() []string {
	if len(d.segments) <= 1 {
		return nil
	}
	return d.segments[1:]
}

// IsEmpty reports whether the identifier has no segments.
func (d DeviceID) IsEmpty() bool { return len(d.segments) == 0 }

// Compare orders two device ids lexicographically segment by segment,
// shorter tuples first on ties.
func (d DeviceID) Compare(o DeviceID) int {
	n := len(d.segments)
	if len(o.segments) < n {
		n = len(o.segments)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(d.segments[i], o.segments[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(d.segments) < len(o.segments):
		return -1
	case len(d.segments) > len(o.segments):
		return 1
	}
	return 0
}

// Equal reports tuple equality. The whole tuple participates; two devices
// whose joined forms collide are still distinct.
func (d DeviceID) Equal(o DeviceID) bool { return d.Compare(o) == 0 }

// String joins segments with '.', for logs and error messages only.
func (d DeviceID) String() string { return strings.Join(d.segments, ".") }

// Key returns a map key that preserves tuple boundaries.
func (d DeviceID) Key() string { return strings.Join(d.segments, "\x00") }

// Bytes returns the hashable representation used by the bloom filter:
// the segments joined with a NUL separator.
func (d DeviceID) Bytes() []byte { return []byte(d.Key()) }

// Serialize appends the on-disk form: segment count then each segment as a
// nullable varstring.
func (d DeviceID) Serialize(buf []byte) []byte {
	buf = serialize.AppendUvarint(buf, uint64(len(d.segments)))
	for i := range d.segments {
		buf = serialize.AppendNullableString(buf, &d.segments[i])
	}
	return buf
}

// DeserializeDeviceID parses a device id, returning it and bytes consumed.
func DeserializeDeviceID(data []byte) (DeviceID, int, error) {
	cnt, n := serialize.ReadUvarint(data)
	if n == 0 {
		return DeviceID{}, 0, tserr.New(tserr.CodeCorrupted, "truncated device id")
	}
	off := n
	segments := make([]string, 0, cnt)
	for i := uint64(0); i < cnt; i++ {
		s, m, err := serialize.ReadNullableString(data[off:])
		if err != nil {
			return DeviceID{}, 0, err
		}
		off += m
		if s == nil {
			segments = append(segments, "")
		} else {
			segments = append(segments, *s)
		}
	}
	return DeviceID{segments: segments}, off, nil
}
