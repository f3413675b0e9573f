package stats

import (
	"bytes"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// Statistics is the rolling per-page/chunk/series summary used for
// predicate pushdown. It is a tagged variant keyed by the data type;
// only the fields of the active variant are meaningful.
//
// On-wire layout: {count uvarint, startTime i64 LE, endTime i64 LE,
// typed payload}. The payload ordering is fixed per type and preserved
// bit-for-bit.
type Statistics struct {
	DataType  model.DataType
	Count     int64
	StartTime int64
	EndTime   int64

	// BOOLEAN
	BoolFirst bool
	BoolLast  bool
	SumTrue   int64

	// INT32 / INT64 / DATE / TIMESTAMP
	IntMin   int64
	IntMax   int64
	IntFirst int64
	IntLast  int64
	IntSum   int64   // INT32, DATE
	FloatSum float64 // INT64, TIMESTAMP, FLOAT, DOUBLE

	// FLOAT / DOUBLE
	FMin   float64
	FMax   float64
	FFirst float64
	FLast  float64

	// TEXT / STRING / BLOB: value summary is first/last only
	BinFirst []byte
	BinLast  []byte
}

// New creates empty statistics for dt.
func New(dt model.DataType) *Statistics {
	return &Statistics{DataType: dt}
}

// IsEmpty reports whether no value has been recorded.
func (s *Statistics) IsEmpty() bool { return s.Count == 0 }

func (s *Statistics) extendTime(t int64) {
	if s.Count == 0 {
		s.StartTime = t
		s.EndTime = t
		return
	}
	if t < s.StartTime {
		s.StartTime = t
	}
	if t > s.EndTime {
		s.EndTime = t
	}
}

// UpdateBool records a boolean point.
func (s *Statistics) UpdateBool(t int64, v bool) {
	s.extendTime(t)
	if s.Count == 0 {
		s.BoolFirst = v
		s.BoolLast = v
	} else {
		if t <= s.StartTime {
			s.BoolFirst = v
		}
		if t >= s.EndTime {
			s.BoolLast = v
		}
	}
	if v {
		s.SumTrue++
	}
	s.Count++
}

// UpdateInt records an INT32/INT64/DATE/TIMESTAMP point.
func (s *Statistics) UpdateInt(t int64, v int64) {
	s.extendTime(t)
	if s.Count == 0 {
		s.IntMin, s.IntMax = v, v
		s.IntFirst, s.IntLast = v, v
	} else {
		if v < s.IntMin {
			s.IntMin = v
		}
		if v > s.IntMax {
			s.IntMax = v
		}
		if t <= s.StartTime {
			s.IntFirst = v
		}
		if t >= s.EndTime {
			s.IntLast = v
		}
	}
	if s.DataType == model.Int32 || s.DataType == model.Date {
		s.IntSum += v
	} else {
		s.FloatSum += float64(v)
	}
	s.Count++
}

// UpdateFloat records a FLOAT/DOUBLE point.
func (s *Statistics) UpdateFloat(t int64, v float64) {
	s.extendTime(t)
	if s.Count == 0 {
		s.FMin, s.FMax = v, v
		s.FFirst, s.FLast = v, v
	} else {
		if v < s.FMin {
			s.FMin = v
		}
		if v > s.FMax {
			s.FMax = v
		}
		if t <= s.StartTime {
			s.FFirst = v
		}
		if t >= s.EndTime {
			s.FLast = v
		}
	}
	s.FloatSum += v
	s.Count++
}

// UpdateBinary records a TEXT/STRING/BLOB point.
func (s *Statistics) UpdateBinary(t int64, v []byte) {
	s.extendTime(t)
	if s.Count == 0 {
		s.BinFirst = append([]byte(nil), v...)
		s.BinLast = append([]byte(nil), v...)
	} else {
		if t <= s.StartTime {
			s.BinFirst = append(s.BinFirst[:0], v...)
		}
		if t >= s.EndTime {
			s.BinLast = append(s.BinLast[:0], v...)
		}
	}
	s.Count++
}

// UpdateTime records a time-only point (VECTOR surrogate).
func (s *Statistics) UpdateTime(t int64) {
	s.extendTime(t)
	s.Count++
}

// CanMerge reports whether statistics of type from can fold into type to.
// TEXT chunks predate STRING statistics, so TEXT never merges into STRING.
func CanMerge(from, to model.DataType) bool {
	if from == model.Text && to == model.String {
		return false
	}
	return from == to
}

// Merge folds other into s. The two ranges must be disjoint or adjacent;
// an overlapping merge would double count and is refused.
func (s *Statistics) Merge(other *Statistics) error {
	if other == nil || other.Count == 0 {
		return nil
	}
	if !CanMerge(other.DataType, s.DataType) {
		return tserr.New(tserr.CodeStatisticsClassMismatch,
			"cannot merge %s statistics into %s", other.DataType, s.DataType)
	}
	if s.Count == 0 {
		dt := s.DataType
		*s = *other
		s.DataType = dt
		s.BinFirst = append([]byte(nil), other.BinFirst...)
		s.BinLast = append([]byte(nil), other.BinLast...)
		return nil
	}
	if s.StartTime <= other.EndTime && other.StartTime <= s.EndTime {
		return tserr.New(tserr.CodeInvalidArg,
			"overlapping time ranges [%d,%d] and [%d,%d]",
			s.StartTime, s.EndTime, other.StartTime, other.EndTime)
	}

	firstIsOther := other.StartTime < s.StartTime
	lastIsOther := other.EndTime > s.EndTime

	switch s.DataType {
	case model.Boolean:
		if firstIsOther {
			s.BoolFirst = other.BoolFirst
		}
		if lastIsOther {
			s.BoolLast = other.BoolLast
		}
		s.SumTrue += other.SumTrue
	case model.Int32, model.Int64, model.Date, model.Timestamp:
		if other.IntMin < s.IntMin {
			s.IntMin = other.IntMin
		}
		if other.IntMax > s.IntMax {
			s.IntMax = other.IntMax
		}
		if firstIsOther {
			s.IntFirst = other.IntFirst
		}
		if lastIsOther {
			s.IntLast = other.IntLast
		}
		s.IntSum += other.IntSum
		s.FloatSum += other.FloatSum
	case model.Float, model.Double:
		if other.FMin < s.FMin {
			s.FMin = other.FMin
		}
		if other.FMax > s.FMax {
			s.FMax = other.FMax
		}
		if firstIsOther {
			s.FFirst = other.FFirst
		}
		if lastIsOther {
			s.FLast = other.FLast
		}
		s.FloatSum += other.FloatSum
	case model.Text, model.String, model.Blob:
		if firstIsOther {
			s.BinFirst = append(s.BinFirst[:0], other.BinFirst...)
		}
		if lastIsOther {
			s.BinLast = append(s.BinLast[:0], other.BinLast...)
		}
	case model.Vector:
		// time-only: nothing beyond the range
	}

	if other.StartTime < s.StartTime {
		s.StartTime = other.StartTime
	}
	if other.EndTime > s.EndTime {
		s.EndTime = other.EndTime
	}
	s.Count += other.Count
	return nil
}

// Serialize appends the on-wire form.
func (s *Statistics) Serialize(buf []byte) []byte {
	buf = serialize.AppendUvarint(buf, uint64(s.Count))
	buf = serialize.AppendI64(buf, s.StartTime)
	buf = serialize.AppendI64(buf, s.EndTime)
	switch s.DataType {
	case model.Boolean:
		buf = appendBool(buf, s.BoolFirst)
		buf = appendBool(buf, s.BoolLast)
		buf = serialize.AppendI64(buf, s.SumTrue)
	case model.Int32, model.Date:
		buf = serialize.AppendI32(buf, int32(s.IntMin))
		buf = serialize.AppendI32(buf, int32(s.IntMax))
		buf = serialize.AppendI32(buf, int32(s.IntFirst))
		buf = serialize.AppendI32(buf, int32(s.IntLast))
		buf = serialize.AppendI64(buf, s.IntSum)
	case model.Int64, model.Timestamp:
		buf = serialize.AppendI64(buf, s.IntMin)
		buf = serialize.AppendI64(buf, s.IntMax)
		buf = serialize.AppendI64(buf, s.IntFirst)
		buf = serialize.AppendI64(buf, s.IntLast)
		buf = serialize.AppendFloat64(buf, s.FloatSum)
	case model.Float:
		buf = serialize.AppendFloat32(buf, float32(s.FMin))
		buf = serialize.AppendFloat32(buf, float32(s.FMax))
		buf = serialize.AppendFloat32(buf, float32(s.FFirst))
		buf = serialize.AppendFloat32(buf, float32(s.FLast))
		buf = serialize.AppendFloat64(buf, s.FloatSum)
	case model.Double:
		buf = serialize.AppendFloat64(buf, s.FMin)
		buf = serialize.AppendFloat64(buf, s.FMax)
		buf = serialize.AppendFloat64(buf, s.FFirst)
		buf = serialize.AppendFloat64(buf, s.FLast)
		buf = serialize.AppendFloat64(buf, s.FloatSum)
	case model.Text, model.String, model.Blob:
		buf = serialize.AppendBytes(buf, s.BinFirst)
		buf = serialize.AppendBytes(buf, s.BinLast)
	case model.Vector:
		// no value payload
	}
	return buf
}

// SerializedSize returns the exact on-wire byte length.
func (s *Statistics) SerializedSize() int {
	n := serialize.UvarintSize(uint64(s.Count)) + 16
	switch s.DataType {
	case model.Boolean:
		n += 1 + 1 + 8
	case model.Int32, model.Date:
		n += 4*4 + 8
	case model.Int64, model.Timestamp:
		n += 8*4 + 8
	case model.Float:
		n += 4*4 + 8
	case model.Double:
		n += 8*5
	case model.Text, model.String, model.Blob:
		n += serialize.UvarintSize(uint64(len(s.BinFirst))) + len(s.BinFirst)
		n += serialize.UvarintSize(uint64(len(s.BinLast))) + len(s.BinLast)
	}
	return n
}

// Deserialize parses statistics of type dt, returning bytes consumed.
func Deserialize(dt model.DataType, data []byte) (*Statistics, int, error) {
	s := New(dt)
	count, n := serialize.ReadUvarint(data)
	if n == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated statistics count")
	}
	s.Count = int64(count)
	off := n
	var ok int
	if s.StartTime, ok = serialize.ReadI64(data[off:]); ok == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated statistics time range")
	}
	off += 8
	if s.EndTime, ok = serialize.ReadI64(data[off:]); ok == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated statistics time range")
	}
	off += 8

	need := func(k int) error {
		if len(data)-off < k {
			return tserr.New(tserr.CodeCorrupted, "truncated %s statistics payload", dt)
		}
		return nil
	}

	switch dt {
	case model.Boolean:
		if err := need(10); err != nil {
			return nil, 0, err
		}
		s.BoolFirst = data[off] != 0
		s.BoolLast = data[off+1] != 0
		off += 2
		s.SumTrue, _ = serialize.ReadI64(data[off:])
		off += 8
	case model.Int32, model.Date:
		if err := need(24); err != nil {
			return nil, 0, err
		}
		var v int32
		v, _ = serialize.ReadI32(data[off:])
		s.IntMin = int64(v)
		v, _ = serialize.ReadI32(data[off+4:])
		s.IntMax = int64(v)
		v, _ = serialize.ReadI32(data[off+8:])
		s.IntFirst = int64(v)
		v, _ = serialize.ReadI32(data[off+12:])
		s.IntLast = int64(v)
		off += 16
		s.IntSum, _ = serialize.ReadI64(data[off:])
		off += 8
	case model.Int64, model.Timestamp:
		if err := need(40); err != nil {
			return nil, 0, err
		}
		s.IntMin, _ = serialize.ReadI64(data[off:])
		s.IntMax, _ = serialize.ReadI64(data[off+8:])
		s.IntFirst, _ = serialize.ReadI64(data[off+16:])
		s.IntLast, _ = serialize.ReadI64(data[off+24:])
		off += 32
		s.FloatSum, _ = serialize.ReadFloat64(data[off:])
		off += 8
	case model.Float:
		if err := need(24); err != nil {
			return nil, 0, err
		}
		var f float32
		f, _ = serialize.ReadFloat32(data[off:])
		s.FMin = float64(f)
		f, _ = serialize.ReadFloat32(data[off+4:])
		s.FMax = float64(f)
		f, _ = serialize.ReadFloat32(data[off+8:])
		s.FFirst = float64(f)
		f, _ = serialize.ReadFloat32(data[off+12:])
		s.FLast = float64(f)
		off += 16
		s.FloatSum, _ = serialize.ReadFloat64(data[off:])
		off += 8
	case model.Double:
		if err := need(40); err != nil {
			return nil, 0, err
		}
		s.FMin, _ = serialize.ReadFloat64(data[off:])
		s.FMax, _ = serialize.ReadFloat64(data[off+8:])
		s.FFirst, _ = serialize.ReadFloat64(data[off+16:])
		s.FLast, _ = serialize.ReadFloat64(data[off+24:])
		off += 32
		s.FloatSum, _ = serialize.ReadFloat64(data[off:])
		off += 8
	case model.Text, model.String, model.Blob:
		first, n, err := serialize.ReadBytes(data[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		last, n, err := serialize.ReadBytes(data[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		s.BinFirst = append([]byte(nil), first...)
		s.BinLast = append([]byte(nil), last...)
	case model.Vector:
		// no value payload
	default:
		return nil, 0, tserr.New(tserr.CodeNotSupported, "statistics for %s", dt)
	}
	return s, off, nil
}

// Equal compares two statistics field-wise, used by tests.
func (s *Statistics) Equal(o *Statistics) bool {
	if s.DataType != o.DataType || s.Count != o.Count ||
		s.StartTime != o.StartTime || s.EndTime != o.EndTime {
		return false
	}
	switch s.DataType {
	case model.Boolean:
		return s.BoolFirst == o.BoolFirst && s.BoolLast == o.BoolLast && s.SumTrue == o.SumTrue
	case model.Int32, model.Int64, model.Date, model.Timestamp:
		return s.IntMin == o.IntMin && s.IntMax == o.IntMax &&
			s.IntFirst == o.IntFirst && s.IntLast == o.IntLast &&
			s.IntSum == o.IntSum && s.FloatSum == o.FloatSum
	case model.Float, model.Double:
		return s.FMin == o.FMin && s.FMax == o.FMax &&
			s.FFirst == o.FFirst && s.FLast == o.FLast && s.FloatSum == o.FloatSum
	case model.Text, model.String, model.Blob:
		return bytes.Equal(s.BinFirst, o.BinFirst) && bytes.Equal(s.BinLast, o.BinLast)
	}
	return true
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}
