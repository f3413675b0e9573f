package model

import (
	"github.com/soltixdb/tsfile/internal/tserr"
)

// ColumnValues holds one column's values in a typed slice selected by the
// declared data type. Only the slice matching the type is populated.
type ColumnValues struct {
	dt       DataType
	bools    []bool
	int32s   []int32
	int64s   []int64
	float32s []float32
	float64s []float64
	binaries [][]byte
}

// NewColumnValues allocates storage for n rows of type dt.
func NewColumnValues(dt DataType, n int) *ColumnValues {
	cv := &ColumnValues{dt: dt}
	switch dt {
	case Boolean:
		cv.bools = make([]bool, n)
	case Int32:
		cv.int32s = make([]int32, n)
	case Int64, Timestamp, Date:
		cv.int64s = make([]int64, n)
	case Float:
		cv.float32s = make([]float32, n)
	case Double:
		cv.float64s = make([]float64, n)
	case Text, Blob, String:
		cv.binaries = make([][]byte, n)
	}
	return cv
}

// DataType returns the declared type.
func (cv *ColumnValues) DataType() DataType { return cv.dt }

// Set stores v at row i. The runtime type must match the declared type;
// a mismatch is an INVALID_DATA_POINT error.
func (cv *ColumnValues) Set(i int, v interface{}) error {
	switch cv.dt {
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return typeMismatch(cv.dt, v)
		}
		cv.bools[i] = b
	case Int32:
		n, ok := v.(int32)
		if !ok {
			return typeMismatch(cv.dt, v)
		}
		cv.int32s[i] = n
	case Int64, Timestamp, Date:
		n, ok := v.(int64)
		if !ok {
			return typeMismatch(cv.dt, v)
		}
		cv.int64s[i] = n
	case Float:
		f, ok := v.(float32)
		if !ok {
			return typeMismatch(cv.dt, v)
		}
		cv.float32s[i] = f
	case Double:
		f, ok := v.(float64)
		if !ok {
			return typeMismatch(cv.dt, v)
		}
		cv.float64s[i] = f
	case Text, Blob, String:
		switch b := v.(type) {
		case []byte:
			cv.binaries[i] = b
		case string:
			cv.binaries[i] = []byte(b)
		default:
			return typeMismatch(cv.dt, v)
		}
	default:
		return tserr.New(tserr.CodeNotSupported, "column type %s", cv.dt)
	}
	return nil
}

// Get returns the value at row i boxed per type.
func (cv *ColumnValues) Get(i int) interface{} {
	switch cv.dt {
	case Boolean:
		return cv.bools[i]
	case Int32:
		return cv.int32s[i]
	case Int64, Timestamp, Date:
		return cv.int64s[i]
	case Float:
		return cv.float32s[i]
	case Double:
		return cv.float64s[i]
	case Text, Blob, String:
		return cv.binaries[i]
	}
	return nil
}

// Bool/Int32/Int64/Float32/Float64/Binary accessors avoid boxing on hot
// paths. They assume the declared type matches.
func (cv *ColumnValues) Bool(i int) bool      { return cv.bools[i] }
func (cv *ColumnValues) Int32(i int) int32    { return cv.int32s[i] }
func (cv *ColumnValues) Int64(i int) int64    { return cv.int64s[i] }
func (cv *ColumnValues) Float32(i int) float32 { return cv.float32s[i] }
func (cv *ColumnValues) Float64(i int) float64 { return cv.float64s[i] }
func (cv *ColumnValues) Binary(i int) []byte  { return cv.binaries[i] }

func typeMismatch(want DataType, got interface{}) error {
	return tserr.New(tserr.CodeInvalidDataPoint, "value %T does not match declared type %s", got, want)
}

// Tablet is a columnar batch: one time column plus parallel value columns.
// A device tablet targets a single device; a table tablet targets a table
// and derives the device of each row from its TAG columns.
type Tablet struct {
	TargetName string // device path (device tablet) or table name (table tablet)
	Columns    []ColumnSchema

	timestamps []int64
	values     []*ColumnValues
	bitmaps    []BitMap
	rowCount   int
	maxRows    int
}

// NewTablet allocates a tablet for up to maxRows rows.
func NewTablet(target string, columns []ColumnSchema, maxRows int) *Tablet {
	t := &Tablet{
		TargetName: target,
		Columns:    columns,
		timestamps: make([]int64, maxRows),
		values:     make([]*ColumnValues, len(columns)),
		bitmaps:    make([]BitMap, len(columns)),
		maxRows:    maxRows,
	}
	for i, c := range columns {
		t.values[i] = NewColumnValues(c.DataType, maxRows)
	}
	return t
}

// AddRow appends a row slot and returns its index.
func (t *Tablet) AddRow(timestamp int64) (int, error) {
	if t.rowCount >= t.maxRows {
		return 0, tserr.New(tserr.CodeInvalidArg, "tablet full: %d rows", t.maxRows)
	}
	row := t.rowCount
	t.timestamps[row] = timestamp
	t.rowCount++
	return row, nil
}

// SetValue stores a value; nil marks the cell null.
func (t *Tablet) SetValue(row, col int, v interface{}) error {
	if col < 0 || col >= len(t.values) {
		return tserr.New(tserr.CodeColumnNotExist, "column index %d", col)
	}
	if v == nil {
		t.bitmaps[col].Mark(row)
		return nil
	}
	return t.values[col].Set(row, v)
}

// SetNull marks a cell null.
func (t *Tablet) SetNull(row, col int) {
	t.bitmaps[col].Mark(row)
}

// RowCount returns the number of appended rows.
func (t *Tablet) RowCount() int { return t.rowCount }

// Timestamps returns the time column truncated to the row count.
func (t *Tablet) Timestamps() []int64 { return t.timestamps[:t.rowCount] }

// ColumnValuesAt returns column col's typed values.
func (t *Tablet) ColumnValuesAt(col int) *ColumnValues { return t.values[col] }

// IsNull reports whether the cell is null.
func (t *Tablet) IsNull(row, col int) bool { return t.bitmaps[col].IsMarked(row) }

// ColumnIndex finds a column by name, or -1.
func (t *Tablet) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// DeviceIDAt derives the device of row from the table name and the TAG
// column values in schema order. The identity is the whole tuple; no
// joining or hashing of a single string is involved.
func (t *Tablet) DeviceIDAt(row int) (DeviceID, error) {
	segments := []string{t.TargetName}
	for col, c := range t.Columns {
		if c.Category != CategoryTag {
			continue
		}
		if t.bitmaps[col].IsMarked(row) {
			return DeviceID{}, tserr.New(tserr.CodeInvalidArg, "null TAG column %q at row %d", c.Name, row)
		}
		segments = append(segments, string(t.values[col].Binary(row)))
	}
	return NewDeviceID(segments...), nil
}
