package model

// BlockColumn is one materialized output column: typed values plus a null
// mask, appended row by row.
type BlockColumn struct {
	Name     string
	DataType DataType

	nulls  []bool
	bools  []bool
	i32s   []int32
	i64s   []int64
	f32s   []float32
	f64s   []float64
	binary [][]byte
}

// NewBlockColumn creates an empty output column.
func NewBlockColumn(name string, dt DataType) *BlockColumn {
	return &BlockColumn{Name: name, DataType: dt}
}

// AppendNull appends a null cell.
func (c *BlockColumn) AppendNull() {
	c.appendSlot()
	c.nulls[len(c.nulls)-1] = true
}

// Append appends a non-null value. The runtime type must match.
func (c *BlockColumn) Append(v interface{}) {
	c.appendSlot()
	i := len(c.nulls) - 1
	switch c.DataType {
	case Boolean:
		c.bools[i] = v.(bool)
	case Int32:
		c.i32s[i] = v.(int32)
	case Int64, Timestamp, Date:
		c.i64s[i] = v.(int64)
	case Float:
		c.f32s[i] = v.(float32)
	case Double:
		c.f64s[i] = v.(float64)
	case Text, Blob, String:
		switch b := v.(type) {
		case []byte:
			c.binary[i] = b
		case string:
			c.binary[i] = []byte(b)
		}
	}
}

func (c *BlockColumn) appendSlot() {
	c.nulls = append(c.nulls, false)
	switch c.DataType {
	case Boolean:
		c.bools = append(c.bools, false)
	case Int32:
		c.i32s = append(c.i32s, 0)
	case Int64, Timestamp, Date:
		c.i64s = append(c.i64s, 0)
	case Float:
		c.f32s = append(c.f32s, 0)
	case Double:
		c.f64s = append(c.f64s, 0)
	case Text, Blob, String:
		c.binary = append(c.binary, nil)
	}
}

// Len returns the number of rows appended.
func (c *BlockColumn) Len() int { return len(c.nulls) }

// IsNull reports whether row i is null.
func (c *BlockColumn) IsNull(i int) bool { return c.nulls[i] }

// HasNull reports whether any row is null.
func (c *BlockColumn) HasNull() bool {
	for _, n := range c.nulls {
		if n {
			return true
		}
	}
	return false
}

// Get returns row i boxed, or nil when the cell is null.
func (c *BlockColumn) Get(i int) interface{} {
	if c.nulls[i] {
		return nil
	}
	switch c.DataType {
	case Boolean:
		return c.bools[i]
	case Int32:
		return c.i32s[i]
	case Int64, Timestamp, Date:
		return c.i64s[i]
	case Float:
		return c.f32s[i]
	case Double:
		return c.f64s[i]
	case Text, Blob, String:
		return c.binary[i]
	}
	return nil
}

// TsBlock is a column-major result block: a time column plus value columns
// with equal row counts.
type TsBlock struct {
	times   []int64
	columns []*BlockColumn
}

// NewTsBlock creates a block over the given output columns.
func NewTsBlock(columns ...*BlockColumn) *TsBlock {
	return &TsBlock{columns: columns}
}

// AppendTime appends a row timestamp. Value columns are appended by the
// caller; counts must end up equal.
func (b *TsBlock) AppendTime(t int64) { b.times = append(b.times, t) }

// RowCount returns the number of rows.
func (b *TsBlock) RowCount() int { return len(b.times) }

// TimeAt returns the timestamp of row i.
func (b *TsBlock) TimeAt(i int) int64 { return b.times[i] }

// Times returns the time column.
func (b *TsBlock) Times() []int64 { return b.times }

// ColumnCount returns the number of value columns.
func (b *TsBlock) ColumnCount() int { return len(b.columns) }

// Column returns value column i.
func (b *TsBlock) Column(i int) *BlockColumn { return b.columns[i] }

// ColumnByName finds a value column, or nil.
func (b *TsBlock) ColumnByName(name string) *BlockColumn {
	for _, c := range b.columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// IsEmpty reports whether the block holds no rows.
func (b *TsBlock) IsEmpty() bool { return len(b.times) == 0 }
