package model

import (
	"sort"

	"github.com/soltixdb/tsfile/internal/serialize"
	"github.com/soltixdb/tsfile/internal/tserr"
)

// MeasurementSchema describes one series: its name, value type and codecs.
type MeasurementSchema struct {
	Name        string
	DataType    DataType
	Encoding    Encoding
	Compression Compression
	Props       map[string]string
}

// NewMeasurementSchema builds a schema without properties.
func NewMeasurementSchema(name string, dt DataType, enc Encoding, comp Compression) MeasurementSchema {
	return MeasurementSchema{Name: name, DataType: dt, Encoding: enc, Compression: comp}
}

// Serialize appends the on-disk schema form.
func (m *MeasurementSchema) Serialize(buf []byte) []byte {
	buf = serialize.AppendString(buf, m.Name)
	buf = append(buf, byte(m.DataType), byte(m.Encoding), byte(m.Compression))
	buf = appendProps(buf, m.Props)
	return buf
}

// DeserializeMeasurementSchema parses a measurement schema.
func DeserializeMeasurementSchema(data []byte) (MeasurementSchema, int, error) {
	var m MeasurementSchema
	name, n, err := serialize.ReadString(data)
	if err != nil {
		return m, 0, err
	}
	off := n
	if len(data)-off < 3 {
		return m, 0, tserr.New(tserr.CodeCorrupted, "truncated measurement schema %q", name)
	}
	m.Name = name
	m.DataType = DataType(data[off])
	m.Encoding = Encoding(data[off+1])
	m.Compression = Compression(data[off+2])
	off += 3
	props, n, err := readProps(data[off:])
	if err != nil {
		return m, 0, err
	}
	m.Props = props
	return m, off + n, nil
}

// ColumnSchema is a measurement schema plus its table role.
type ColumnSchema struct {
	MeasurementSchema
	Category ColumnCategory
}

// TableSchema describes a table: ordered columns, at most one per name.
// The concatenation of TAG column values in schema order forms a device id.
type TableSchema struct {
	TableName string
	Columns   []ColumnSchema
}

// NewTableSchema validates column-name uniqueness.
func NewTableSchema(name string, columns []ColumnSchema) (*TableSchema, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c.Name]; dup {
			return nil, tserr.New(tserr.CodeInvalidArg, "duplicate column %q in table %q", c.Name, name)
		}
		seen[c.Name] = struct{}{}
	}
	return &TableSchema{TableName: name, Columns: columns}, nil
}

// TagColumns returns the TAG columns in schema order.
func (t *TableSchema) TagColumns() []ColumnSchema {
	var tags []ColumnSchema
	for _, c := range t.Columns {
		if c.Category == CategoryTag {
			tags = append(tags, c)
		}
	}
	return tags
}

// FieldColumns returns the FIELD columns in schema order.
func (t *TableSchema) FieldColumns() []ColumnSchema {
	var fields []ColumnSchema
	for _, c := range t.Columns {
		if c.Category == CategoryField {
			fields = append(fields, c)
		}
	}
	return fields
}

// ColumnIndex finds a column by name, or -1.
func (t *TableSchema) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Serialize appends the on-disk table schema form:
// varstring tableName, uvarint columnCount, repeated ColumnSchema.
func (t *TableSchema) Serialize(buf []byte) []byte {
	buf = serialize.AppendString(buf, t.TableName)
	buf = serialize.AppendUvarint(buf, uint64(len(t.Columns)))
	for i := range t.Columns {
		c := &t.Columns[i]
		buf = serialize.AppendString(buf, c.Name)
		buf = append(buf, byte(c.DataType), byte(c.Encoding), byte(c.Compression), byte(c.Category))
		buf = appendProps(buf, c.Props)
	}
	return buf
}

// DeserializeTableSchema parses a table schema.
func DeserializeTableSchema(data []byte) (*TableSchema, int, error) {
	name, off, err := serialize.ReadString(data)
	if err != nil {
		return nil, 0, err
	}
	cnt, n := serialize.ReadUvarint(data[off:])
	if n == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated column count in table %q", name)
	}
	off += n
	columns := make([]ColumnSchema, 0, cnt)
	for i := uint64(0); i < cnt; i++ {
		var c ColumnSchema
		c.Name, n, err = serialize.ReadString(data[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		if len(data)-off < 4 {
			return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated column schema %q", c.Name)
		}
		c.DataType = DataType(data[off])
		c.Encoding = Encoding(data[off+1])
		c.Compression = Compression(data[off+2])
		c.Category = ColumnCategory(data[off+3])
		off += 4
		c.Props, n, err = readProps(data[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		columns = append(columns, c)
	}
	return &TableSchema{TableName: name, Columns: columns}, off, nil
}

func appendProps(buf []byte, props map[string]string) []byte {
	buf = serialize.AppendUvarint(buf, uint64(len(props)))
	if len(props) == 0 {
		return buf
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf = serialize.AppendString(buf, k)
		buf = serialize.AppendString(buf, props[k])
	}
	return buf
}

func readProps(data []byte) (map[string]string, int, error) {
	cnt, off := serialize.ReadUvarint(data)
	if off == 0 {
		return nil, 0, tserr.New(tserr.CodeCorrupted, "truncated property count")
	}
	if cnt == 0 {
		return nil, off, nil
	}
	props := make(map[string]string, cnt)
	for i := uint64(0); i < cnt; i++ {
		k, n, err := serialize.ReadString(data[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		v, n, err := serialize.ReadString(data[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		props[k] = v
	}
	return props, off, nil
}
