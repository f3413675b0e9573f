package model

import (
	"errors"
	"testing"

	"github.com/soltixdb/tsfile/internal/tserr"
)

func TestDeviceIDOrdering(t *testing.T) {
	a := NewDeviceID("t1", "a", "x")
	b := NewDeviceID("t1", "b", "y")
	if a.Compare(b) >= 0 {
		t.Error("a|x must sort before b|y")
	}
	if !a.Equal(NewDeviceID("t1", "a", "x")) {
		t.Error("equal tuples must compare equal")
	}
	// prefix sorts first
	short := NewDeviceID("t1", "a")
	if short.Compare(a) >= 0 {
		t.Error("shorter tuple must sort before its extension")
	}
}

func TestDeviceIDTupleIdentity(t *testing.T) {
	// identity is the tuple, not the joined string
	a := NewDeviceID("t", "ab", "c")
	b := NewDeviceID("t", "a", "bc")
	if a.Equal(b) {
		t.Error("distinct tuples with equal concatenation must differ")
	}
	if a.Key() == b.Key() {
		t.Error("keys must preserve tuple boundaries")
	}
}

func TestDeviceIDSerializeRoundTrip(t *testing.T) {
	ids := []DeviceID{
		NewDeviceID("d1"),
		NewDeviceID("table", "a", "x"),
		NewDeviceID("t", "", "y"), // empty segment survives
	}
	for _, id := range ids {
		buf := id.Serialize(nil)
		got, n, err := DeserializeDeviceID(buf)
		if err != nil || n != len(buf) {
			t.Fatalf("%s: err=%v consumed=%d/%d", id, err, n, len(buf))
		}
		if !got.Equal(id) {
			t.Errorf("round trip of %s: got %s", id, got)
		}
	}
}

func TestTableSchemaRoundTrip(t *testing.T) {
	columns := []ColumnSchema{
		{MeasurementSchema: NewMeasurementSchema("id1", String, EncPlain, CompUncompressed), Category: CategoryTag},
		{MeasurementSchema: MeasurementSchema{
			Name: "s1", DataType: Int32, Encoding: EncTS2Diff, Compression: CompSnappy,
			Props: map[string]string{"unit": "kWh"},
		}, Category: CategoryField},
	}
	schema, err := NewTableSchema("plant", columns)
	if err != nil {
		t.Fatal(err)
	}

	buf := schema.Serialize(nil)
	got, n, err := DeserializeTableSchema(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("err=%v consumed=%d/%d", err, n, len(buf))
	}
	if got.TableName != "plant" || len(got.Columns) != 2 {
		t.Fatalf("table %q with %d columns", got.TableName, len(got.Columns))
	}
	c := got.Columns[1]
	if c.Name != "s1" || c.DataType != Int32 || c.Encoding != EncTS2Diff ||
		c.Compression != CompSnappy || c.Category != CategoryField || c.Props["unit"] != "kWh" {
		t.Errorf("column mismatch: %+v", c)
	}
}

func TestTableSchemaDuplicateColumn(t *testing.T) {
	columns := []ColumnSchema{
		{MeasurementSchema: NewMeasurementSchema("x", Int32, EncPlain, CompUncompressed), Category: CategoryField},
		{MeasurementSchema: NewMeasurementSchema("x", Int64, EncPlain, CompUncompressed), Category: CategoryField},
	}
	if _, err := NewTableSchema("t", columns); !errors.Is(err, tserr.InvalidArg) {
		t.Errorf("want INVALID_ARG, got %v", err)
	}
}

func TestTabletDeviceSplit(t *testing.T) {
	columns := []ColumnSchema{
		{MeasurementSchema: NewMeasurementSchema("id1", String, EncPlain, CompUncompressed), Category: CategoryTag},
		{MeasurementSchema: NewMeasurementSchema("id2", String, EncPlain, CompUncompressed), Category: CategoryTag},
		{MeasurementSchema: NewMeasurementSchema("s1", Int32, EncPlain, CompUncompressed), Category: CategoryField},
	}
	tablet := NewTablet("tbl", columns, 3)
	rows := []struct {
		t        int64
		id1, id2 string
		v        int32
	}{
		{1, "a", "x", 10},
		{2, "a", "x", 11},
		{3, "b", "y", 20},
	}
	for _, r := range rows {
		row, err := tablet.AddRow(r.t)
		if err != nil {
			t.Fatal(err)
		}
		if err := tablet.SetValue(row, 0, r.id1); err != nil {
			t.Fatal(err)
		}
		if err := tablet.SetValue(row, 1, r.id2); err != nil {
			t.Fatal(err)
		}
		if err := tablet.SetValue(row, 2, r.v); err != nil {
			t.Fatal(err)
		}
	}

	d0, err := tablet.DeviceIDAt(0)
	if err != nil {
		t.Fatal(err)
	}
	d1, _ := tablet.DeviceIDAt(1)
	d2, _ := tablet.DeviceIDAt(2)
	if !d0.Equal(NewDeviceID("tbl", "a", "x")) || !d0.Equal(d1) {
		t.Errorf("rows 0/1 devices: %s %s", d0, d1)
	}
	if !d2.Equal(NewDeviceID("tbl", "b", "y")) {
		t.Errorf("row 2 device: %s", d2)
	}
}

func TestTabletTypeMismatch(t *testing.T) {
	columns := []ColumnSchema{
		{MeasurementSchema: NewMeasurementSchema("s1", Int32, EncPlain, CompUncompressed), Category: CategoryField},
	}
	tablet := NewTablet("d", columns, 1)
	row, _ := tablet.AddRow(1)
	if err := tablet.SetValue(row, 0, "not an int"); !errors.Is(err, tserr.InvalidDataPoint) {
		t.Errorf("want INVALID_DATA_POINT, got %v", err)
	}
}

func TestTabletNulls(t *testing.T) {
	columns := []ColumnSchema{
		{MeasurementSchema: NewMeasurementSchema("s1", Double, EncPlain, CompUncompressed), Category: CategoryField},
	}
	tablet := NewTablet("d", columns, 2)
	r0, _ := tablet.AddRow(1)
	if err := tablet.SetValue(r0, 0, nil); err != nil {
		t.Fatal(err)
	}
	r1, _ := tablet.AddRow(2)
	if err := tablet.SetValue(r1, 0, 2.5); err != nil {
		t.Fatal(err)
	}
	if !tablet.IsNull(r0, 0) || tablet.IsNull(r1, 0) {
		t.Error("null marking wrong")
	}
}

func TestBlockColumn(t *testing.T) {
	c := NewBlockColumn("s1", Int64)
	c.Append(int64(5))
	c.AppendNull()
	c.Append(int64(7))

	if c.Len() != 3 || !c.HasNull() {
		t.Fatalf("len=%d hasNull=%v", c.Len(), c.HasNull())
	}
	if c.Get(0) != int64(5) || c.Get(1) != nil || c.Get(2) != int64(7) {
		t.Errorf("values: %v %v %v", c.Get(0), c.Get(1), c.Get(2))
	}
}
