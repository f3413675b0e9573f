package read

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/tsfile/internal/config"
	"github.com/soltixdb/tsfile/internal/logging"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/read/filter"
	"github.com/soltixdb/tsfile/internal/tserr"
	"github.com/soltixdb/tsfile/internal/write"
)

func tmpFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.tsfile")
}

func newWriter(t *testing.T, path string, cfg *config.Config) *write.Writer {
	t.Helper()
	w, err := write.NewWriter(path, cfg, logging.Nop())
	require.NoError(t, err)
	return w
}

func openReader(t *testing.T, path string, cfg *config.Config) *Reader {
	t.Helper()
	r, err := Open(path, cfg, logging.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func drainSeries(t *testing.T, sdr *SingleDeviceReader) *model.TsBlock {
	t.Helper()
	block, err := sdr.NextBlock(1 << 20)
	require.NoError(t, err)
	return block
}

// S1: single unaligned series round trip with exact statistics.
func TestSingleSeriesRoundTrip(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)

	device := model.NewDeviceID("d1")
	require.NoError(t, w.RegisterTimeseries(device,
		model.NewMeasurementSchema("s1", model.Int32, model.EncPlain, model.CompUncompressed)))
	for i := 1; i <= 3; i++ {
		rec := model.NewTsRecord(device, int64(i)).Add("s1", model.Int32, int32(i*10))
		require.NoError(t, w.WriteRecord(rec))
	}
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	sdr, err := r.QuerySeries(device, []string{"s1"}, nil)
	require.NoError(t, err)
	defer sdr.Close()

	block := drainSeries(t, sdr)
	require.Equal(t, 3, block.RowCount())
	col := block.ColumnByName("s1")
	for i := 0; i < 3; i++ {
		assert.Equal(t, int64(i+1), block.TimeAt(i))
		assert.Equal(t, int32((i+1)*10), col.Get(i))
	}

	ti, _, err := r.IO().LoadTimeseriesIndex(device, "s1")
	require.NoError(t, err)
	st := ti.Statistics
	assert.Equal(t, int64(3), st.Count)
	assert.Equal(t, int64(1), st.StartTime)
	assert.Equal(t, int64(3), st.EndTime)
	assert.Equal(t, int64(10), st.IntMin)
	assert.Equal(t, int64(30), st.IntMax)
	assert.Equal(t, int64(10), st.IntFirst)
	assert.Equal(t, int64(30), st.IntLast)
	assert.Equal(t, int64(60), st.IntSum)
}

// S2: aligned group with nulls in both value columns.
func TestAlignedGroupWithNulls(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)

	device := model.NewDeviceID("d2")
	require.NoError(t, w.RegisterAlignedTimeseries(device, []model.MeasurementSchema{
		model.NewMeasurementSchema("s1", model.Int64, model.EncPlain, model.CompUncompressed),
		model.NewMeasurementSchema("s2", model.Double, model.EncGorilla, model.CompSnappy),
	}))

	rows := []struct {
		t  int64
		v1 interface{}
		v2 interface{}
	}{
		{100, int64(1), 1.5},
		{101, nil, 2.5},
		{102, int64(3), nil},
	}
	for _, row := range rows {
		rec := model.NewTsRecord(device, row.t)
		if row.v1 == nil {
			rec.AddNull("s1", model.Int64)
		} else {
			rec.Add("s1", model.Int64, row.v1)
		}
		if row.v2 == nil {
			rec.AddNull("s2", model.Double)
		} else {
			rec.Add("s2", model.Double, row.v2)
		}
		require.NoError(t, w.WriteRecord(rec))
	}
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	sdr, err := r.QuerySeries(device, []string{"s1", "s2"}, nil)
	require.NoError(t, err)
	defer sdr.Close()

	block := drainSeries(t, sdr)
	require.Equal(t, 3, block.RowCount())
	s1 := block.ColumnByName("s1")
	s2 := block.ColumnByName("s2")

	assert.Equal(t, int64(100), block.TimeAt(0))
	assert.Equal(t, int64(1), s1.Get(0))
	assert.Equal(t, 1.5, s2.Get(0))

	assert.Equal(t, int64(101), block.TimeAt(1))
	assert.Nil(t, s1.Get(1))
	assert.Equal(t, 2.5, s2.Get(1))

	assert.Equal(t, int64(102), block.TimeAt(2))
	assert.Equal(t, int64(3), s1.Get(2))
	assert.Nil(t, s2.Get(2))

	assert.True(t, s1.HasNull())
	assert.True(t, s2.HasNull())
}

func benchColumns() []model.ColumnSchema {
	return []model.ColumnSchema{
		{MeasurementSchema: model.NewMeasurementSchema("id1", model.String, model.EncPlain, model.CompUncompressed), Category: model.CategoryTag},
		{MeasurementSchema: model.NewMeasurementSchema("id2", model.String, model.EncPlain, model.CompUncompressed), Category: model.CategoryTag},
		{MeasurementSchema: model.NewMeasurementSchema("s1", model.Int32, model.EncPlain, model.CompUncompressed), Category: model.CategoryField},
	}
}

// S3: table tablet spanning two devices splits into two chunk groups and
// reads back in device order.
func TestTableTabletTwoDevices(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)

	columns := benchColumns()
	schema, err := model.NewTableSchema("tbl", columns)
	require.NoError(t, err)
	require.NoError(t, w.RegisterTable(schema))

	tablet := model.NewTablet("tbl", columns, 3)
	rows := []struct {
		t        int64
		id1, id2 string
		v        int32
	}{
		{1, "a", "x", 10},
		{2, "a", "x", 11},
		{3, "b", "y", 20},
	}
	for _, rr := range rows {
		row, err := tablet.AddRow(rr.t)
		require.NoError(t, err)
		require.NoError(t, tablet.SetValue(row, 0, rr.id1))
		require.NoError(t, tablet.SetValue(row, 1, rr.id2))
		require.NoError(t, tablet.SetValue(row, 2, rr.v))
	}
	require.NoError(t, w.WriteTable(tablet))
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	rs, err := r.QueryTable("tbl", []string{"id1", "id2", "s1"}, nil, nil, nil, DeviceOrder)
	require.NoError(t, err)
	defer rs.Close()

	block1, err := rs.Next()
	require.NoError(t, err)
	require.Equal(t, 2, block1.RowCount())
	assert.Equal(t, int64(1), block1.TimeAt(0))
	assert.Equal(t, int64(2), block1.TimeAt(1))
	assert.Equal(t, []byte("a"), block1.ColumnByName("id1").Get(0))
	assert.Equal(t, []byte("x"), block1.ColumnByName("id2").Get(0))
	assert.Equal(t, int32(10), block1.ColumnByName("s1").Get(0))
	assert.Equal(t, int32(11), block1.ColumnByName("s1").Get(1))

	block2, err := rs.Next()
	require.NoError(t, err)
	require.Equal(t, 1, block2.RowCount())
	assert.Equal(t, int64(3), block2.TimeAt(0))
	assert.Equal(t, []byte("b"), block2.ColumnByName("id1").Get(0))
	assert.Equal(t, int32(20), block2.ColumnByName("s1").Get(0))

	_, err = rs.Next()
	assert.True(t, IsNoMoreData(err))
}

// S4: a small chunk-group threshold forces at least one mid-stream flush,
// leaving the series with multiple chunks.
func TestMemoryThresholdFlush(t *testing.T) {
	path := tmpFile(t)
	cfg := config.Default()
	cfg.Write.ChunkGroupSizeThreshold = 64 * 1024

	w := newWriter(t, path, cfg)
	device := model.NewDeviceID("d1")
	require.NoError(t, w.RegisterTimeseries(device,
		model.NewMeasurementSchema("s1", model.Int64, model.EncPlain, model.CompUncompressed)))

	const rows = 100000
	for i := 0; i < rows; i++ {
		rec := model.NewTsRecord(device, int64(i)).Add("s1", model.Int64, int64(i))
		require.NoError(t, w.WriteRecord(rec))
	}
	require.NoError(t, w.Close())

	r := openReader(t, path, cfg)
	ti, _, err := r.IO().LoadTimeseriesIndex(device, "s1")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(ti.ChunkMetas), 2, "expected at least one mid-stream flush")
	assert.True(t, ti.MultiChunk())

	sdr, err := r.QuerySeries(device, []string{"s1"}, nil)
	require.NoError(t, err)
	defer sdr.Close()

	total := 0
	var lastTime int64 = -1
	for sdr.HasNext() {
		block, err := sdr.NextBlock(8192)
		require.NoError(t, err)
		for i := 0; i < block.RowCount(); i++ {
			require.Greater(t, block.TimeAt(i), lastTime, "timestamps must be non-decreasing without duplicates")
			lastTime = block.TimeAt(i)
			total++
		}
	}
	assert.Equal(t, rows, total)
}

// S5: a footer larger than the initial 1 KiB tail read forces a second,
// exactly-sized read.
func TestFooterLargerThanTailRead(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	device := model.NewDeviceID("d1")
	require.NoError(t, w.RegisterTimeseries(device,
		model.NewMeasurementSchema("s1", model.Int32, model.EncPlain, model.CompUncompressed)))
	require.NoError(t, w.WriteRecord(model.NewTsRecord(device, 1).Add("s1", model.Int32, int32(1))))
	w.SetProperty("annotation", strings.Repeat("x", 4096))
	require.NoError(t, w.Close())

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, st.Size(), int64(1024))

	r := openReader(t, path, nil)
	fm, err := r.FileMeta()
	require.NoError(t, err)
	assert.Len(t, fm.Properties["annotation"], 4096)

	sdr, err := r.QuerySeries(device, []string{"s1"}, nil)
	require.NoError(t, err)
	defer sdr.Close()
	block := drainSeries(t, sdr)
	require.Equal(t, 1, block.RowCount())
}

// S6: bloom filter false-positive rate stays within 2x the configured
// rate for unregistered series.
func TestBloomNegativeFilter(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)

	const series = 1000
	for i := 0; i < series; i++ {
		device := model.NewDeviceID(fmt.Sprintf("dev%04d", i))
		require.NoError(t, w.RegisterTimeseries(device,
			model.NewMeasurementSchema("s1", model.Int64, model.EncPlain, model.CompUncompressed)))
		require.NoError(t, w.WriteRecord(model.NewTsRecord(device, 1).Add("s1", model.Int64, int64(i))))
	}
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	for i := 0; i < series; i += 97 {
		ok, err := r.MightContain(model.NewDeviceID(fmt.Sprintf("dev%04d", i)), "s1")
		require.NoError(t, err)
		assert.True(t, ok, "registered series must always hit")
	}

	falsePositives := 0
	for i := 0; i < 1000; i++ {
		ok, err := r.MightContain(model.NewDeviceID(fmt.Sprintf("ghost%04d", i)), "s1")
		require.NoError(t, err)
		if ok {
			falsePositives++
		}
	}
	assert.LessOrEqual(t, float64(falsePositives)/1000, 0.10)
}

// Empty file: create + close yields a valid file with zero series.
func TestEmptyFile(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	fm, err := r.FileMeta()
	require.NoError(t, err)
	assert.Empty(t, fm.TableIndexRoots)

	ok, err := r.MightContain(model.NewDeviceID("d1"), "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = r.IO().LoadTimeseriesIndex(model.NewDeviceID("d1"), "s1")
	code := tserr.CodeOf(err)
	assert.True(t, code == tserr.CodeTableNotExist || code == tserr.CodeNotExist ||
		code == tserr.CodeDeviceNotExist, "descent on empty file: %v", err)
}

func TestCloseIdempotent(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	device := model.NewDeviceID("d1")
	require.NoError(t, w.RegisterTimeseries(device,
		model.NewMeasurementSchema("s1", model.Int32, model.EncPlain, model.CompUncompressed)))
	require.NoError(t, w.WriteRecord(model.NewTsRecord(device, 1).Add("s1", model.Int32, int32(1))))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close must be a no-op")
}

func TestFlushIdempotent(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	device := model.NewDeviceID("d1")
	require.NoError(t, w.RegisterTimeseries(device,
		model.NewMeasurementSchema("s1", model.Int32, model.EncPlain, model.CompUncompressed)))
	require.NoError(t, w.WriteRecord(model.NewTsRecord(device, 1).Add("s1", model.Int32, int32(1))))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush(), "flush with no new data must be a no-op")
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	ti, _, err := r.IO().LoadTimeseriesIndex(device, "s1")
	require.NoError(t, err)
	assert.Len(t, ti.ChunkMetas, 1, "idempotent flush must not write empty chunk groups")
}

func TestAlignedModeFixedOnFirstRegistration(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	device := model.NewDeviceID("d1")
	require.NoError(t, w.RegisterAlignedTimeseries(device, []model.MeasurementSchema{
		model.NewMeasurementSchema("s1", model.Int32, model.EncPlain, model.CompUncompressed),
	}))
	err := w.RegisterTimeseries(device,
		model.NewMeasurementSchema("s2", model.Int32, model.EncPlain, model.CompUncompressed))
	assert.True(t, errors.Is(err, tserr.InvalidArg), "got %v", err)
	require.NoError(t, w.Close())
}

func TestUnsupportedOrder(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	columns := benchColumns()
	schema, err := model.NewTableSchema("tbl", columns)
	require.NoError(t, err)
	require.NoError(t, w.RegisterTable(schema))
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	_, err = r.QueryTable("tbl", []string{"s1"}, nil, nil, nil, TimeOrder)
	assert.True(t, errors.Is(err, tserr.UnsupportedOrder), "got %v", err)
}

func TestResultSetInvalidAfterReaderClose(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	columns := benchColumns()
	schema, err := model.NewTableSchema("tbl", columns)
	require.NoError(t, err)
	require.NoError(t, w.RegisterTable(schema))

	tablet := model.NewTablet("tbl", columns, 1)
	row, err := tablet.AddRow(1)
	require.NoError(t, err)
	require.NoError(t, tablet.SetValue(row, 0, "a"))
	require.NoError(t, tablet.SetValue(row, 1, "x"))
	require.NoError(t, tablet.SetValue(row, 2, int32(1)))
	require.NoError(t, w.WriteTable(tablet))
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	rs, err := r.QueryTable("tbl", []string{"s1"}, nil, nil, nil, DeviceOrder)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = rs.Next()
	assert.True(t, errors.Is(err, tserr.InvalidState), "got %v", err)
}

func TestMissingSeriesIsNotExist(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	device := model.NewDeviceID("d1")
	require.NoError(t, w.RegisterTimeseries(device,
		model.NewMeasurementSchema("s1", model.Int32, model.EncPlain, model.CompUncompressed)))
	require.NoError(t, w.WriteRecord(model.NewTsRecord(device, 1).Add("s1", model.Int32, int32(1))))
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	// a tree-model device doubles as its own table, so an unknown device
	// surfaces as a missing table at descent step one
	_, _, err := r.IO().LoadTimeseriesIndex(model.NewDeviceID("nope"), "s1")
	code := tserr.CodeOf(err)
	assert.True(t, code == tserr.CodeDeviceNotExist || code == tserr.CodeTableNotExist, "got %v", err)

	// a measurement beyond the last key prefix-matches the wrong region
	// and must surface NOT_EXIST after scanning it
	_, _, err = r.IO().LoadTimeseriesIndex(device, "zzz")
	code = tserr.CodeOf(err)
	assert.True(t, code == tserr.CodeNotExist || code == tserr.CodeMeasurementNotExist, "got %v", err)
}

func TestTimeFilterPushdown(t *testing.T) {
	path := tmpFile(t)
	cfg := config.Default()
	cfg.Write.PageMaxPointCount = 100
	w := newWriter(t, path, cfg)

	device := model.NewDeviceID("d1")
	require.NoError(t, w.RegisterTimeseries(device,
		model.NewMeasurementSchema("s1", model.Int64, model.EncTS2Diff, model.CompLZ4)))
	for i := 0; i < 1000; i++ {
		require.NoError(t, w.WriteRecord(model.NewTsRecord(device, int64(i)).Add("s1", model.Int64, int64(i*2))))
	}
	require.NoError(t, w.Close())

	r := openReader(t, path, cfg)
	tf := &filter.TimeRange{Min: 250, Max: 260}
	sdr, err := r.QuerySeries(device, []string{"s1"}, tf)
	require.NoError(t, err)
	defer sdr.Close()

	block := drainSeries(t, sdr)
	require.Equal(t, 11, block.RowCount())
	for i := 0; i < block.RowCount(); i++ {
		ts := block.TimeAt(i)
		assert.Equal(t, int64(250+i), ts)
		assert.Equal(t, ts*2, block.ColumnByName("s1").Get(i))
	}
}

func TestDeviceFilter(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	columns := benchColumns()
	schema, err := model.NewTableSchema("tbl", columns)
	require.NoError(t, err)
	require.NoError(t, w.RegisterTable(schema))

	tablet := model.NewTablet("tbl", columns, 4)
	for i, dev := range []string{"a", "a", "b", "c"} {
		row, err := tablet.AddRow(int64(i + 1))
		require.NoError(t, err)
		require.NoError(t, tablet.SetValue(row, 0, dev))
		require.NoError(t, tablet.SetValue(row, 1, "x"))
		require.NoError(t, tablet.SetValue(row, 2, int32(i)))
	}
	require.NoError(t, w.WriteTable(tablet))
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	rs, err := r.QueryTable("tbl", []string{"id1", "s1"}, nil,
		&filter.TagEq{Index: 0, Value: "b"}, nil, DeviceOrder)
	require.NoError(t, err)
	defer rs.Close()

	block, err := rs.Next()
	require.NoError(t, err)
	require.Equal(t, 1, block.RowCount())
	assert.Equal(t, []byte("b"), block.ColumnByName("id1").Get(0))

	_, err = rs.Next()
	assert.True(t, IsNoMoreData(err))
}

// Round trip across the supported (dataType, encoding, compression)
// surface, one representative stream per combination.
func TestCodecMatrixRoundTrip(t *testing.T) {
	type combo struct {
		dt   model.DataType
		enc  model.Encoding
		comp model.Compression
	}
	combos := []combo{
		{model.Boolean, model.EncRLE, model.CompSnappy},
		{model.Int32, model.EncTS2Diff, model.CompGzip},
		{model.Int64, model.EncZigzag, model.CompZstd},
		{model.Int64, model.EncGorilla, model.CompLZ4},
		{model.Float, model.EncGorilla, model.CompUncompressed},
		{model.Double, model.EncGorilla, model.CompZstd},
		{model.Double, model.EncPlain, model.CompSnappy},
		{model.String, model.EncDictionary, model.CompGzip},
		{model.Text, model.EncPlain, model.CompLZ4},
	}

	path := tmpFile(t)
	cfg := config.Default()
	cfg.Write.PageMaxPointCount = 50 // exercise multi-page chunks
	w := newWriter(t, path, cfg)

	device := model.NewDeviceID("dev")
	const rows = 200
	for i, c := range combos {
		name := fmt.Sprintf("m%02d", i)
		require.NoError(t, w.RegisterTimeseries(device,
			model.NewMeasurementSchema(name, c.dt, c.enc, c.comp)))
	}
	for row := 0; row < rows; row++ {
		rec := model.NewTsRecord(device, int64(row))
		for i, c := range combos {
			name := fmt.Sprintf("m%02d", i)
			rec.Add(name, c.dt, valueFor(c.dt, row))
		}
		require.NoError(t, w.WriteRecord(rec))
	}
	require.NoError(t, w.Close())

	r := openReader(t, path, cfg)
	for i, c := range combos {
		name := fmt.Sprintf("m%02d", i)
		sdr, err := r.QuerySeries(device, []string{name}, nil)
		require.NoError(t, err, "%s/%s/%s", c.dt, c.enc, c.comp)
		block := drainSeries(t, sdr)
		require.Equal(t, rows, block.RowCount(), "%s/%s/%s", c.dt, c.enc, c.comp)
		col := block.ColumnByName(name)
		for row := 0; row < rows; row++ {
			want := valueFor(c.dt, row)
			got := col.Get(row)
			if b, ok := want.(string); ok {
				assert.Equal(t, []byte(b), got, "%s row %d", name, row)
			} else {
				assert.Equal(t, want, got, "%s row %d", name, row)
			}
		}
		sdr.Close()
	}
}

// WriteTablet feeds a columnar batch to one registered device, on both
// the unaligned and the aligned path.
func TestDeviceTabletRoundTrip(t *testing.T) {
	path := tmpFile(t)
	w := newWriter(t, path, nil)

	unaligned := model.NewDeviceID("plain")
	require.NoError(t, w.RegisterTimeseries(unaligned,
		model.NewMeasurementSchema("s1", model.Int64, model.EncTS2Diff, model.CompSnappy)))
	aligned := model.NewDeviceID("grouped")
	require.NoError(t, w.RegisterAlignedTimeseries(aligned, []model.MeasurementSchema{
		model.NewMeasurementSchema("s1", model.Double, model.EncGorilla, model.CompUncompressed),
	}))

	fields := []model.ColumnSchema{
		{MeasurementSchema: model.NewMeasurementSchema("s1", model.Int64, model.EncTS2Diff, model.CompSnappy), Category: model.CategoryField},
	}
	tablet := model.NewTablet("plain", fields, 4)
	for i := 0; i < 4; i++ {
		row, err := tablet.AddRow(int64(i))
		require.NoError(t, err)
		require.NoError(t, tablet.SetValue(row, 0, int64(i*5)))
	}
	require.NoError(t, w.WriteTablet(tablet))

	alignedFields := []model.ColumnSchema{
		{MeasurementSchema: model.NewMeasurementSchema("s1", model.Double, model.EncGorilla, model.CompUncompressed), Category: model.CategoryField},
	}
	tablet2 := model.NewTablet("grouped", alignedFields, 3)
	for i := 0; i < 3; i++ {
		row, err := tablet2.AddRow(int64(100 + i))
		require.NoError(t, err)
		if i == 1 {
			tablet2.SetNull(row, 0)
		} else {
			require.NoError(t, tablet2.SetValue(row, 0, float64(i)+0.5))
		}
	}
	require.NoError(t, w.WriteTablet(tablet2))
	require.NoError(t, w.Close())

	r := openReader(t, path, nil)
	sdr, err := r.QuerySeries(unaligned, []string{"s1"}, nil)
	require.NoError(t, err)
	block := drainSeries(t, sdr)
	require.Equal(t, 4, block.RowCount())
	assert.Equal(t, int64(15), block.ColumnByName("s1").Get(3))
	sdr.Close()

	sdr, err = r.QuerySeries(aligned, []string{"s1"}, nil)
	require.NoError(t, err)
	block = drainSeries(t, sdr)
	// the null row has no other column to resurrect it, so two rows come back
	require.Equal(t, 2, block.RowCount())
	assert.Equal(t, int64(100), block.TimeAt(0))
	assert.Equal(t, 0.5, block.ColumnByName("s1").Get(0))
	assert.Equal(t, int64(102), block.TimeAt(1))
	assert.Equal(t, 2.5, block.ColumnByName("s1").Get(1))
	sdr.Close()
}

func TestOpenRejectsCorruptedFiles(t *testing.T) {
	dir := t.TempDir()

	tiny := filepath.Join(dir, "tiny")
	require.NoError(t, os.WriteFile(tiny, []byte("TsFile"), 0o644))
	_, err := Open(tiny, nil, logging.Nop(), nil)
	assert.Equal(t, tserr.CodeCorrupted, tserr.CodeOf(err))

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, bytes.Repeat([]byte{0xAB}, 64), 0o644))
	_, err = Open(garbage, nil, logging.Nop(), nil)
	assert.Equal(t, tserr.CodeCorrupted, tserr.CodeOf(err))

	// valid head, mangled tail: corruption surfaces at footer load
	path := tmpFile(t)
	w := newWriter(t, path, nil)
	require.NoError(t, w.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	mangled := filepath.Join(dir, "mangled")
	require.NoError(t, os.WriteFile(mangled, data, 0o644))
	r, err := Open(mangled, nil, logging.Nop(), nil)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.FileMeta()
	assert.Equal(t, tserr.CodeCorrupted, tserr.CodeOf(err))
}

func valueFor(dt model.DataType, row int) interface{} {
	switch dt {
	case model.Boolean:
		return row%3 == 0
	case model.Int32:
		return int32(row - 100)
	case model.Int64, model.Timestamp, model.Date:
		return int64(row) * 1000003
	case model.Float:
		return float32(row) * 1.25
	case model.Double:
		return float64(row) * 2.5
	case model.Text, model.String, model.Blob:
		return fmt.Sprintf("value-%d", row%7)
	}
	return nil
}
