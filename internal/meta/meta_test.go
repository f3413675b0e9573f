package meta

import (
	"errors"
	"fmt"
	"testing"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/stats"
	"github.com/soltixdb/tsfile/internal/tserr"
)

func measurementNode(names []string, endOffset int64) *IndexNode {
	node := &IndexNode{EndOffset: endOffset, NodeType: LeafMeasurement}
	for i, name := range names {
		node.Children = append(node.Children, IndexEntry{Name: name, Offset: int64(100 * (i + 1))})
	}
	return node
}

func TestIndexNodeSerializeRoundTrip(t *testing.T) {
	node := measurementNode([]string{"s1", "s2", "s9"}, 999)
	buf := node.Serialize(nil)
	got, n, err := DeserializeIndexNode(buf, false)
	if err != nil || n != len(buf) {
		t.Fatalf("err=%v consumed=%d/%d", err, n, len(buf))
	}
	if got.NodeType != LeafMeasurement || got.EndOffset != 999 || len(got.Children) != 3 {
		t.Fatalf("node: %+v", got)
	}
	if got.Children[1].Name != "s2" || got.Children[1].Offset != 200 {
		t.Errorf("child 1: %+v", got.Children[1])
	}
}

func TestDeviceNodeSerializeRoundTrip(t *testing.T) {
	node := &IndexNode{EndOffset: 500, NodeType: LeafDevice}
	node.Children = append(node.Children,
		IndexEntry{Device: model.NewDeviceID("t", "a"), Offset: 10},
		IndexEntry{Device: model.NewDeviceID("t", "b"), Offset: 20},
	)
	buf := node.Serialize(nil)
	got, _, err := DeserializeIndexNode(buf, true)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Children[0].Device.Equal(model.NewDeviceID("t", "a")) {
		t.Errorf("device child: %+v", got.Children[0])
	}

	// parsing with the wrong descent context is corruption
	if _, _, err := DeserializeIndexNode(buf, false); err == nil {
		t.Error("expected mismatch error for wrong node context")
	}
}

func TestBinarySearchChildren(t *testing.T) {
	node := measurementNode([]string{"b", "d", "f"}, 999)

	// exact hit
	e, end, err := node.BinarySearchChildren("d", true)
	if err != nil || e.Name != "d" || end != 300 {
		t.Fatalf("exact d: %+v end=%d err=%v", e, end, err)
	}
	// exact miss
	if _, _, err := node.BinarySearchChildren("c", true); !errors.Is(err, tserr.NotExist) {
		t.Errorf("exact c: want NOT_EXIST, got %v", err)
	}
	// prefix match takes the largest key <= target
	e, end, err = node.BinarySearchChildren("e", false)
	if err != nil || e.Name != "d" || end != 300 {
		t.Fatalf("prefix e: %+v end=%d err=%v", e, end, err)
	}
	// last child's region ends at the node's end offset
	e, end, err = node.BinarySearchChildren("z", false)
	if err != nil || e.Name != "f" || end != 999 {
		t.Fatalf("prefix z: %+v end=%d err=%v", e, end, err)
	}
	// below the first child
	if _, _, err := node.BinarySearchChildren("a", false); !errors.Is(err, tserr.NotExist) {
		t.Errorf("below range: want NOT_EXIST, got %v", err)
	}
}

func TestBinarySearchLargeNode(t *testing.T) {
	var names []string
	for i := 0; i < 300; i++ {
		names = append(names, fmt.Sprintf("m%04d", i))
	}
	node := measurementNode(names, 1<<40)
	for i, name := range names {
		e, _, err := node.BinarySearchChildren(name, true)
		if err != nil || e.Name != name {
			t.Fatalf("child %d: %+v err=%v", i, e, err)
		}
	}
}

func TestTimeseriesIndexRoundTrip(t *testing.T) {
	st := stats.New(model.Int32)
	st.UpdateInt(1, 10)
	st.UpdateInt(3, 30)
	chunk1 := stats.New(model.Int32)
	chunk1.UpdateInt(1, 10)
	chunk2 := stats.New(model.Int32)
	chunk2.UpdateInt(3, 30)

	ti := &TimeseriesIndex{
		TsMetaType:      TsMetaMultiChunkBit,
		MeasurementName: "s1",
		DataType:        model.Int32,
		Statistics:      st,
		ChunkMetas: []IndexChunkMeta{
			{Offset: 7, Statistics: chunk1},
			{Offset: 450, Statistics: chunk2},
		},
	}
	buf := ti.Serialize(nil)
	got, n, err := DeserializeTimeseriesIndex(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("err=%v consumed=%d/%d", err, n, len(buf))
	}
	if !got.MultiChunk() || got.MeasurementName != "s1" || len(got.ChunkMetas) != 2 {
		t.Fatalf("index: %+v", got)
	}
	if got.ChunkMetas[1].Offset != 450 || got.ChunkMetas[1].Statistics.IntMax != 30 {
		t.Errorf("chunk meta 1: %+v", got.ChunkMetas[1])
	}
}

func TestTimeseriesIndexSingleChunkElidesStats(t *testing.T) {
	st := stats.New(model.Double)
	st.UpdateFloat(5, 1.5)
	ti := &TimeseriesIndex{
		MeasurementName: "s1",
		DataType:        model.Double,
		Statistics:      st,
		ChunkMetas:      []IndexChunkMeta{{Offset: 7, Statistics: st}},
	}
	buf := ti.Serialize(nil)
	got, _, err := DeserializeTimeseriesIndex(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.MultiChunk() {
		t.Error("single-chunk index must not set the multi-chunk bit")
	}
	if got.ChunkMetas[0].Statistics != nil {
		t.Error("single-chunk per-chunk stats must be elided")
	}
	if got.ChunkStatistics(0).Count != 1 {
		t.Error("chunk statistics must fall back to the series statistics")
	}
}

func TestTSMIteratorOrdering(t *testing.T) {
	mkMeta := func(name string, offset int64, lo, hi int64) *ChunkMeta {
		st := stats.New(model.Int64)
		st.UpdateInt(lo, lo)
		st.UpdateInt(hi, hi)
		return &ChunkMeta{
			MeasurementName:     name,
			OffsetOfChunkHeader: offset,
			DataType:            model.Int64,
			Statistics:          st,
		}
	}
	groups := []*ChunkGroupMeta{
		{Device: model.NewDeviceID("t", "b"), Chunks: []*ChunkMeta{
			mkMeta("s2", 100, 1, 2), mkMeta("s1", 200, 1, 2),
		}},
		{Device: model.NewDeviceID("t", "a"), Chunks: []*ChunkMeta{
			mkMeta("s1", 300, 1, 2),
		}},
		// second flush of device b: same measurement again, later offset
		{Device: model.NewDeviceID("t", "b"), Chunks: []*ChunkMeta{
			mkMeta("s1", 400, 5, 6),
		}},
	}

	it := NewTSMIterator(groups)
	type row struct {
		device string
		name   string
		chunks int
		multi  bool
	}
	var got []row
	for it.HasNext() {
		device, ti, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, row{device.String(), ti.MeasurementName, len(ti.ChunkMetas), ti.MultiChunk()})
	}
	want := []row{
		{"t.a", "s1", 1, false},
		{"t.b", "s1", 2, true},
		{"t.b", "s2", 1, false},
	}
	if len(got) != len(want) {
		t.Fatalf("rows: %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: got %+v want %+v", i, got[i], want[i])
		}
	}
	if _, _, err := it.Next(); !errors.Is(err, tserr.NoMoreData) {
		t.Errorf("exhausted iterator: want NO_MORE_DATA, got %v", err)
	}
}

func TestTSMIteratorChunkOffsetOrder(t *testing.T) {
	mk := func(offset, lo, hi int64) *ChunkMeta {
		st := stats.New(model.Int64)
		st.UpdateInt(lo, 1)
		st.UpdateInt(hi, 2)
		return &ChunkMeta{MeasurementName: "s", OffsetOfChunkHeader: offset,
			DataType: model.Int64, Statistics: st}
	}
	groups := []*ChunkGroupMeta{
		{Device: model.NewDeviceID("d"), Chunks: []*ChunkMeta{mk(500, 10, 20)}},
		{Device: model.NewDeviceID("d"), Chunks: []*ChunkMeta{mk(100, 1, 5)}},
	}
	it := NewTSMIterator(groups)
	_, ti, err := it.Next()
	if err != nil {
		t.Fatal(err)
	}
	if ti.ChunkMetas[0].Offset != 100 || ti.ChunkMetas[1].Offset != 500 {
		t.Errorf("chunks not in offset order: %+v", ti.ChunkMetas)
	}
}

func TestBloomFilter(t *testing.T) {
	bf := NewBloomFilter(1000, 0.05)
	var keys [][]byte
	for i := 0; i < 1000; i++ {
		key := SeriesKey("tbl", model.NewDeviceID("tbl", fmt.Sprintf("dev%04d", i)), "s1")
		keys = append(keys, key)
		bf.Add(key)
	}
	for i, key := range keys {
		if !bf.MightContain(key) {
			t.Fatalf("inserted key %d reported absent", i)
		}
	}

	falsePositives := 0
	const probes = 1000
	for i := 0; i < probes; i++ {
		key := SeriesKey("tbl", model.NewDeviceID("tbl", fmt.Sprintf("other%04d", i)), "s1")
		if bf.MightContain(key) {
			falsePositives++
		}
	}
	if rate := float64(falsePositives) / probes; rate > 0.10 {
		t.Errorf("false positive rate %.3f exceeds 2x configured 0.05", rate)
	}
}

func TestBloomFilterSerializeRoundTrip(t *testing.T) {
	bf := NewBloomFilter(10, 0.01)
	key := SeriesKey("t", model.NewDeviceID("t", "d"), "m")
	bf.Add(key)

	buf := bf.Serialize(nil)
	got, n, err := DeserializeBloomFilter(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("err=%v consumed=%d/%d", err, n, len(buf))
	}
	if !got.MightContain(key) {
		t.Error("deserialized filter lost the key")
	}
	if got.MightContain(SeriesKey("t", model.NewDeviceID("t", "zz"), "m")) &&
		got.MightContain(SeriesKey("t", model.NewDeviceID("t", "qq"), "m")) &&
		got.MightContain(SeriesKey("t", model.NewDeviceID("t", "ww"), "m")) {
		t.Error("filter answers true for everything")
	}
}

func TestTsFileMetaRoundTrip(t *testing.T) {
	schema, err := model.NewTableSchema("plant", []model.ColumnSchema{
		{MeasurementSchema: model.NewMeasurementSchema("id1", model.String, model.EncPlain, model.CompUncompressed), Category: model.CategoryTag},
		{MeasurementSchema: model.NewMeasurementSchema("s1", model.Int32, model.EncPlain, model.CompUncompressed), Category: model.CategoryField},
	})
	if err != nil {
		t.Fatal(err)
	}
	root := &IndexNode{EndOffset: 400, NodeType: LeafDevice}
	root.Children = append(root.Children, IndexEntry{Device: model.NewDeviceID("plant", "a"), Offset: 100})

	bf := NewBloomFilter(1, 0.05)
	bf.Add(SeriesKey("plant", model.NewDeviceID("plant", "a"), "s1"))

	fm := &TsFileMeta{
		TableIndexRoots: map[string]*IndexNode{"plant": root},
		TableSchemas:    map[string]*model.TableSchema{"plant": schema},
		MetaOffset:      1234,
		Bloom:           bf,
		Properties:      map[string]string{"creator": "soltix"},
	}
	buf := fm.Serialize(nil)
	got, err := DeserializeTsFileMeta(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.MetaOffset != 1234 || got.Properties["creator"] != "soltix" {
		t.Errorf("meta: offset=%d props=%v", got.MetaOffset, got.Properties)
	}
	if got.TableSchemas["plant"].Columns[1].Name != "s1" {
		t.Errorf("schema lost: %+v", got.TableSchemas["plant"])
	}
	if len(got.TableIndexRoots["plant"].Children) != 1 {
		t.Errorf("index root lost: %+v", got.TableIndexRoots["plant"])
	}
	if !got.Bloom.MightContain(SeriesKey("plant", model.NewDeviceID("plant", "a"), "s1")) {
		t.Error("bloom filter lost")
	}

	// trailing garbage is corruption
	if _, err := DeserializeTsFileMeta(append(buf, 0xAB)); !errors.Is(err, tserr.Corrupted) {
		t.Errorf("want TSFILE_CORRUPTED, got %v", err)
	}
}

func TestTsFileMetaAbsentBloom(t *testing.T) {
	fm := &TsFileMeta{
		TableIndexRoots: map[string]*IndexNode{},
		TableSchemas:    map[string]*model.TableSchema{},
	}
	buf := fm.Serialize(nil)
	got, err := DeserializeTsFileMeta(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bloom != nil {
		t.Error("absent bloom must stay absent")
	}
	if got.Bloom.MightContain([]byte("anything")) {
		t.Error("nil bloom must answer false")
	}
}
