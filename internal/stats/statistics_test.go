package stats

import (
	"errors"
	"testing"

	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/tserr"
)

func TestInt32Statistics(t *testing.T) {
	s := New(model.Int32)
	s.UpdateInt(1, 10)
	s.UpdateInt(2, 20)
	s.UpdateInt(3, 30)

	if s.Count != 3 || s.StartTime != 1 || s.EndTime != 3 {
		t.Fatalf("range: count=%d [%d,%d]", s.Count, s.StartTime, s.EndTime)
	}
	if s.IntMin != 10 || s.IntMax != 30 || s.IntFirst != 10 || s.IntLast != 30 || s.IntSum != 60 {
		t.Errorf("summary: min=%d max=%d first=%d last=%d sum=%d",
			s.IntMin, s.IntMax, s.IntFirst, s.IntLast, s.IntSum)
	}
}

func TestOutOfOrderUpdates(t *testing.T) {
	s := New(model.Int64)
	s.UpdateInt(10, 100)
	s.UpdateInt(5, 50)  // earlier than current start
	s.UpdateInt(20, 10) // later than current end

	if s.StartTime != 5 || s.EndTime != 20 {
		t.Fatalf("range [%d,%d]", s.StartTime, s.EndTime)
	}
	if s.IntFirst != 50 || s.IntLast != 10 {
		t.Errorf("first=%d last=%d; they must follow timestamps, not arrival", s.IntFirst, s.IntLast)
	}
}

func TestBoolStatistics(t *testing.T) {
	s := New(model.Boolean)
	s.UpdateBool(1, true)
	s.UpdateBool(2, false)
	s.UpdateBool(3, true)
	if s.SumTrue != 2 || s.BoolFirst != true || s.BoolLast != true {
		t.Errorf("sumTrue=%d first=%v last=%v", s.SumTrue, s.BoolFirst, s.BoolLast)
	}
}

func TestMergeDisjoint(t *testing.T) {
	a := New(model.Double)
	a.UpdateFloat(1, 1.0)
	a.UpdateFloat(2, 2.0)
	b := New(model.Double)
	b.UpdateFloat(10, -5.0)
	b.UpdateFloat(11, 7.0)

	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if a.Count != 4 || a.StartTime != 1 || a.EndTime != 11 {
		t.Fatalf("merged range: count=%d [%d,%d]", a.Count, a.StartTime, a.EndTime)
	}
	if a.FMin != -5.0 || a.FMax != 7.0 || a.FFirst != 1.0 || a.FLast != 7.0 || a.FloatSum != 5.0 {
		t.Errorf("merged summary: min=%v max=%v first=%v last=%v sum=%v",
			a.FMin, a.FMax, a.FFirst, a.FLast, a.FloatSum)
	}
}

func TestMergeRefusesOverlap(t *testing.T) {
	a := New(model.Int64)
	a.UpdateInt(1, 1)
	a.UpdateInt(10, 2)
	b := New(model.Int64)
	b.UpdateInt(5, 3)

	if err := a.Merge(b); !errors.Is(err, tserr.InvalidArg) {
		t.Errorf("overlapping merge: want INVALID_ARG, got %v", err)
	}
}

func TestMergeIntoEmpty(t *testing.T) {
	a := New(model.Int64)
	b := New(model.Int64)
	b.UpdateInt(7, 70)
	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if a.Count != 1 || a.IntFirst != 70 || a.DataType != model.Int64 {
		t.Errorf("merge into empty: count=%d first=%d type=%s", a.Count, a.IntFirst, a.DataType)
	}
	// empty into non-empty is a no-op
	if err := a.Merge(New(model.Int64)); err != nil || a.Count != 1 {
		t.Errorf("empty merge changed stats: count=%d err=%v", a.Count, err)
	}
}

func TestCanMerge(t *testing.T) {
	if CanMerge(model.Text, model.String) {
		t.Error("TEXT must not merge into STRING")
	}
	if !CanMerge(model.Int64, model.Int64) {
		t.Error("same-type merge must be allowed")
	}
	if CanMerge(model.Int32, model.Int64) {
		t.Error("cross-type merge must be refused")
	}
}

func TestMergeClassMismatch(t *testing.T) {
	a := New(model.String)
	a.UpdateBinary(5, []byte("x"))
	b := New(model.Text)
	b.UpdateBinary(1, []byte("y"))
	if err := a.Merge(b); !errors.Is(err, tserr.StatisticsClassMismatch) {
		t.Errorf("want STATISTICS_CLASS_MISMATCH, got %v", err)
	}
}

func roundTrip(t *testing.T, s *Statistics) *Statistics {
	t.Helper()
	buf := s.Serialize(nil)
	if len(buf) != s.SerializedSize() {
		t.Fatalf("%s: SerializedSize %d but wrote %d", s.DataType, s.SerializedSize(), len(buf))
	}
	got, n, err := Deserialize(s.DataType, buf)
	if err != nil {
		t.Fatalf("%s: deserialize: %v", s.DataType, err)
	}
	if n != len(buf) {
		t.Fatalf("%s: consumed %d of %d bytes", s.DataType, n, len(buf))
	}
	return got
}

func TestSerializeRoundTripAllTypes(t *testing.T) {
	b := New(model.Boolean)
	b.UpdateBool(1, true)
	b.UpdateBool(9, false)

	i32 := New(model.Int32)
	i32.UpdateInt(1, -100)
	i32.UpdateInt(2, 100)

	i64 := New(model.Int64)
	i64.UpdateInt(5, 1<<40)
	i64.UpdateInt(6, -(1 << 40))

	f := New(model.Float)
	f.UpdateFloat(1, 1.5)
	f.UpdateFloat(2, -2.5)

	d := New(model.Double)
	d.UpdateFloat(1, 3.25)

	str := New(model.String)
	str.UpdateBinary(1, []byte("first"))
	str.UpdateBinary(9, []byte("last"))

	vec := New(model.Vector)
	vec.UpdateTime(100)
	vec.UpdateTime(101)

	for _, s := range []*Statistics{b, i32, i64, f, d, str, vec} {
		got := roundTrip(t, s)
		if !s.Equal(got) {
			t.Errorf("%s: round trip mismatch", s.DataType)
		}
	}
}

func TestDeserializeTruncated(t *testing.T) {
	s := New(model.Double)
	s.UpdateFloat(1, 2.0)
	buf := s.Serialize(nil)
	if _, _, err := Deserialize(model.Double, buf[:len(buf)-4]); err == nil {
		t.Error("expected error for truncated payload")
	}
}
