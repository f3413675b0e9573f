// Package filter provides boolean predicates over (time, value,
// statistics) used for predicate pushdown and row filtering.
package filter

import (
	"github.com/soltixdb/tsfile/internal/stats"
)

// TimeFilter is a predicate on row timestamps. SatisfyRange decides from
// statistics whether a chunk or page may contain satisfying rows; a false
// result prunes it without decoding.
type TimeFilter interface {
	Satisfy(t int64) bool
	SatisfyRange(st *stats.Statistics) bool
}

// TimeRange keeps rows with Min <= t <= Max.
type TimeRange struct {
	Min int64
	Max int64
}

func (f *TimeRange) Satisfy(t int64) bool { return t >= f.Min && t <= f.Max }

func (f *TimeRange) SatisfyRange(st *stats.Statistics) bool {
	if st == nil || st.Count == 0 {
		return false
	}
	return st.StartTime <= f.Max && st.EndTime >= f.Min
}

// TimeGt keeps rows with t > Bound.
type TimeGt struct{ Bound int64 }

func (f *TimeGt) Satisfy(t int64) bool { return t > f.Bound }
func (f *TimeGt) SatisfyRange(st *stats.Statistics) bool {
	return st != nil && st.Count > 0 && st.EndTime > f.Bound
}

// TimeGtEq keeps rows with t >= Bound.
type TimeGtEq struct{ Bound int64 }

func (f *TimeGtEq) Satisfy(t int64) bool { return t >= f.Bound }
func (f *TimeGtEq) SatisfyRange(st *stats.Statistics) bool {
	return st != nil && st.Count > 0 && st.EndTime >= f.Bound
}

// TimeLt keeps rows with t < Bound.
type TimeLt struct{ Bound int64 }

func (f *TimeLt) Satisfy(t int64) bool { return t < f.Bound }
func (f *TimeLt) SatisfyRange(st *stats.Statistics) bool {
	return st != nil && st.Count > 0 && st.StartTime < f.Bound
}

// TimeLtEq keeps rows with t <= Bound.
type TimeLtEq struct{ Bound int64 }

func (f *TimeLtEq) Satisfy(t int64) bool { return t <= f.Bound }
func (f *TimeLtEq) SatisfyRange(st *stats.Statistics) bool {
	return st != nil && st.Count > 0 && st.StartTime <= f.Bound
}

// TimeEq keeps rows with t == Bound.
type TimeEq struct{ Bound int64 }

func (f *TimeEq) Satisfy(t int64) bool { return t == f.Bound }
func (f *TimeEq) SatisfyRange(st *stats.Statistics) bool {
	return st != nil && st.Count > 0 && st.StartTime <= f.Bound && f.Bound <= st.EndTime
}

// TimeNotEq keeps rows with t != Bound.
type TimeNotEq struct{ Bound int64 }

func (f *TimeNotEq) Satisfy(t int64) bool { return t != f.Bound }
func (f *TimeNotEq) SatisfyRange(st *stats.Statistics) bool {
	if st == nil || st.Count == 0 {
		return false
	}
	return !(st.StartTime == f.Bound && st.EndTime == f.Bound)
}

// And keeps rows satisfying both operands.
type And struct{ Left, Right TimeFilter }

func (f *And) Satisfy(t int64) bool { return f.Left.Satisfy(t) && f.Right.Satisfy(t) }
func (f *And) SatisfyRange(st *stats.Statistics) bool {
	return f.Left.SatisfyRange(st) && f.Right.SatisfyRange(st)
}

// Or keeps rows satisfying either operand.
type Or struct{ Left, Right TimeFilter }

func (f *Or) Satisfy(t int64) bool { return f.Left.Satisfy(t) || f.Right.Satisfy(t) }
func (f *Or) SatisfyRange(st *stats.Statistics) bool {
	return f.Left.SatisfyRange(st) || f.Right.SatisfyRange(st)
}

// DeviceFilter prunes devices during a table scan by their id segments.
type DeviceFilter interface {
	SatisfyDevice(segments []string) bool
}

// TagEq keeps devices whose tag segment at Index equals Value. Index 0 is
// the first TAG column, not the table name.
type TagEq struct {
	Index int
	Value string
}

func (f *TagEq) SatisfyDevice(segments []string) bool {
	i := f.Index + 1 // segment 0 is the table name
	return i < len(segments) && segments[i] == f.Value
}
