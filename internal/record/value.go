// Package record implements the flat records produced by the flattening
// passes and the record set that reconciles them into one table.
//
// A Record maps column paths to Values. Values are built up by repeated
// Merge calls during a single tree walk and become read-only once the record
// is finalized. The Set collects finalized records from many documents and
// tracks the union of all columns in first-seen order, so the exported table
// has a deterministic shape for a deterministic input ordering.
package record

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Strategy selects how Merge combines a new occurrence of a column with what
// the record already holds. Strategies are chosen by the flattening rule
// table per (ancestor context, tag); they are never stored in the record.
type Strategy int

const (
	// Overwrite replaces any existing value (last write wins). Used for
	// fields expected at most once; duplicates in malformed input resolve
	// deterministically instead of erroring.
	Overwrite Strategy = iota

	// SetUnion collects distinct string values; duplicates are no-ops and
	// the stored order is irrelevant (export is sorted).
	SetUnion

	// SeqAppend collects string values preserving document order.
	SeqAppend

	// CountInc increments an integer counter by one per occurrence; the
	// merged value is ignored.
	CountInc

	// NumericSum accumulates a running sum of float values.
	NumericSum

	// RunningMean accumulates a running sum and count, finalized into the
	// mean. Zero parsed values finalize to absent, never a division fault.
	RunningMean
)

func (s Strategy) String() string {
	switch s {
	case Overwrite:
		return "overwrite"
	case SetUnion:
		return "set-union"
	case SeqAppend:
		return "sequence-append"
	case CountInc:
		return "count-increment"
	case NumericSum:
		return "numeric-sum"
	case RunningMean:
		return "numeric-running-mean"
	default:
		return "unknown"
	}
}

// Kind tags the variant held by a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindInt
	KindFloat
	KindSet
	KindSeq
	KindAggregate // running sum/count, resolved by Finalize
)

// Value is one column's value while a record is being built.
type Value struct {
	kind Kind

	str   string
	num   float64
	count int64

	set map[string]struct{}
	seq []string

	// mean marks a KindAggregate that finalizes to sum/count rather than sum.
	mean bool
}

// Kind returns the variant currently held.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindAbsent
	}
	return v.kind
}

// StringValue returns the scalar string, or "" for other kinds.
func (v *Value) StringValue() string {
	if v == nil || v.kind != KindString {
		return ""
	}
	return v.str
}

// Int returns the integer value for KindInt (counters included), or 0.
func (v *Value) Int() int64 {
	if v == nil || v.kind != KindInt {
		return 0
	}
	return v.count
}

// Float returns the float value for KindFloat, or 0.
func (v *Value) Float() float64 {
	if v == nil || v.kind != KindFloat {
		return 0
	}
	return v.num
}

// Set returns the collected set members, sorted. Nil for other kinds.
func (v *Value) Set() []string {
	if v == nil || v.kind != KindSet {
		return nil
	}
	out := make([]string, 0, len(v.set))
	for s := range v.set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Seq returns the collected sequence in document order. Nil for other kinds.
func (v *Value) Seq() []string {
	if v == nil || v.kind != KindSeq {
		return nil
	}
	return v.seq
}

// Export converts a finalized value into the representation handed to the
// table writer:
//
//	absent   -> nil (the absence marker; distinct from "" and 0)
//	string   -> string
//	int      -> int64
//	float    -> float64
//	set      -> JSON array of sorted members
//	sequence -> JSON array in document order
//
// Sets are sorted so that re-running on permuted input yields byte-identical
// output.
func (v *Value) Export() any {
	if v == nil {
		return nil
	}
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.count
	case KindFloat:
		return v.num
	case KindSet:
		return jsonArray(v.Set())
	case KindSeq:
		return jsonArray(v.seq)
	default:
		return nil
	}
}

func jsonArray(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	if err != nil {
		// Strings always marshal; keep the column rather than failing a record.
		return "[]"
	}
	return string(b)
}

// formatFloat renders floats the way strconv round-trips them; used by
// storage backends that store text columns.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatScalar renders an exported cell as a string, for backends without
// dynamic typing. Nil stays nil at the caller (SQL NULL).
func FormatScalar(cell any) string {
	switch t := cell.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatFloat(t)
	default:
		return ""
	}
}
