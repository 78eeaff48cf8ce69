package record

// Record is the flat mapping built for one document (or one page).
//
// A record is created empty, populated by Merge* calls during a single tree
// walk, and finalized exactly once. Merge operations mutate only the record
// they are called on; there is no shared state between records.
type Record struct {
	values    map[string]*Value
	order     []string
	finalized bool
}

// New returns an empty record.
func New() *Record {
	return &Record{values: make(map[string]*Value)}
}

// Columns returns the record's column paths in first-set order.
func (r *Record) Columns() []string { return r.order }

// Value returns the value stored at path, or nil when the column is absent.
func (r *Record) Value(path string) *Value { return r.values[path] }

// Len returns the number of populated columns.
func (r *Record) Len() int { return len(r.order) }

func (r *Record) slot(path string) *Value {
	v, ok := r.values[path]
	if !ok {
		v = &Value{}
		r.values[path] = v
		r.order = append(r.order, path)
	}
	return v
}

// Merge applies one string occurrence of a column under the given strategy.
// CountInc ignores the value; numeric strategies must go through MergeNumber.
func (r *Record) Merge(path, value string, strategy Strategy) {
	switch strategy {
	case Overwrite:
		v := r.slot(path)
		v.kind = KindString
		v.str = value

	case SetUnion:
		v := r.slot(path)
		if v.kind != KindSet {
			v.kind = KindSet
			v.set = make(map[string]struct{})
		}
		v.set[value] = struct{}{}

	case SeqAppend:
		v := r.slot(path)
		if v.kind != KindSeq {
			v.kind = KindSeq
			v.seq = nil
		}
		v.seq = append(v.seq, value)

	case CountInc:
		v := r.slot(path)
		v.kind = KindInt
		v.count++

	default:
		// NumericSum / RunningMean take parsed floats.
	}
}

// MergeNumber applies one numeric occurrence under a numeric strategy.
// Callers are responsible for skipping unparsable values (value
// malformation is recovered at the dispatch layer, with a diagnostic).
func (r *Record) MergeNumber(path string, value float64, strategy Strategy) {
	switch strategy {
	case NumericSum, RunningMean:
		v := r.slot(path)
		v.kind = KindAggregate
		v.mean = strategy == RunningMean
		v.num += value
		v.count++

	case Overwrite:
		v := r.slot(path)
		v.kind = KindFloat
		v.num = value
	}
}

// SetInt stores an integer scalar (overwrite semantics).
func (r *Record) SetInt(path string, value int64) {
	v := r.slot(path)
	v.kind = KindInt
	v.count = value
}

// SetString stores a string scalar (overwrite semantics).
func (r *Record) SetString(path, value string) {
	r.Merge(path, value, Overwrite)
}

// Finalize resolves running aggregates into their terminal scalars. A mean
// over zero values becomes absent (the column is removed). Finalize is
// idempotent; after it returns the record is read-only by convention.
func (r *Record) Finalize() {
	if r.finalized {
		return
	}
	r.finalized = true

	keep := r.order[:0]
	for _, path := range r.order {
		v := r.values[path]
		if v.kind != KindAggregate {
			keep = append(keep, path)
			continue
		}
		if v.count == 0 {
			delete(r.values, path)
			continue
		}
		if v.mean {
			v.num /= float64(v.count)
		}
		v.kind = KindFloat
		keep = append(keep, path)
	}
	r.order = keep
}
