package flattener

import (
	"iter"

	"github.com/danielpatrickdp/featurevec/internal/evaluator"
	"github.com/danielpatrickdp/featurevec/internal/matrix"
)

// #region flattener

// Flattener maps heterogeneous rows to numeric matrices. Fitting
// infers one kind per row slot from the first row (incrementally for
// bags and enumerations), fixes the column layout in first-seen order,
// and freezes both; transforming encodes any number of later rows
// against that layout, densely or as compressed sparse rows.
type Flattener struct {
	kinds   []Kind
	seqLen  []int // per slot, fixed sequence length
	index   map[ColumnKey]int
	reverse []ColumnKey
	fitted  bool
}

// New creates an unfitted flattener.
func New() *Flattener { return &Flattener{} }

// NumColumns returns the output matrix width fixed at fit.
func (f *Flattener) NumColumns() int { return len(f.reverse) }

// NumSlots returns the row width fixed at fit.
func (f *Flattener) NumSlots() int { return len(f.kinds) }

// SlotKind returns the kind inferred for the i-th row slot.
func (f *Flattener) SlotKind(i int) Kind { return f.kinds[i] }

// Column returns the key describing output column j.
func (f *Flattener) Column(j int) (ColumnKey, error) {
	if !f.fitted {
		return ColumnKey{}, ErrNotFitted
	}
	if j < 0 || j >= len(f.reverse) {
		return ColumnKey{}, validationErr("column %d out of range [0,%d)", j, len(f.reverse))
	}
	return f.reverse[j], nil
}

// #endregion flattener

// #region fit

// Fit infers the slot kinds and the column layout from the row
// stream. When no slot needs incremental discovery the stream is not
// consumed past the first row.
func (f *Flattener) Fit(rows evaluator.RowSeq) error {
	next, stop := iter.Pull2(rows)
	defer stop()

	first, err, ok := next()
	if err != nil {
		return err
	}
	if !ok {
		return validationErr("cannot fit with an empty dataset")
	}
	if err := f.fitFirst(first); err != nil {
		return err
	}
	if f.needScan() {
		if err := f.validateRow(first, true); err != nil {
			return err
		}
		for {
			row, err, ok := next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := f.validateRow(row, true); err != nil {
				return err
			}
		}
	}
	f.fitted = true
	return nil
}

// fitCollect fits while buffering every validated row, so that a
// one-shot source is consumed exactly once.
func (f *Flattener) fitCollect(rows evaluator.RowSeq) ([]evaluator.Row, error) {
	next, stop := iter.Pull2(rows)
	defer stop()

	first, err, ok := next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, validationErr("cannot fit with an empty dataset")
	}
	if err := f.fitFirst(first); err != nil {
		return nil, err
	}
	if err := f.validateRow(first, true); err != nil {
		return nil, err
	}
	buffered := []evaluator.Row{first}
	for {
		row, err, ok := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := f.validateRow(row, true); err != nil {
			return nil, err
		}
		buffered = append(buffered, row)
	}
	f.fitted = true
	return buffered, nil
}

// fitFirst fixes the slot kinds from the first row. Number and
// sequence slots get their columns here; enumerated and bag columns
// are discovered across the whole fit pass.
func (f *Flattener) fitFirst(first evaluator.Row) error {
	if len(first) == 0 {
		return validationErr("cannot fit rows with no slots")
	}
	f.kinds = make([]Kind, len(first))
	f.seqLen = make([]int, len(first))
	f.index = make(map[ColumnKey]int)
	f.reverse = nil

	for i, v := range first {
		if _, ok := asNumber(v); ok {
			f.kinds[i] = KindNumber
			f.addColumn(numberKey(i))
			continue
		}
		if _, ok := v.(string); ok {
			f.kinds[i] = KindEnum
			continue
		}
		if isEmptyCollection(v) {
			switch v.(type) {
			case []string:
				f.kinds[i] = KindBag
			case []float64, []int:
				return validationErr("slot %d: empty number sequence", i)
			default:
				f.kinds[i] = KindPending
			}
			continue
		}
		if seq, ok := asSequence(v); ok {
			f.kinds[i] = KindSequence
			f.seqLen[i] = len(seq)
			for j := range seq {
				f.addColumn(offsetKey(i, j))
			}
			continue
		}
		if _, ok := asBag(v); ok {
			f.kinds[i] = KindBag
			continue
		}
		return validationErr("slot %d: unsupported value type %T", i, v)
	}
	return nil
}

// validateRow checks a row against the fitted slots. With discover
// set it also registers new enumerated and bag columns and resolves
// pending slots.
func (f *Flattener) validateRow(row evaluator.Row, discover bool) error {
	if len(row) != len(f.kinds) {
		return validationErr("row has %d slots, want %d", len(row), len(f.kinds))
	}
	for i, v := range row {
		switch f.kinds[i] {
		case KindNumber:
			if _, ok := asNumber(v); !ok {
				return validationErr("slot %d: expected number, got %T", i, v)
			}
		case KindEnum:
			s, ok := v.(string)
			if !ok {
				return validationErr("slot %d: expected enumerated label, got %T", i, v)
			}
			if discover {
				f.addColumn(labelKey(i, s))
			}
		case KindSequence:
			seq, ok := asSequence(v)
			if !ok {
				return validationErr("slot %d: expected number sequence, got %T", i, v)
			}
			if len(seq) != f.seqLen[i] {
				return validationErr("slot %d: sequence length %d, want %d", i, len(seq), f.seqLen[i])
			}
		case KindBag:
			bag, ok := asBag(v)
			if !ok {
				return validationErr("slot %d: expected bag of labels, got %T", i, v)
			}
			if discover {
				for _, e := range bag {
					f.addColumn(labelKey(i, e))
				}
			}
		case KindPending:
			if isEmptyCollection(v) {
				continue
			}
			if !discover {
				return validationErr("slot %d: kind was never determined during fit", i)
			}
			if err := f.resolvePending(i, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolvePending fixes the kind of a slot whose first values were all
// empty, from its first non-empty value.
func (f *Flattener) resolvePending(i int, v any) error {
	if seq, ok := asSequence(v); ok && len(seq) > 0 {
		f.kinds[i] = KindSequence
		f.seqLen[i] = len(seq)
		for j := range seq {
			f.addColumn(offsetKey(i, j))
		}
		return nil
	}
	if bag, ok := asBag(v); ok {
		f.kinds[i] = KindBag
		for _, e := range bag {
			f.addColumn(labelKey(i, e))
		}
		return nil
	}
	return validationErr("slot %d: unsupported value type %T", i, v)
}

func (f *Flattener) addColumn(key ColumnKey) {
	if _, ok := f.index[key]; ok {
		return
	}
	f.index[key] = len(f.reverse)
	f.reverse = append(f.reverse, key)
}

// needScan reports whether any slot still needs column discovery
// beyond the first row.
func (f *Flattener) needScan() bool {
	for _, k := range f.kinds {
		if k == KindEnum || k == KindBag || k == KindPending {
			return true
		}
	}
	return false
}

// #endregion fit

// #region transform-dense

// Transform encodes validated rows into a dense matrix. Labels never
// seen during fit encode as zero, not as errors.
func (f *Flattener) Transform(rows evaluator.RowSeq) (*matrix.Dense, error) {
	if !f.fitted {
		return nil, ErrNotFitted
	}
	out := matrix.NewDense(0, len(f.reverse))
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		if err := f.validateRow(row, false); err != nil {
			return nil, err
		}
		vec := make([]float64, len(f.reverse))
		f.encodeDense(row, vec)
		if err := out.AppendRow(vec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FitTransform fits and transforms in one pass over the source,
// producing the same matrix, with the same column order, as Fit
// followed by Transform.
func (f *Flattener) FitTransform(rows evaluator.RowSeq) (*matrix.Dense, error) {
	buffered, err := f.fitCollect(rows)
	if err != nil {
		return nil, err
	}
	out := matrix.NewDense(0, len(f.reverse))
	for _, row := range buffered {
		vec := make([]float64, len(f.reverse))
		f.encodeDense(row, vec)
		if err := out.AppendRow(vec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *Flattener) encodeDense(row evaluator.Row, vec []float64) {
	for i, v := range row {
		switch f.kinds[i] {
		case KindNumber:
			n, _ := asNumber(v)
			vec[f.index[numberKey(i)]] = n
		case KindEnum:
			if j, ok := f.index[labelKey(i, v.(string))]; ok {
				vec[j] = 1.0
			}
		case KindSequence:
			seq, _ := asSequence(v)
			base := f.index[offsetKey(i, 0)]
			copy(vec[base:base+len(seq)], seq)
		case KindBag:
			bag, _ := asBag(v)
			for _, e := range bag {
				if j, ok := f.index[labelKey(i, e)]; ok {
					vec[j] += 1.0
				}
			}
		case KindPending:
			// empty value, no columns
		}
	}
}

// #endregion transform-dense

// #region transform-sparse

// TransformSparse is Transform with only non-zero cells emitted, as a
// compressed sparse row matrix. Densifying its output equals the
// dense transform cell for cell.
func (f *Flattener) TransformSparse(rows evaluator.RowSeq) (*matrix.CSR, error) {
	if !f.fitted {
		return nil, ErrNotFitted
	}
	out := matrix.NewCSR(len(f.reverse))
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		if err := f.validateRow(row, false); err != nil {
			return nil, err
		}
		f.encodeSparse(row, out)
		out.CloseRow()
	}
	return out, nil
}

// FitTransformSparse fits and sparse-transforms in one pass over the
// source.
func (f *Flattener) FitTransformSparse(rows evaluator.RowSeq) (*matrix.CSR, error) {
	buffered, err := f.fitCollect(rows)
	if err != nil {
		return nil, err
	}
	out := matrix.NewCSR(len(f.reverse))
	for _, row := range buffered {
		f.encodeSparse(row, out)
		out.CloseRow()
	}
	return out, nil
}

func (f *Flattener) encodeSparse(row evaluator.Row, out *matrix.CSR) {
	for i, v := range row {
		switch f.kinds[i] {
		case KindNumber:
			if n, _ := asNumber(v); n != 0 {
				out.Append(f.index[numberKey(i)], n)
			}
		case KindEnum:
			if j, ok := f.index[labelKey(i, v.(string))]; ok {
				out.Append(j, 1.0)
			}
		case KindSequence:
			seq, _ := asSequence(v)
			base := f.index[offsetKey(i, 0)]
			for k, n := range seq {
				if n != 0 {
					out.Append(base+k, n)
				}
			}
		case KindBag:
			bag, _ := asBag(v)
			counts := make(map[string]float64, len(bag))
			var order []string
			for _, e := range bag {
				if _, seen := counts[e]; !seen {
					order = append(order, e)
				}
				counts[e]++
			}
			for _, e := range order {
				if j, ok := f.index[labelKey(i, e)]; ok {
					out.Append(j, counts[e])
				}
			}
		case KindPending:
			// empty value, no columns
		}
	}
}

// #endregion transform-sparse
