package flattener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/featurevec/internal/evaluator"
	"github.com/danielpatrickdp/featurevec/internal/matrix"
)

// #region helpers

func rowsOf(rows ...evaluator.Row) evaluator.RowSeq {
	return func(yield func(evaluator.Row, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func denseCells(t *testing.T, m *matrix.Dense) [][]float64 {
	t.Helper()
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// #endregion helpers

// #region kind-inference

func TestFit_KindInference(t *testing.T) {
	f := New()
	err := f.Fit(rowsOf(
		evaluator.Row{1.5, "red", []float64{1, 2, 3}, []string{"a", "b"}},
	))
	require.NoError(t, err)

	assert.Equal(t, 4, f.NumSlots())
	assert.Equal(t, KindNumber, f.SlotKind(0))
	assert.Equal(t, KindEnum, f.SlotKind(1))
	assert.Equal(t, KindSequence, f.SlotKind(2))
	assert.Equal(t, KindBag, f.SlotKind(3))
	// 1 number + 1 enum label + 3 offsets + 2 bag labels
	assert.Equal(t, 7, f.NumColumns())
}

func TestFit_IntegersAreNumbers(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{3, int64(4)})))
	assert.Equal(t, KindNumber, f.SlotKind(0))
	assert.Equal(t, KindNumber, f.SlotKind(1))
}

func TestFit_EmptyDataset(t *testing.T) {
	err := New().Fit(rowsOf())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFit_EmptyRow(t *testing.T) {
	err := New().Fit(rowsOf(evaluator.Row{}))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFit_EmptyNumberSequenceRejected(t *testing.T) {
	err := New().Fit(rowsOf(evaluator.Row{[]float64{}}))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFit_UnsupportedType(t *testing.T) {
	err := New().Fit(rowsOf(evaluator.Row{struct{}{}}))
	assert.ErrorIs(t, err, ErrValidation)
}

// #endregion kind-inference

// #region dense

func TestTransform_DenseEncoding(t *testing.T) {
	f := New()
	fit := []evaluator.Row{
		{1.0, "red", []float64{9, 8}, []string{"x", "x", "y"}},
		{2.0, "blue", []float64{7, 6}, []string{"y"}},
	}
	require.NoError(t, f.Fit(rowsOf(fit...)))

	m, err := f.Transform(rowsOf(fit...))
	require.NoError(t, err)

	// Number and sequence columns are fixed from the first row, label
	// columns discovered in first-seen order during the scan:
	// 0: slot0 number, 1: seq[0], 2: seq[1], 3: red, 4: x, 5: y, 6: blue
	want := [][]float64{
		{1, 9, 8, 1, 2, 1, 0},
		{2, 7, 6, 0, 0, 1, 1},
	}
	assert.Equal(t, want, denseCells(t, m))
}

func TestTransform_UnknownLabelEncodesZero(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{"red", []string{"a"}})))

	m, err := f.Transform(rowsOf(evaluator.Row{"green", []string{"b", "a"}}))
	require.NoError(t, err)

	// Unknown enum label: all-zero one-hot. Unknown bag element: dropped.
	assert.Equal(t, [][]float64{{0, 1}}, denseCells(t, m))
}

func TestTransform_BeforeFit(t *testing.T) {
	_, err := New().Transform(rowsOf(evaluator.Row{1.0}))
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestFitTransform_MatchesFitThenTransform(t *testing.T) {
	rows := []evaluator.Row{
		{1.0, "red", []string{"a", "b"}},
		{2.0, "blue", []string{"b", "c"}},
		{3.0, "red", []string{}},
	}

	separate := New()
	require.NoError(t, separate.Fit(rowsOf(rows...)))
	want, err := separate.Transform(rowsOf(rows...))
	require.NoError(t, err)

	oneShot := New()
	got, err := oneShot.FitTransform(rowsOf(rows...))
	require.NoError(t, err)

	assert.Equal(t, denseCells(t, want), denseCells(t, got))
	for j := 0; j < separate.NumColumns(); j++ {
		wantKey, err := separate.Column(j)
		require.NoError(t, err)
		gotKey, err := oneShot.Column(j)
		require.NoError(t, err)
		assert.Equal(t, wantKey, gotKey, "column %d", j)
	}
}

func TestFitTransform_ConsumesSourceOnce(t *testing.T) {
	rows := []evaluator.Row{{1.0, "red"}, {2.0, "blue"}}
	passes := 0
	src := evaluator.RowSeq(func(yield func(evaluator.Row, error) bool) {
		passes++
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	})

	_, err := New().FitTransform(src)
	require.NoError(t, err)
	assert.Equal(t, 1, passes)
}

// #endregion dense

// #region sparse

func TestTransformSparse_EqualsDense(t *testing.T) {
	rows := []evaluator.Row{
		{0.0, "red", []float64{0, 5}, []string{"a", "a"}},
		{2.5, "blue", []float64{1, 0}, []string{}},
	}
	f := New()
	require.NoError(t, f.Fit(rowsOf(rows...)))

	dense, err := f.Transform(rowsOf(rows...))
	require.NoError(t, err)
	sparse, err := f.TransformSparse(rowsOf(rows...))
	require.NoError(t, err)

	assert.Equal(t, denseCells(t, dense), denseCells(t, sparse.Dense()))
}

func TestTransformSparse_SkipsZeros(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{1.0, []float64{1, 1}})))

	sparse, err := f.TransformSparse(rowsOf(evaluator.Row{0.0, []float64{0, 3}}))
	require.NoError(t, err)

	assert.Equal(t, 1, sparse.NNZ())
	assert.Equal(t, []float64{3}, sparse.Data())
	assert.Equal(t, []int{2}, sparse.Indices())
	assert.Equal(t, []int{0, 1}, sparse.Indptr())
}

func TestFitTransformSparse_EqualsDenseFitTransform(t *testing.T) {
	rows := []evaluator.Row{
		{1.0, []string{"a", "b", "a"}},
		{0.0, []string{"c"}},
	}
	dense, err := New().FitTransform(rowsOf(rows...))
	require.NoError(t, err)
	sparse, err := New().FitTransformSparse(rowsOf(rows...))
	require.NoError(t, err)

	assert.Equal(t, denseCells(t, dense), denseCells(t, sparse.Dense()))
}

// #endregion sparse

// #region validation

func TestTransform_SlotCountMismatch(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{1.0, 2.0})))
	_, err := f.Transform(rowsOf(evaluator.Row{1.0}))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransform_KindMismatch(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{1.0})))
	_, err := f.Transform(rowsOf(evaluator.Row{"not a number"}))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransform_SequenceLengthMismatch(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{[]float64{1, 2, 3}})))
	_, err := f.Transform(rowsOf(evaluator.Row{[]float64{1, 2}}))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFit_SequenceLengthMismatchAcrossRows(t *testing.T) {
	// A scan pass (forced by the enum slot) must also enforce the
	// sequence length fixed by the first row.
	err := New().Fit(rowsOf(
		evaluator.Row{"red", []float64{1, 2}},
		evaluator.Row{"blue", []float64{1, 2, 3}},
	))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransform_ErrorEntryPropagates(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{1.0})))

	src := evaluator.RowSeq(func(yield func(evaluator.Row, error) bool) {
		yield(nil, assert.AnError)
	})
	_, err := f.Transform(src)
	assert.ErrorIs(t, err, assert.AnError)
}

// #endregion validation

// #region pending

func TestFit_PendingSlotResolvesToBag(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(
		evaluator.Row{[]any{}},
		evaluator.Row{[]any{"a", "b"}},
	)))
	assert.Equal(t, KindBag, f.SlotKind(0))
	assert.Equal(t, 2, f.NumColumns())
}

func TestFit_PendingSlotResolvesToSequence(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(
		evaluator.Row{[]any{}},
		evaluator.Row{[]any{1.0, 2.0}},
	)))
	assert.Equal(t, KindSequence, f.SlotKind(0))
	assert.Equal(t, 2, f.NumColumns())
}

func TestTransform_UnresolvedPendingSlot(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{[]any{}})))
	assert.Equal(t, KindPending, f.SlotKind(0))

	// Empty values still pass, they just contribute no columns.
	m, err := f.Transform(rowsOf(evaluator.Row{[]any{}}))
	require.NoError(t, err)
	rows, cols := m.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 0, cols)

	// A non-empty value cannot be encoded without a kind.
	_, err = f.Transform(rowsOf(evaluator.Row{[]any{"a"}}))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFit_EmptyStringSliceIsBag(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{[]string{}})))
	assert.Equal(t, KindBag, f.SlotKind(0))
}

// #endregion pending

// #region column-lookup

func TestColumn_ReverseLookup(t *testing.T) {
	f := New()
	require.NoError(t, f.Fit(rowsOf(evaluator.Row{1.0, "red", []float64{4, 5}})))

	key, err := f.Column(0)
	require.NoError(t, err)
	assert.Equal(t, ColumnKey{Slot: 0, Offset: -1}, key)

	key, err = f.Column(2)
	require.NoError(t, err)
	assert.Equal(t, ColumnKey{Slot: 2, Offset: 1}, key)

	key, err = f.Column(3)
	require.NoError(t, err)
	assert.Equal(t, ColumnKey{Slot: 1, Label: "red", Offset: -1}, key)

	_, err = f.Column(99)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = New().Column(0)
	assert.ErrorIs(t, err, ErrNotFitted)
}

// #endregion column-lookup
