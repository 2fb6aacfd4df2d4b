package vectorizer

import (
	"fmt"

	"github.com/danielpatrickdp/featurevec/internal/evaluator"
	"github.com/danielpatrickdp/featurevec/internal/feature"
	"github.com/danielpatrickdp/featurevec/internal/flattener"
	"github.com/danielpatrickdp/featurevec/internal/matrix"
)

// #region evaluator-interface

// Evaluator is the subset of the strict and tolerant evaluators the
// vectorizer drives.
type Evaluator interface {
	// FitStream fits the evaluator and returns the rows produced by
	// the fit pass, consuming the dataset exactly once.
	FitStream(ds evaluator.Dataset) (evaluator.RowSeq, error)
	// Transform evaluates the frozen alive features, fail-fast.
	Transform(ds evaluator.Dataset) evaluator.RowSeq
	// Alive returns the frozen alive feature sequence.
	Alive() []feature.Feature
}

// #endregion evaluator-interface

// #region vectorizer

// Vectorizer composes an evaluator and a flattener behind one
// fit/transform surface: raw data points in, numeric matrix out.
type Vectorizer struct {
	evaluator Evaluator
	flattener *flattener.Flattener
}

// New creates a vectorizer around the given evaluator.
func New(ev Evaluator) *Vectorizer {
	return &Vectorizer{evaluator: ev, flattener: flattener.New()}
}

// Fit runs the evaluator's fit pass and fits the flattener on its
// rows. The dataset is consumed once.
func (v *Vectorizer) Fit(ds evaluator.Dataset) error {
	rows, err := v.evaluator.FitStream(ds)
	if err != nil {
		return err
	}
	return v.flattener.Fit(rows)
}

// Transform encodes the dataset against the fitted feature set and
// column layout.
func (v *Vectorizer) Transform(ds evaluator.Dataset) (*matrix.Dense, error) {
	return v.flattener.Transform(v.evaluator.Transform(ds))
}

// TransformSparse is Transform with compressed sparse row output.
func (v *Vectorizer) TransformSparse(ds evaluator.Dataset) (*matrix.CSR, error) {
	return v.flattener.TransformSparse(v.evaluator.Transform(ds))
}

// FitTransform fits and encodes in one pass over the dataset.
func (v *Vectorizer) FitTransform(ds evaluator.Dataset) (*matrix.Dense, error) {
	rows, err := v.evaluator.FitStream(ds)
	if err != nil {
		return nil, err
	}
	return v.flattener.FitTransform(rows)
}

// FitTransformSparse is FitTransform with sparse output.
func (v *Vectorizer) FitTransformSparse(ds evaluator.Dataset) (*matrix.CSR, error) {
	rows, err := v.evaluator.FitStream(ds)
	if err != nil {
		return nil, err
	}
	return v.flattener.FitTransformSparse(rows)
}

// NumColumns returns the output matrix width fixed at fit.
func (v *Vectorizer) NumColumns() int { return v.flattener.NumColumns() }

// #endregion vectorizer

// #region column-info

// ColumnInfo describes the origin of one output matrix column, for
// feature-importance style introspection.
type ColumnInfo struct {
	Feature string
	Kind    flattener.Kind
	Label   string // enumerated or bag discriminator
	Offset  int    // sequence offset, -1 otherwise
}

// ColumnInfo maps an output column index back to the feature that
// produced it and its discriminator.
func (v *Vectorizer) ColumnInfo(j int) (ColumnInfo, error) {
	key, err := v.flattener.Column(j)
	if err != nil {
		return ColumnInfo{}, err
	}
	alive := v.evaluator.Alive()
	if key.Slot >= len(alive) {
		return ColumnInfo{}, fmt.Errorf("column %d maps to slot %d, but only %d features are alive", j, key.Slot, len(alive))
	}
	return ColumnInfo{
		Feature: alive[key.Slot].Name(),
		Kind:    v.flattener.SlotKind(key.Slot),
		Label:   key.Label,
		Offset:  key.Offset,
	}, nil
}

// #endregion column-info
