package evaluator

import (
	"fmt"
	"slices"

	"github.com/danielpatrickdp/featurevec/internal/feature"
)

// #region strict

// Strict evaluates every feature against every sample in input order
// with no tolerance: the first failure aborts the whole transform. It
// exists for datasets already known to be clean, and for serving once
// a tolerant fit has pruned the feature set.
type Strict struct {
	features []feature.Feature
	alive    []feature.Feature // frozen at Fit
}

// NewStrict creates a strict evaluator over the given features.
func NewStrict(features []feature.Feature) *Strict {
	return &Strict{features: slices.Clone(features)}
}

// Fit records all given features as alive, unchanged. The dataset is
// not consumed.
func (e *Strict) Fit(_ Dataset) error {
	if e.alive != nil {
		return ErrAlreadyFitted
	}
	e.alive = slices.Clone(e.features)
	return nil
}

// Alive returns the frozen feature sequence.
func (e *Strict) Alive() []feature.Feature {
	return slices.Clone(e.alive)
}

// Transform lazily evaluates every alive feature against every data
// point. Any failure propagates immediately, terminating the stream.
func (e *Strict) Transform(ds Dataset) RowSeq {
	if e.alive == nil {
		return failedSeq(ErrNotFitted)
	}
	return evaluateAll(e.alive, ds)
}

// FitStream fits and returns the lazy row stream of the same pass.
// The dataset is consumed once, by the stream.
func (e *Strict) FitStream(ds Dataset) (RowSeq, error) {
	if err := e.Fit(nil); err != nil {
		return nil, err
	}
	return e.Transform(ds), nil
}

// #endregion strict

// #region shared

// evaluateAll is the fail-fast row loop shared by the strict evaluator
// and the tolerant evaluator's predict mode.
func evaluateAll(alive []feature.Feature, ds Dataset) RowSeq {
	return func(yield func(Row, error) bool) {
		for d := range ds {
			row := make(Row, 0, len(alive))
			for _, f := range alive {
				v, err := f.Evaluate(d)
				if err != nil {
					yield(nil, fmt.Errorf("feature %s on sample %s: %w", f.Name(), feature.KeyOf(d), err))
					return
				}
				row = append(row, v)
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

func failedSeq(err error) RowSeq {
	return func(yield func(Row, error) bool) {
		yield(nil, err)
	}
}

// #endregion shared
