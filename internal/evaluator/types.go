package evaluator

import (
	"errors"
	"iter"

	"github.com/danielpatrickdp/featurevec/internal/feature"
)

// #region defaults

const (
	// DefaultStrictUntil is the leading span of the continuing sample
	// index during which any feature failure excludes the feature
	// immediately. Early failures are assumed structural, not noise.
	DefaultStrictUntil = 100

	// DefaultMaxErrors is how many failures a feature may accumulate
	// past the strict window before it is excluded.
	DefaultMaxErrors = 5

	logStep = 500
)

// #endregion defaults

// #region errors

var (
	// ErrNoFeaturesLeft aborts a fit that excluded its last feature.
	ErrNoFeaturesLeft = errors.New("no features left alive")

	// ErrNotFitted is returned when transforming before a fit.
	ErrNotFitted = errors.New("evaluator is not fitted")

	// ErrAlreadyFitted is returned on a second fit of the same instance.
	ErrAlreadyFitted = errors.New("evaluator is already fitted")
)

// #endregion errors

// #region stream-types

// Row is an ordered sequence of values, one per alive feature.
type Row = []any

// Dataset is a single-pass sequence of data points. A fit or transform
// consumes it exactly once; callers with one-shot sources must not
// reuse it.
type Dataset = iter.Seq[feature.DataPoint]

// RowSeq is a lazy, forward-only row stream. A non-nil error entry
// terminates the stream.
type RowSeq = iter.Seq2[Row, error]

// FromSlice adapts a slice of data points to a Dataset.
func FromSlice(points []feature.DataPoint) Dataset {
	return func(yield func(feature.DataPoint) bool) {
		for _, d := range points {
			if !yield(d) {
				return
			}
		}
	}
}

// #endregion stream-types

// #region fit-stats

// FitStats records every omission made during one fit run. It is
// created fresh per fit and read-only afterward.
type FitStats struct {
	// DiscardedSamples holds the primary keys of failing samples in
	// failure order. A sample retried and failed again appears once
	// per failure.
	DiscardedSamples []string

	// FeatureFailures maps a feature name to the samples it failed on.
	FeatureFailures map[string][]feature.DataPoint

	// Excluded lists excluded feature names in exclusion order.
	Excluded []string
}

func newFitStats() *FitStats {
	return &FitStats{FeatureFailures: make(map[string][]feature.DataPoint)}
}

// IsExcluded reports whether the named feature was excluded.
func (s *FitStats) IsExcluded(name string) bool {
	for _, n := range s.Excluded {
		if n == name {
			return true
		}
	}
	return false
}

// Artifact is the portable training-stats record handed to external
// persistence and orchestration.
type Artifact struct {
	DiscardedSampleIDs []string `json:"discarded_sample_ids"`
	ExcludedFeatures   []string `json:"excluded_features"`
}

// Artifact returns the training-stats artifact for this fit.
func (s *FitStats) Artifact() Artifact {
	return Artifact{
		DiscardedSampleIDs: append([]string(nil), s.DiscardedSamples...),
		ExcludedFeatures:   append([]string(nil), s.Excluded...),
	}
}

// #endregion fit-stats
