package evaluator

import (
	"fmt"
	"log"
	"slices"

	"github.com/danielpatrickdp/featurevec/internal/feature"
)

// #region tolerant

// Tolerant is the fault-tolerant evaluator. During fit it absorbs
// feature failures sample by sample: early failures exclude the
// feature outright (strict window), later ones are tolerated up to a
// budget, and samples discarded because of a feature are reconsidered
// if that feature is later excluded. After fit the surviving feature
// sequence is frozen and Transform behaves exactly like the strict
// evaluator over it.
type Tolerant struct {
	features    []feature.Feature
	strictUntil int
	maxErrors   int

	alive []feature.Feature // frozen after fit, nil before
	stats *FitStats
}

// Option configures a tolerant evaluator.
type Option func(*Tolerant)

// WithStrictWindow overrides the strict-window length.
func WithStrictWindow(n int) Option {
	return func(e *Tolerant) { e.strictUntil = n }
}

// WithMaxErrors overrides the tolerated failure budget per feature.
func WithMaxErrors(n int) Option {
	return func(e *Tolerant) { e.maxErrors = n }
}

// NewTolerant creates a tolerant evaluator over the given features.
func NewTolerant(features []feature.Feature, opts ...Option) *Tolerant {
	e := &Tolerant{
		features:    slices.Clone(features),
		strictUntil: DefaultStrictUntil,
		maxErrors:   DefaultMaxErrors,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit runs the tolerant evaluation over the dataset, pruning the
// feature set, without keeping rows.
func (e *Tolerant) Fit(ds Dataset) error {
	_, err := e.fitTransform(ds, false)
	return err
}

// FitTransform runs the tolerant evaluation and returns the rows of
// every surviving sample, rectangular over the final alive features.
func (e *Tolerant) FitTransform(ds Dataset) ([]Row, error) {
	return e.fitTransform(ds, true)
}

// FitStream is FitTransform with the rows exposed as a stream, for
// composition with the flattener.
func (e *Tolerant) FitStream(ds Dataset) (RowSeq, error) {
	rows, err := e.FitTransform(ds)
	if err != nil {
		return nil, err
	}
	return func(yield func(Row, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}, nil
}

// Transform evaluates the frozen alive features in predict mode: no
// retries, no exclusion, failures propagate immediately. Tolerance at
// serving time would silently change the feature contract.
func (e *Tolerant) Transform(ds Dataset) RowSeq {
	if e.alive == nil {
		return failedSeq(ErrNotFitted)
	}
	return evaluateAll(e.alive, ds)
}

// Alive returns the frozen feature sequence of the last fit.
func (e *Tolerant) Alive() []feature.Feature {
	return slices.Clone(e.alive)
}

// Stats returns the training-stats record of the last fit.
func (e *Tolerant) Stats() *FitStats { return e.stats }

func (e *Tolerant) fitTransform(ds Dataset, collect bool) ([]Row, error) {
	if e.alive != nil {
		return nil, ErrAlreadyFitted
	}
	run := &fitRun{
		alive:       slices.Clone(e.features),
		stats:       newFitStats(),
		strictUntil: e.strictUntil,
		maxErrors:   e.maxErrors,
		collect:     collect,
	}
	rows, err := run.consume(ds)
	if err != nil {
		return nil, err
	}
	e.alive = run.alive
	e.stats = run.stats
	return rows, nil
}

// #endregion tolerant

// #region fit-run

// fitRun holds the mutable state of one fit pass. It is created fresh
// per fit and owned exclusively by that fit.
type fitRun struct {
	alive       []feature.Feature
	stats       *FitStats
	rows        []Row
	retry       []feature.DataPoint
	next        int // continuing sample index, never reset between rounds
	strictUntil int
	maxErrors   int
	collect     bool
}

// consume processes the dataset in rounds: round 0 is the source
// itself, each later round the samples reconsidered after a feature
// exclusion. The sample index continues across rounds, so a deferred
// sample is no longer eligible for strict-mode exclusion even if it
// was originally early in the dataset.
func (r *fitRun) consume(ds Dataset) ([]Row, error) {
	var fatal error
	for d := range ds {
		if err := r.sample(d); err != nil {
			fatal = err
			break
		}
	}
	if fatal != nil {
		return nil, fatal
	}
	for len(r.retry) > 0 {
		batch := r.retry
		r.retry = nil
		log.Printf("evaluator: retrying %d samples that were previously discarded", len(batch))
		for _, d := range batch {
			if err := r.sample(d); err != nil {
				return nil, err
			}
		}
	}
	return r.rows, nil
}

// sample evaluates one data point against a snapshot of the alive
// sequence. Any failure abandons the rest of the row.
func (r *fitRun) sample(d feature.DataPoint) error {
	i := r.next
	r.next++
	if i > 0 && i%logStep == 0 {
		log.Printf("evaluator: features evaluated for %d samples", i)
	}
	row := make(Row, 0, len(r.alive))
	for _, f := range slices.Clone(r.alive) {
		v, err := f.Evaluate(d)
		if err != nil {
			return r.failure(f, d, i, err)
		}
		row = append(row, v)
	}
	if r.collect {
		r.rows = append(r.rows, row)
	}
	return nil
}

// failure records the discarded sample and decides the feature's fate.
// Inside the strict window any failure excludes the feature; past it
// the feature survives until its failure count exceeds the budget. A
// tolerated failure leaves the sample discarded; it re-enters the
// retry batch only if the feature is excluded later.
func (r *fitRun) failure(f feature.Feature, d feature.DataPoint, i int, err error) error {
	name := f.Name()
	log.Printf("evaluator: feature %s failed on sample %s: %v", name, feature.KeyOf(d), err)
	r.stats.DiscardedSamples = append(r.stats.DiscardedSamples, feature.KeyOf(d))
	r.stats.FeatureFailures[name] = append(r.stats.FeatureFailures[name], d)

	if i < r.strictUntil || len(r.stats.FeatureFailures[name]) > r.maxErrors {
		return r.exclude(f)
	}
	return nil
}

// exclude removes the feature from the alive sequence, strips its
// column from every accumulated row using the position it held before
// removal, and merges its failure history into the retry batch.
func (r *fitRun) exclude(f feature.Feature) error {
	name := f.Name()
	idx := slices.IndexFunc(r.alive, func(g feature.Feature) bool { return g.Name() == name })
	if idx < 0 {
		return fmt.Errorf("excluding %s: feature not alive", name)
	}
	r.alive = slices.Delete(r.alive, idx, idx+1)
	if len(r.alive) == 0 {
		return fmt.Errorf("excluding %s: %w", name, ErrNoFeaturesLeft)
	}
	log.Printf("evaluator: excluded feature %s (%d alive)", name, len(r.alive))
	r.stats.Excluded = append(r.stats.Excluded, name)
	if r.collect {
		for j, row := range r.rows {
			r.rows[j] = slices.Delete(row, idx, idx+1)
		}
	}
	r.retry = append(r.retry, r.stats.FeatureFailures[name]...)
	return nil
}

// #endregion fit-run
