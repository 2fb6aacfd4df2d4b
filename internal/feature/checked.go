package feature

import "fmt"

// #region check-types

// CheckFunc validates an input data point or an output value.
type CheckFunc func(any) error

// InputError marks a data point rejected by an input check.
type InputError struct{ Err error }

func (e *InputError) Error() string { return fmt.Sprintf("input check: %v", e.Err) }
func (e *InputError) Unwrap() error { return e.Err }

// OutputError marks a computed value rejected by an output check.
type OutputError struct{ Err error }

func (e *OutputError) Error() string { return fmt.Sprintf("output check: %v", e.Err) }
func (e *OutputError) Unwrap() error { return e.Err }

// #endregion check-types

// #region checked

// Checked wraps a feature with input and output checks. When the input
// check fails and a default was declared, the default is returned
// instead of an error; the evaluator downstream never learns a check
// ran at all.
type Checked struct {
	inner      Feature
	input      CheckFunc
	output     CheckFunc
	def        any
	hasDefault bool
}

// CheckOption configures a Checked feature.
type CheckOption func(*Checked)

// WithInputCheck validates the data point before evaluation.
func WithInputCheck(fn CheckFunc) CheckOption {
	return func(c *Checked) { c.input = fn }
}

// WithOutputCheck validates the computed value after evaluation.
func WithOutputCheck(fn CheckFunc) CheckOption {
	return func(c *Checked) { c.output = fn }
}

// WithDefault declares a value to return when the input check rejects
// a data point.
func WithDefault(v any) CheckOption {
	return func(c *Checked) { c.def = v; c.hasDefault = true }
}

// Check wraps f with the given validation options.
func Check(f Feature, opts ...CheckOption) *Checked {
	c := &Checked{inner: f}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the wrapped feature's name.
func (c *Checked) Name() string { return c.inner.Name() }

// Evaluate runs the input check, the wrapped feature and the output
// check in order.
func (c *Checked) Evaluate(d DataPoint) (any, error) {
	if c.input != nil {
		if err := c.input(d); err != nil {
			if c.hasDefault {
				return c.def, nil
			}
			return nil, &InputError{Err: err}
		}
	}
	v, err := c.inner.Evaluate(d)
	if err != nil {
		return nil, err
	}
	if c.output != nil {
		if err := c.output(v); err != nil {
			return nil, &OutputError{Err: err}
		}
	}
	return v, nil
}

// #endregion checked
