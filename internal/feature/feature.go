package feature

import "fmt"

// #region data-point

// DataPoint is an opaque caller-supplied record. The evaluator makes no
// structural assumptions about it beyond an optional primary key, used
// only for diagnostics.
type DataPoint = any

// Keyed is implemented by data points that carry a primary key.
type Keyed interface {
	PrimaryKey() string
}

// UnknownKey is recorded when a discarded sample exposes no primary key.
const UnknownKey = "PK-NOT-FOUND"

// KeyOf extracts the primary key of a data point for diagnostics.
// Map data points are probed for a "pk" entry.
func KeyOf(d DataPoint) string {
	if k, ok := d.(Keyed); ok {
		return k.PrimaryKey()
	}
	if m, ok := d.(map[string]any); ok {
		if pk, ok := m["pk"]; ok {
			return fmt.Sprint(pk)
		}
	}
	return UnknownKey
}

// #endregion data-point

// #region feature

// Feature is one unit of computation over a data point. Name must be
// stable: it is used as a map key and in diagnostics.
type Feature interface {
	Name() string
	Evaluate(d DataPoint) (any, error)
}

// Func upgrades a plain function to a Feature.
type Func struct {
	name string
	fn   func(DataPoint) (any, error)
}

// Make wraps fn as a named Feature.
func Make(name string, fn func(DataPoint) (any, error)) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the feature's stable name.
func (f *Func) Name() string { return f.name }

// Evaluate applies the wrapped function to the data point.
func (f *Func) Evaluate(d DataPoint) (any, error) { return f.fn(d) }

// #endregion feature

// #region field

// Field returns a feature that extracts the named entry from map data
// points. A missing entry or a non-map data point is an evaluation
// failure.
func Field(key string) *Func {
	return Make(key, func(d DataPoint) (any, error) {
		m, ok := d.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s: data point is %T, not an object", key, d)
		}
		v, ok := m[key]
		if !ok {
			return nil, fmt.Errorf("field %s: missing from data point %s", key, KeyOf(d))
		}
		return v, nil
	})
}

// #endregion field
