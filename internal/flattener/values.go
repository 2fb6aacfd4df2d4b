package flattener

// Coercions between the heterogeneous values a row may carry and the
// numeric or label forms the encoder needs. Scalars and sequence
// elements accept the usual numeric types; bag elements are strings.

// #region scalars

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// #endregion scalars

// #region collections

// asSequence coerces v to a numeric sequence. An empty []any is
// vacuously a sequence of length zero; the caller decides whether
// that is acceptable.
func asSequence(v any) ([]float64, bool) {
	switch x := v.(type) {
	case []float64:
		return x, true
	case []int:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			n, ok := asNumber(e)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

// asBag coerces v to a multiset of labels.
func asBag(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// isEmptyCollection reports whether v is a collection with no
// elements, whatever its element type.
func isEmptyCollection(v any) bool {
	switch x := v.(type) {
	case []float64:
		return len(x) == 0
	case []int:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	default:
		return false
	}
}

// #endregion collections
