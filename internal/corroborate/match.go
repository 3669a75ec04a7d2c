package corroborate

import (
	"encoding/json"
	"strings"

	"github.com/marquee-data/marquee-cli/internal/model"
)

// numericTolerance is the fraction of the larger magnitude within which two
// independent numeric observations count as agreeing. Financial estimates
// routinely differ by rounding without being wrong.
const numericTolerance = 0.10

// ValuesMatch decides support versus contradiction for two observed values.
// comparable is false when the evidence value is absent or the kinds cannot
// be compared; incomparable evidence never counts as contradiction.
func ValuesMatch(proposed, observed any) (match bool, comparable bool) {
	if observed == nil || proposed == nil {
		return false, false
	}

	if ps, ok := asString(proposed); ok {
		os, ok2 := asString(observed)
		if !ok2 {
			return false, false
		}
		return strings.EqualFold(strings.TrimSpace(ps), strings.TrimSpace(os)), true
	}

	if pb, ok := proposed.(bool); ok {
		ob, ok2 := observed.(bool)
		if !ok2 {
			return false, false
		}
		return pb == ob, true
	}

	if pr, ok := asRange(proposed); ok {
		or, ok2 := asRange(observed)
		if !ok2 {
			return false, false
		}
		return numbersClose(pr.Low, or.Low) && numbersClose(pr.High, or.High), true
	}

	if pf, ok := asFloat(proposed); ok {
		of, ok2 := asFloat(observed)
		if !ok2 {
			return false, false
		}
		return numbersClose(pf, of), true
	}

	return false, false
}

func numbersClose(a, b float64) bool {
	if a == b {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	larger := abs(a)
	if abs(b) > larger {
		larger = abs(b)
	}
	if larger == 0 {
		return true
	}
	return diff <= numericTolerance*larger
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// asRange coerces the shapes a paired estimate arrives in: the model type,
// a two-element slice, or a decoded JSON object with low/high keys.
func asRange(v any) (model.Range, bool) {
	switch r := v.(type) {
	case model.Range:
		return r, true
	case *model.Range:
		if r == nil {
			return model.Range{}, false
		}
		return *r, true
	case [2]float64:
		return model.Range{Low: r[0], High: r[1]}, true
	case []float64:
		if len(r) == 2 {
			return model.Range{Low: r[0], High: r[1]}, true
		}
	case []any:
		if len(r) == 2 {
			lo, ok1 := asFloat(r[0])
			hi, ok2 := asFloat(r[1])
			if ok1 && ok2 {
				return model.Range{Low: lo, High: hi}, true
			}
		}
	case map[string]any:
		lo, ok1 := asFloat(r["low"])
		hi, ok2 := asFloat(r["high"])
		if ok1 && ok2 {
			return model.Range{Low: lo, High: hi}, true
		}
	}
	return model.Range{}, false
}
