package interpolation

import (
	"errors"
	"fmt"
)

// ExpandValue expands every string inside v, recursing into maps and slices.
// Other values are returned unchanged. The input is not modified.
func ExpandValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return ExpandEnvVars(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		var errs []error
		for k, item := range val {
			expanded, err := ExpandValue(item)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", k, err))
			}
			out[k] = expanded
		}
		return out, errors.Join(errs...)
	case []any:
		out := make([]any, len(val))
		var errs []error
		for i, item := range val {
			expanded, err := ExpandValue(item)
			if err != nil {
				errs = append(errs, fmt.Errorf("[%d]: %w", i, err))
			}
			out[i] = expanded
		}
		return out, errors.Join(errs...)
	default:
		return v, nil
	}
}
