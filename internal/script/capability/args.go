package capability

import (
	"fmt"

	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
)

func noSignature(name string, args []any) error {
	return fault.ClientInput("no matching function signature for %s with %d arguments", name, len(args))
}

// optionalString accepts a string or nil.
func optionalString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	default:
		return "", false
	}
}

// optionalMap accepts an object or nil.
func optionalMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case nil:
		return nil, true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}

// isJSONValue reports whether v is a value the crypto service accepts.
func isJSONValue(v any) bool {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, uint, uint32, uint64, float32, float64,
		[]any, map[string]any:
		return true
	}
	return false
}

// scalarText renders a string, bool or number as text. Objects, lists and nil
// are refused.
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}
