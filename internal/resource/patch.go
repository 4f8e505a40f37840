package resource

import (
	"fmt"
	"maps"
	"strings"
)

// Patch operation names.
const (
	OpAdd       = "add"
	OpReplace   = "replace"
	OpRemove    = "remove"
	OpIncrement = "increment"
)

// PatchOperation modifies one field of a document. Field is a JSON-pointer
// style path such as "/mail" or "/address/city".
type PatchOperation struct {
	Operation string
	Field     string
	Value     any
}

// ParsePatch converts a decoded JSON array into patch operations.
func ParsePatch(v any) ([]PatchOperation, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of operations", ErrBadPatch)
	}

	ops := make([]PatchOperation, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: operation %d is not an object", ErrBadPatch, i)
		}
		op, _ := m["operation"].(string)
		field, _ := m["field"].(string)
		if op == "" || field == "" {
			return nil, fmt.Errorf("%w: operation %d needs operation and field", ErrBadPatch, i)
		}
		ops = append(ops, PatchOperation{Operation: op, Field: field, Value: m["value"]})
	}
	return ops, nil
}

// ApplyPatch returns a copy of doc with ops applied in order. Reserved fields
// cannot be patched.
func ApplyPatch(doc map[string]any, ops []PatchOperation) (map[string]any, error) {
	out := deepCopy(doc)
	for _, op := range ops {
		segments := strings.Split(strings.Trim(op.Field, "/"), "/")
		if len(segments) == 0 || segments[0] == "" {
			return nil, fmt.Errorf("%w: empty field", ErrBadPatch)
		}
		if segments[0] == FieldID || segments[0] == FieldRev {
			return nil, fmt.Errorf("%w: %s is read-only", ErrBadPatch, segments[0])
		}

		parent, err := walk(out, segments[:len(segments)-1], op.Operation != OpRemove)
		if err != nil {
			return nil, err
		}
		leaf := segments[len(segments)-1]

		switch op.Operation {
		case OpAdd, OpReplace:
			parent[leaf] = op.Value
		case OpRemove:
			if parent != nil {
				delete(parent, leaf)
			}
		case OpIncrement:
			cur, err := toFloat(parent[leaf])
			if err != nil {
				return nil, err
			}
			by, err := toFloat(op.Value)
			if err != nil {
				return nil, err
			}
			parent[leaf] = cur + by
		default:
			return nil, fmt.Errorf("%w: unknown operation %q", ErrBadPatch, op.Operation)
		}
	}
	return out, nil
}

func walk(doc map[string]any, segments []string, create bool) (map[string]any, error) {
	cur := doc
	for _, s := range segments {
		next, ok := cur[s].(map[string]any)
		if !ok {
			if _, exists := cur[s]; exists {
				return nil, fmt.Errorf("%w: %q is not an object", ErrBadPatch, s)
			}
			if !create {
				return nil, nil
			}
			next = make(map[string]any)
			cur[s] = next
		}
		cur = next
	}
	return cur, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %v is not a number", ErrBadPatch, v)
	}
}

func deepCopy(m map[string]any) map[string]any {
	out := maps.Clone(m)
	if out == nil {
		out = make(map[string]any)
	}
	for k, v := range out {
		if inner, ok := v.(map[string]any); ok {
			out[k] = deepCopy(inner)
		}
	}
	return out
}
