package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// toStarlark converts a Go binding into a Starlark value. Maps holding at
// least one callable become structs so scripts can write openidm.read(...).
func toStarlark(name string, v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return val, nil
	case bool:
		return starlark.Bool(val), nil
	case string:
		return starlark.String(val), nil
	case []byte:
		return starlark.Bytes(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int8:
		return starlark.MakeInt64(int64(val)), nil
	case int16:
		return starlark.MakeInt64(int64(val)), nil
	case int32:
		return starlark.MakeInt64(int64(val)), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case uint:
		return starlark.MakeUint(val), nil
	case uint8:
		return starlark.MakeUint64(uint64(val)), nil
	case uint16:
		return starlark.MakeUint64(uint64(val)), nil
	case uint32:
		return starlark.MakeUint64(uint64(val)), nil
	case uint64:
		return starlark.MakeUint64(val), nil
	case float32:
		return starlark.Float(val), nil
	case float64:
		return starlark.Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return starlark.MakeInt64(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return starlark.Float(f), nil
	case Function:
		return starlarkBuiltin(name, val), nil
	case func(context.Context, ...any) (any, error):
		return starlarkBuiltin(name, val), nil
	case []string:
		elems := make([]starlark.Value, len(val))
		for i, s := range val {
			elems[i] = starlark.String(s)
		}
		return starlark.NewList(elems), nil
	case []any:
		elems := make([]starlark.Value, len(val))
		for i, e := range val {
			sv, err := toStarlark(name, e)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case []map[string]any:
		elems := make([]starlark.Value, len(val))
		for i, e := range val {
			sv, err := toStarlark(name, e)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		return mapToStarlark(val)
	case map[string]string:
		d := starlark.NewDict(len(val))
		for k, s := range val {
			if err := d.SetKey(starlark.String(k), starlark.String(s)); err != nil {
				return nil, err
			}
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported binding type %T", v)
	}
}

func mapToStarlark(m map[string]any) (starlark.Value, error) {
	hasCallable := false
	for _, v := range m {
		if IsCallable(v) {
			hasCallable = true
			break
		}
	}

	if hasCallable {
		members := make(starlark.StringDict, len(m))
		for k, v := range m {
			sv, err := toStarlark(k, v)
			if err != nil {
				return nil, err
			}
			members[k] = sv
		}
		return starlarkstruct.FromStringDict(starlarkstruct.Default, members), nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := starlark.NewDict(len(m))
	for _, k := range keys {
		sv, err := toStarlark(k, m[k])
		if err != nil {
			return nil, err
		}
		if err := d.SetKey(starlark.String(k), sv); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func starlarkBuiltin(name string, fn Function) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(
		thread *starlark.Thread,
		b *starlark.Builtin,
		args starlark.Tuple,
		kwargs []starlark.Tuple,
	) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}

		goArgs := make([]any, len(args))
		for i, a := range args {
			goArgs[i] = fromStarlark(a)
		}

		out, err := fn(threadContext(thread), goArgs...)
		if err != nil {
			return nil, err
		}
		return toStarlark(name, out)
	})
}

// fromStarlark converts a Starlark value into plain Go data: nil, bool, int64,
// float64, string, []byte, []any and map[string]any.
func fromStarlark(v starlark.Value) any {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(val)
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i
		}
		f := float64(val.Float())
		if math.IsInf(f, 0) {
			return val.String()
		}
		return f
	case starlark.Float:
		return float64(val)
	case starlark.String:
		return string(val)
	case starlark.Bytes:
		return []byte(val)
	case *starlark.List:
		out := make([]any, val.Len())
		for i := range val.Len() {
			out[i] = fromStarlark(val.Index(i))
		}
		return out
	case starlark.Tuple:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = fromStarlark(e)
		}
		return out
	case *starlark.Set:
		out := make([]any, 0, val.Len())
		iter := val.Iterate()
		defer iter.Done()
		var e starlark.Value
		for iter.Next(&e) {
			out = append(out, fromStarlark(e))
		}
		return out
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key := item[0]
			if s, ok := key.(starlark.String); ok {
				out[string(s)] = fromStarlark(item[1])
			} else {
				out[key.String()] = fromStarlark(item[1])
			}
		}
		return out
	case *starlarkstruct.Struct:
		out := make(map[string]any)
		for _, attr := range val.AttrNames() {
			av, err := val.Attr(attr)
			if err != nil || av == nil {
				continue
			}
			if _, callable := av.(starlark.Callable); callable {
				continue
			}
			out[attr] = fromStarlark(av)
		}
		return out
	default:
		return v.String()
	}
}
