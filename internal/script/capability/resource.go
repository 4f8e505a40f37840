package capability

import (
	"context"
	"errors"

	"github.com/atlanticdynamic/scriptgate/internal/resource"
	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
)

// ResourceProvider owns the resource group in the registry.
const ResourceProvider = "resource"

// BindResources installs create, read, update, patch, query, delete and action
// as call-throughs to accessor.
func BindResources(r *Registry, accessor resource.Accessor) {
	r.installGroup(ResourceProvider, ResourceFunctions(accessor))
}

// UnbindResources removes the resource group.
func UnbindResources(r *Registry) {
	r.RemoveProvider(ResourceProvider)
}

// ResourceFunctions builds the resource group without registering it.
func ResourceFunctions(a resource.Accessor) map[string]Function {
	return map[string]Function{
		"create": func(ctx context.Context, args ...any) (any, error) {
			var collection, id string
			var content map[string]any
			var ok bool
			switch len(args) {
			case 2:
				collection, ok = args[0].(string)
				if ok {
					content, ok = optionalMap(args[1])
				}
			case 3:
				collection, ok = args[0].(string)
				if ok {
					id, ok = optionalString(args[1])
				}
				if ok {
					content, ok = optionalMap(args[2])
				}
			}
			if !ok {
				return nil, noSignature("create", args)
			}
			return resourceResult(a.Create(ctx, collection, id, content))
		},

		"read": func(ctx context.Context, args ...any) (any, error) {
			if len(args) != 1 {
				return nil, noSignature("read", args)
			}
			path, ok := args[0].(string)
			if !ok {
				return nil, noSignature("read", args)
			}
			doc, err := a.Read(ctx, path)
			if errors.Is(err, resource.ErrNotFound) {
				return nil, nil
			}
			return resourceResult(doc, err)
		},

		"update": func(ctx context.Context, args ...any) (any, error) {
			path, rev, content, ok := pathRevContent(args)
			if !ok {
				return nil, noSignature("update", args)
			}
			return resourceResult(a.Update(ctx, path, rev, content))
		},

		"patch": func(ctx context.Context, args ...any) (any, error) {
			if len(args) != 3 {
				return nil, noSignature("patch", args)
			}
			path, ok := args[0].(string)
			rev, revOK := optionalString(args[1])
			if !ok || !revOK {
				return nil, noSignature("patch", args)
			}
			ops, err := resource.ParsePatch(args[2])
			if err != nil {
				return nil, fault.Wrap(fault.KindClientInput, err, "")
			}
			return resourceResult(a.Patch(ctx, path, rev, ops))
		},

		"query": func(ctx context.Context, args ...any) (any, error) {
			if len(args) < 1 || len(args) > 2 {
				return nil, noSignature("query", args)
			}
			collection, ok := args[0].(string)
			var params map[string]any
			if ok && len(args) == 2 {
				params, ok = optionalMap(args[1])
			}
			if !ok {
				return nil, noSignature("query", args)
			}
			docs, err := a.Query(ctx, collection, params)
			if err != nil {
				return nil, classifyResourceError(err)
			}
			result := make([]any, len(docs))
			for i, d := range docs {
				result[i] = d
			}
			return map[string]any{"result": result, "resultCount": int64(len(docs))}, nil
		},

		"delete": func(ctx context.Context, args ...any) (any, error) {
			if len(args) < 1 || len(args) > 2 {
				return nil, noSignature("delete", args)
			}
			path, ok := args[0].(string)
			var rev string
			if ok && len(args) == 2 {
				rev, ok = optionalString(args[1])
			}
			if !ok {
				return nil, noSignature("delete", args)
			}
			return resourceResult(a.Delete(ctx, path, rev))
		},

		"action": func(ctx context.Context, args ...any) (any, error) {
			if len(args) < 2 || len(args) > 4 {
				return nil, noSignature("action", args)
			}
			path, ok := args[0].(string)
			name, nameOK := args[1].(string)
			ok = ok && nameOK
			var content, params map[string]any
			if ok && len(args) >= 3 {
				content, ok = optionalMap(args[2])
			}
			if ok && len(args) == 4 {
				params, ok = optionalMap(args[3])
			}
			if !ok {
				return nil, noSignature("action", args)
			}
			out, err := a.Action(ctx, path, name, content, params)
			if err != nil {
				return nil, classifyResourceError(err)
			}
			return out, nil
		},
	}
}

func pathRevContent(args []any) (string, string, map[string]any, bool) {
	if len(args) != 3 {
		return "", "", nil, false
	}
	path, ok := args[0].(string)
	if !ok {
		return "", "", nil, false
	}
	rev, ok := optionalString(args[1])
	if !ok {
		return "", "", nil, false
	}
	content, ok := optionalMap(args[2])
	return path, rev, content, ok
}

func resourceResult(doc map[string]any, err error) (any, error) {
	if err != nil {
		return nil, classifyResourceError(err)
	}
	if doc == nil {
		return nil, nil
	}
	return doc, nil
}

func classifyResourceError(err error) error {
	switch {
	case errors.Is(err, resource.ErrBadPath),
		errors.Is(err, resource.ErrBadPatch),
		errors.Is(err, resource.ErrUnsupportedAction):
		return fault.Wrap(fault.KindClientInput, err, "")
	default:
		return fault.Internal(err)
	}
}
