package grpcapi

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"github.com/robbyt/protobaggins"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RequestFromStruct decodes an Action request.
func RequestFromStruct(s *structpb.Struct) (gateway.Request, error) {
	fields := s.GetFields()
	req := gateway.Request{
		Action:       fields[FieldAction].GetStringValue(),
		ResourcePath: fields[FieldResourcePath].GetStringValue(),
	}

	if v, ok := fields[FieldContent]; ok {
		content := v.GetStructValue()
		if content == nil {
			return req, fault.ClientInput("%s must be an object", FieldContent)
		}
		req.Content = normalize(content.AsMap()).(map[string]any)
	}
	if v, ok := fields[FieldParams]; ok {
		params := v.GetStructValue()
		if params == nil {
			return req, fault.ClientInput("%s must be an object", FieldParams)
		}
		req.Params = normalize(params.AsMap()).(map[string]any)
	}
	return req, nil
}

// RequestToStruct encodes req for the Action call.
func RequestToStruct(req gateway.Request) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		FieldAction: protobaggins.TryNewStructValue(req.Action),
	}
	if req.ResourcePath != "" {
		fields[FieldResourcePath] = protobaggins.TryNewStructValue(req.ResourcePath)
	}
	for name, m := range map[string]map[string]any{FieldContent: req.Content, FieldParams: req.Params} {
		if m == nil {
			continue
		}
		obj, ok := jsonSafe(m).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("encoding %s: not representable as JSON", name)
		}
		s, err := structpb.NewStruct(obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
		fields[name] = structpb.NewStructValue(s)
	}
	return &structpb.Struct{Fields: fields}, nil
}

// ValueFromResult wraps a script result. Values structpb cannot hold directly
// go through a JSON round trip.
func ValueFromResult(result any) (*structpb.Value, error) {
	if v, err := structpb.NewValue(result); err == nil {
		return v, nil
	}
	v, err := structpb.NewValue(jsonSafe(result))
	if err != nil {
		return nil, fmt.Errorf("result of type %T cannot be encoded: %w", result, err)
	}
	return v, nil
}

// StatusFromError maps a fault onto a grpc status error.
func StatusFromError(err error) error {
	f := fault.As(err)
	if f == nil {
		return nil
	}
	return status.Error(fault.GRPCCode(f.Kind), f.Message)
}

// ErrorFromStatus turns a grpc status error back into a fault.
func ErrorFromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fault.Internal(err)
	}
	return fault.New(fault.FromGRPCCode(st.Code()), "%s", st.Message())
}

func jsonSafe(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Sprint(v)
	}
	return out
}

// normalize turns integral numbers into int64, matching what the HTTP
// endpoint binds for JSON integers.
func normalize(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	default:
		return v
	}
}
