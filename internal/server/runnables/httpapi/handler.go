package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
)

// ActionParam is the query parameter selecting the action.
const ActionParam = "_action"

const maxBodyBytes = 4 << 20

// Dispatcher runs actions and rejects the other verbs. *gateway.Service
// implements it.
type Dispatcher interface {
	HandleAction(ctx context.Context, req gateway.Request) (any, error)
	HandleOperation(ctx context.Context, op gateway.Operation, resourcePath string) error
}

// ErrorBody is the JSON error response.
type ErrorBody struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ScriptHandler serves the script collection at prefix and every instance
// path below it.
type ScriptHandler struct {
	dispatcher Dispatcher
	prefix     string
	logger     *slog.Logger
}

// NewScriptHandler creates a handler for requests under prefix, e.g. "/script".
func NewScriptHandler(d Dispatcher, prefix string, logger *slog.Logger) *ScriptHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptHandler{
		dispatcher: d,
		prefix:     strings.TrimSuffix(prefix, "/"),
		logger:     logger.WithGroup("httpapi.ScriptHandler"),
	}
}

func (h *ScriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resourcePath := strings.Trim(strings.TrimPrefix(r.URL.Path, h.prefix), "/")
	query := r.URL.Query()

	if r.Method == http.MethodPost && query.Has(ActionParam) {
		content, err := decodeContent(r)
		if err != nil {
			h.writeError(w, err)
			return
		}

		params := make(map[string]any, len(query))
		for key, values := range query {
			if key == ActionParam || len(values) == 0 {
				continue
			}
			params[key] = values[0]
		}

		result, err := h.dispatcher.HandleAction(ctx, gateway.Request{
			ResourcePath: resourcePath,
			Action:       query.Get(ActionParam),
			Content:      content,
			Params:       params,
		})
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, result)
		return
	}

	op, ok := operationFor(r.Method, query)
	if !ok {
		h.writeError(w, fault.ClientInput("Method %s is not allowed", r.Method))
		return
	}
	if err := h.dispatcher.HandleOperation(ctx, op, resourcePath); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func operationFor(method string, query map[string][]string) (gateway.Operation, bool) {
	switch method {
	case http.MethodPost:
		return gateway.OpCreate, true
	case http.MethodGet, http.MethodHead:
		for key := range query {
			if strings.HasPrefix(key, "_query") {
				return gateway.OpQuery, true
			}
		}
		return gateway.OpRead, true
	case http.MethodPut:
		return gateway.OpUpdate, true
	case http.MethodPatch:
		return gateway.OpPatch, true
	case http.MethodDelete:
		return gateway.OpDelete, true
	default:
		return "", false
	}
}

// decodeContent reads a JSON object body. An empty body is an empty object.
func decodeContent(r *http.Request) (map[string]any, error) {
	content := map[string]any{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&content); err != nil {
		if errors.Is(err, io.EOF) {
			return content, nil
		}
		return nil, fault.ClientInput("Request body must be a JSON object: %v", err)
	}
	return normalizeNumbers(content).(map[string]any), nil
}

// normalizeNumbers turns json.Number into int64 where exact, else float64.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	default:
		return v
	}
}

func (h *ScriptHandler) writeError(w http.ResponseWriter, err error) {
	f := fault.As(err)
	status := fault.HTTPStatus(f.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "status", status, "error", err)
	} else {
		h.logger.Debug("Request rejected", "status", status, "error", err)
	}

	h.writeJSON(w, status, ErrorBody{
		Code:    status,
		Reason:  http.StatusText(status),
		Message: f.Message,
	})
}

func (h *ScriptHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("Failed to write response", "error", err)
	}
}
