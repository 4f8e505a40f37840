// Package resource defines the CRUD-style accessor that scripts reach through
// the create, read, update, patch, query, delete and action capabilities, and
// the audit sink used by scheduled runs.
package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrResource          = errors.New("resource error")
	ErrNotFound          = fmt.Errorf("%w: not found", ErrResource)
	ErrConflict          = fmt.Errorf("%w: already exists", ErrResource)
	ErrRevisionMismatch  = fmt.Errorf("%w: revision mismatch", ErrResource)
	ErrBadPath           = fmt.Errorf("%w: bad resource path", ErrResource)
	ErrUnsupportedAction = fmt.Errorf("%w: unsupported action", ErrResource)
	ErrBadPatch          = fmt.Errorf("%w: bad patch operation", ErrResource)
)

// Reserved document fields.
const (
	FieldID  = "_id"
	FieldRev = "_rev"
)

// AuditAccessPath is the collection receiving scheduled-run audit events.
const AuditAccessPath = "audit/access"

// Accessor reads and writes JSON documents addressed by slash-separated paths.
// A collection path such as "managed/user" holds documents addressed as
// "managed/user/<id>".
type Accessor interface {
	// Create stores content in collection under id, generating an id when empty.
	Create(ctx context.Context, collection, id string, content map[string]any) (map[string]any, error)
	Read(ctx context.Context, path string) (map[string]any, error)
	// Update replaces the document. An empty rev skips the revision check.
	Update(ctx context.Context, path, rev string, content map[string]any) (map[string]any, error)
	Patch(ctx context.Context, path, rev string, ops []PatchOperation) (map[string]any, error)
	Query(ctx context.Context, collection string, params map[string]any) ([]map[string]any, error)
	Delete(ctx context.Context, path, rev string) (map[string]any, error)
	Action(ctx context.Context, path, action string, content, params map[string]any) (any, error)
}

// SplitPath separates a document path into its collection and id.
func SplitPath(path string) (collection, id string, err error) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	return path[:i], path[i+1:], nil
}

// CleanCollection normalizes a collection path.
func CleanCollection(collection string) (string, error) {
	collection = strings.Trim(collection, "/")
	if collection == "" {
		return "", fmt.Errorf("%w: empty collection", ErrBadPath)
	}
	return collection, nil
}
