package testutil

import (
	"context"

	"github.com/atlanticdynamic/scriptgate/internal/resource"
	"github.com/stretchr/testify/mock"
)

// MockAccessor implements resource.Accessor for testing.
type MockAccessor struct {
	mock.Mock
}

var _ resource.Accessor = (*MockAccessor)(nil)

func (m *MockAccessor) Create(
	ctx context.Context,
	collection, id string,
	content map[string]any,
) (map[string]any, error) {
	args := m.Called(ctx, collection, id, content)
	return docArg(args, 0), args.Error(1)
}

func (m *MockAccessor) Read(ctx context.Context, path string) (map[string]any, error) {
	args := m.Called(ctx, path)
	return docArg(args, 0), args.Error(1)
}

func (m *MockAccessor) Update(
	ctx context.Context,
	path, rev string,
	content map[string]any,
) (map[string]any, error) {
	args := m.Called(ctx, path, rev, content)
	return docArg(args, 0), args.Error(1)
}

func (m *MockAccessor) Patch(
	ctx context.Context,
	path, rev string,
	ops []resource.PatchOperation,
) (map[string]any, error) {
	args := m.Called(ctx, path, rev, ops)
	return docArg(args, 0), args.Error(1)
}

func (m *MockAccessor) Query(
	ctx context.Context,
	collection string,
	params map[string]any,
) ([]map[string]any, error) {
	args := m.Called(ctx, collection, params)
	docs, _ := args.Get(0).([]map[string]any)
	return docs, args.Error(1)
}

func (m *MockAccessor) Delete(ctx context.Context, path, rev string) (map[string]any, error) {
	args := m.Called(ctx, path, rev)
	return docArg(args, 0), args.Error(1)
}

func (m *MockAccessor) Action(
	ctx context.Context,
	path, action string,
	content, params map[string]any,
) (any, error) {
	args := m.Called(ctx, path, action, content, params)
	return args.Get(0), args.Error(1)
}

func docArg(args mock.Arguments, i int) map[string]any {
	doc, _ := args.Get(i).(map[string]any)
	return doc
}
