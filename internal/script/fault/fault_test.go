package fault

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestFault_ErrorsIs(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk on fire")
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
	}{
		{"client input", ClientInput("bad %s", "thing"), ErrClientInput, KindClientInput},
		{"not supported", NotSupported("nope"), ErrNotSupported, KindNotSupported},
		{"unavailable", Unavailable("gone"), ErrUnavailable, KindUnavailable},
		{"denied", Denied("nope"), ErrDenied, KindDenied},
		{"internal", Internal(cause), ErrInternal, KindInternal},
		{"compile", Wrap(KindCompile, cause, "syntax"), ErrCompile, KindCompile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.Equal(t, tt.kind, KindOf(wrapped))
		})
	}
}

func TestFault_CausePreserved(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk on fire")
	err := Internal(cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "disk on fire", err.Error())
}

func TestKindOf_Unclassified(t *testing.T) {
	t.Parallel()
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Nil(t, As(nil))

	f := As(errors.New("plain"))
	require.NotNil(t, f)
	assert.Equal(t, KindInternal, f.Kind)
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		http int
		grpc codes.Code
	}{
		{KindClientInput, http.StatusBadRequest, codes.InvalidArgument},
		{KindCompile, http.StatusBadRequest, codes.InvalidArgument},
		{KindDenied, http.StatusForbidden, codes.PermissionDenied},
		{KindUnavailable, http.StatusServiceUnavailable, codes.Unavailable},
		{KindNotSupported, http.StatusNotImplemented, codes.Unimplemented},
		{KindInternal, http.StatusInternalServerError, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.http, HTTPStatus(tt.kind))
			assert.Equal(t, tt.grpc, GRPCCode(tt.kind))
		})
	}

	assert.Equal(t, KindDenied, FromGRPCCode(codes.PermissionDenied))
	assert.Equal(t, KindInternal, FromGRPCCode(codes.DataLoss))
}
