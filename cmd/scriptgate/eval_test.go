package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/atlanticdynamic/scriptgate/internal/client"
	"github.com/atlanticdynamic/scriptgate/internal/script/cache"
	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
	"github.com/atlanticdynamic/scriptgate/internal/script/fault"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"github.com/atlanticdynamic/scriptgate/internal/server/runnables/grpcapi"
	"github.com/atlanticdynamic/scriptgate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func newBufClient(t *testing.T) *client.Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := gateway.New(gateway.WithCache(cache.New(cache.WithEngines(&testutil.ExampleEngine{}))))
	runner, err := grpcapi.New(svc, grpcapi.WithListenAddr("bufnet"), grpcapi.WithLogger(logger))
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	grpcapi.RegisterScriptServiceServer(server, runner)
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	return client.New(client.Config{
		Logger:     logger,
		ServerAddr: "localhost:1",
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	})
}

func TestRunEval(t *testing.T) {
	t.Parallel()
	c := newBufClient(t)
	script := descriptor.Descriptor{Type: testutil.ExampleType, Source: "a+b"}

	t.Run("eval prints JSON", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		err := runEval(t.Context(), c, gateway.ActionEval, script, map[string]any{"a": 40, "b": 2}, &out)
		require.NoError(t, err)
		assert.Equal(t, "42\n", out.String())
	})

	t.Run("compile only", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		require.NoError(t, runEval(t.Context(), c, gateway.ActionCompile, script, nil, &out))
		assert.Equal(t, "Script compiled\n", out.String())
	})

	t.Run("compile error is client input", func(t *testing.T) {
		t.Parallel()
		broken := descriptor.Descriptor{Type: testutil.ExampleType, Source: "1 +"}
		err := runEval(t.Context(), c, gateway.ActionCompile, broken, nil, io.Discard)
		require.Error(t, err)
		assert.Equal(t, fault.KindClientInput, fault.KindOf(err))
	})

	t.Run("unknown action", func(t *testing.T) {
		t.Parallel()
		err := runEval(t.Context(), c, "frobnicate", script, nil, io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown action "frobnicate"`)
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()
		denied := descriptor.Descriptor{Type: testutil.ExampleType, Source: "throw no access"}
		err := runEval(t.Context(), c, gateway.ActionEval, denied, nil, io.Discard)
		require.Error(t, err)
		assert.Equal(t, fault.KindDenied, fault.KindOf(err))
		assert.Contains(t, err.Error(), "eval failed")
	})
}

func TestScriptFromFlags(t *testing.T) {
	t.Parallel()

	d, err := scriptFromFlags("calc", "text/starlark", "1+1", "")
	require.NoError(t, err)
	assert.Equal(t, descriptor.Descriptor{Name: "calc", Type: "text/starlark", Source: "1+1"}, d)

	d, err = scriptFromFlags("", "", "", "report.star")
	require.NoError(t, err)
	assert.Equal(t, "report.star", d.File)

	_, err = scriptFromFlags("", "", "", "")
	require.ErrorIs(t, err, errNoScript)

	_, err = scriptFromFlags("", "", "1", "a.star")
	require.Error(t, err)
}

func TestParseBindings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr string
	}{
		{
			name:  "json and plain values",
			pairs: []string{"n=5", `s="5"`, "who=ada", `obj={"a":[1,true]}`, "empty="},
			want: map[string]any{
				"n":     float64(5),
				"s":     "5",
				"who":   "ada",
				"obj":   map[string]any{"a": []any{float64(1), true}},
				"empty": "",
			},
		},
		{name: "none", pairs: nil, want: map[string]any{}},
		{name: "missing equals", pairs: []string{"who"}, wantErr: "expected key=value"},
		{name: "empty key", pairs: []string{"=1"}, wantErr: "expected key=value"},
		{name: "descriptor field", pairs: []string{"source=1"}, wantErr: "collides"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseBindings(tt.pairs)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
