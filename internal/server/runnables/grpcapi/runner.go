// Package grpcapi serves the script action endpoint over gRPC using
// well-known protobuf types for requests and results.
package grpcapi

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"github.com/robbyt/go-supervisor/supervisor"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	_ supervisor.Runnable = (*Runner)(nil)
	_ ScriptServiceServer = (*Runner)(nil)
)

// ErrNoListenAddr is returned by New without WithListenAddr.
var ErrNoListenAddr = errors.New("a listen address must be provided")

// Dispatcher runs script actions. *gateway.Service implements it.
type Dispatcher interface {
	HandleAction(ctx context.Context, req gateway.Request) (any, error)
}

// Runner serves the script service for the lifetime of Run.
type Runner struct {
	dispatcher Dispatcher
	logger     *slog.Logger

	mu         sync.Mutex
	grpcServer GRPCServer
	listenAddr string
	runCancel  context.CancelFunc

	startGRPCServer StartGRPCServerFunc
}

// New creates a Runner dispatching to d.
func New(d Dispatcher, opts ...Option) (*Runner, error) {
	r := &Runner{
		dispatcher:      d,
		logger:          slog.Default().WithGroup("grpcapi.Runner"),
		startGRPCServer: DefaultStartGRPCServer,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.listenAddr == "" {
		return nil, ErrNoListenAddr
	}
	return r, nil
}

func (r *Runner) String() string {
	return "grpcapi.Runner"
}

// Run starts the server and blocks until ctx is done or Stop is called.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server, err := r.startGRPCServer(r.logger, r.listenAddr, r)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.grpcServer = server
	r.runCancel = cancel
	r.mu.Unlock()

	<-ctx.Done()
	r.logger.Info("Runner shutting down")
	r.stopServer()
	return nil
}

// Stop gracefully stops the server and makes Run return.
func (r *Runner) Stop() {
	r.logger.Debug("Stopping Runner")
	r.mu.Lock()
	cancel := r.runCancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Runner) stopServer() {
	r.mu.Lock()
	server := r.grpcServer
	r.grpcServer, r.runCancel = nil, nil
	r.mu.Unlock()
	if server != nil {
		server.GracefulStop()
		r.logger.Info("gRPC server stopped")
	}
}

// Action implements the Action RPC.
func (r *Runner) Action(ctx context.Context, in *structpb.Struct) (*structpb.Value, error) {
	req, err := RequestFromStruct(in)
	if err != nil {
		return nil, StatusFromError(err)
	}

	result, err := r.dispatcher.HandleAction(ctx, req)
	if err != nil {
		r.logger.Debug("Action failed", "action", req.Action, "error", err)
		return nil, StatusFromError(err)
	}

	out, err := ValueFromResult(result)
	if err != nil {
		return nil, StatusFromError(err)
	}
	return out, nil
}
