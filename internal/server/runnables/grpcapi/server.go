package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// startupGrace is how long Serve may fail before the server counts as up.
const startupGrace = 200 * time.Millisecond

const unixPrefix = "unix:"

var (
	// ErrEmptySocketPath is a "unix:" listen address without a path.
	ErrEmptySocketPath = errors.New("invalid unix socket address: empty path")
	// ErrNotSocket refuses to replace a regular file with a socket.
	ErrNotSocket = errors.New("path exists and is not a socket")
)

// GRPCServer is a running server the Runner can stop.
type GRPCServer interface {
	GracefulStop()
}

// StartGRPCServerFunc starts a server for the script service on listenAddr.
type StartGRPCServerFunc func(
	logger *slog.Logger,
	listenAddr string,
	server ScriptServiceServer,
) (GRPCServer, error)

// DefaultStartGRPCServer listens on listenAddr ("host:port" or
// "unix:/path.sock") and serves the script service in the background. Every
// call is logged with its status code.
func DefaultStartGRPCServer(
	logger *slog.Logger,
	listenAddr string,
	server ScriptServiceServer,
) (GRPCServer, error) {
	lis, err := listen(logger, listenAddr)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(callLogger(logger)))
	RegisterScriptServiceServer(srv, server)

	if err := serve(logger, srv, lis); err != nil {
		return nil, err
	}
	logger.Info("Script service listening", "network", lis.Addr().Network(), "address", lis.Addr().String())
	return srv, nil
}

// listen opens the listener for listenAddr, clearing a stale unix socket
// first.
func listen(logger *slog.Logger, listenAddr string) (net.Listener, error) {
	network, address, err := parseListenAddr(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("parsing listen address %q: %w", listenAddr, err)
	}

	if network == "unix" {
		if err := removeStaleSocket(logger, address); err != nil {
			return nil, err
		}
	}

	lis, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s://%s: %w", network, address, err)
	}
	return lis, nil
}

// serve runs srv on lis and waits startupGrace for an early failure.
func serve(logger *slog.Logger, srv *grpc.Server, lis net.Listener) error {
	failed := make(chan error, 1)
	go func() {
		err := srv.Serve(lis)
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("Script service stopped with error", "error", err)
			failed <- err
			return
		}
		logger.Debug("Script service stopped")
	}()

	select {
	case err := <-failed:
		if closeErr := lis.Close(); closeErr != nil {
			logger.Debug("Failed to close listener", "error", closeErr)
		}
		return fmt.Errorf("gRPC server startup error: %w", err)
	case <-time.After(startupGrace):
		return nil
	}
}

// callLogger logs each unary call. Server-side faults log at Error, the rest
// at Debug.
func callLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		level := slog.LevelDebug
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "gRPC call",
			"method", info.FullMethod,
			"code", code.String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}

// parseListenAddr maps "unix:/path" to a unix socket. Anything else is a TCP
// address for net.Listen to validate.
func parseListenAddr(listenAddr string) (network string, address string, err error) {
	path, isUnix := strings.CutPrefix(listenAddr, unixPrefix)
	if !isUnix {
		return "tcp", listenAddr, nil
	}
	if path == "" {
		return "", "", ErrEmptySocketPath
	}
	return "unix", path, nil
}

// removeStaleSocket deletes a socket file left by a previous process. Symlinks
// are not followed.
func removeStaleSocket(logger *slog.Logger, path string) error {
	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat unix socket %q: %w", path, err)
	case info.Mode()&os.ModeSocket == 0:
		return fmt.Errorf("%w: %q", ErrNotSocket, path)
	}

	logger.Warn("Removing stale unix socket", "path", path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove unix socket %q: %w", path, err)
	}
	return nil
}
