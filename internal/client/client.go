// Package client calls the scriptgate gRPC endpoint.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"os"
	"strings"

	"github.com/atlanticdynamic/scriptgate/internal/script/descriptor"
	"github.com/atlanticdynamic/scriptgate/internal/script/gateway"
	"github.com/atlanticdynamic/scriptgate/internal/server/runnables/grpcapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client sends script actions to a scriptgate server.
type Client struct {
	logger     *slog.Logger
	serverAddr string
	dialOpts   []grpc.DialOption
}

// Config holds configuration options for creating a Client
type Config struct {
	Logger     *slog.Logger
	ServerAddr string
	// DialOptions are appended to the options used for every connection.
	DialOptions []grpc.DialOption
}

// New creates a new client instance
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	return &Client{
		logger:     logger,
		serverAddr: cfg.ServerAddr,
		dialOpts:   cfg.DialOptions,
	}
}

// Action sends req and returns the decoded result. Server faults come back as
// *fault.Fault with the original kind.
func (c *Client) Action(ctx context.Context, req gateway.Request) (any, error) {
	in, err := grpcapi.RequestToStruct(req)
	if err != nil {
		return nil, err
	}

	conn, err := c.connect()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.logger.Error("Failed to close connection", "error", err)
		}
	}()

	c.logger.Debug("Sending action", "server", c.serverAddr, "action", req.Action)
	out, err := grpcapi.NewScriptServiceClient(conn).Action(ctx, in)
	if err != nil {
		return nil, grpcapi.ErrorFromStatus(err)
	}
	return out.AsInterface(), nil
}

// Eval evaluates script with bindings on the server.
func (c *Client) Eval(ctx context.Context, script descriptor.Descriptor, bindings map[string]any) (any, error) {
	return c.Action(ctx, gateway.Request{Action: gateway.ActionEval, Content: content(script, bindings)})
}

// Compile compiles script on the server.
func (c *Client) Compile(ctx context.Context, script descriptor.Descriptor) error {
	_, err := c.Action(ctx, gateway.Request{Action: gateway.ActionCompile, Content: content(script, nil)})
	return err
}

func content(script descriptor.Descriptor, bindings map[string]any) map[string]any {
	out := make(map[string]any, len(bindings)+4)
	maps.Copy(out, bindings)
	maps.Copy(out, script.Map())
	return out
}

// connect dials serverAddr, which is "host:port", "tcp://host:port" or
// "unix:///path/to.sock".
func (c *Client) connect() (*grpc.ClientConn, error) {
	addr := c.serverAddr
	if !strings.Contains(addr, "://") {
		addr = "tcp://" + addr
	}

	parts := strings.SplitN(addr, "://", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddressFormat, c.serverAddr)
	}
	network, address := parts[0], parts[1]

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, c.dialOpts...)

	switch network {
	case "tcp":
		if _, port, err := net.SplitHostPort(address); err != nil || port == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTCPFormat, c.serverAddr)
		}
		c.logger.Debug("Connecting to server via TCP", "address", address)
		return grpc.NewClient(address, opts...)

	case "unix":
		c.logger.Debug("Connecting to server via Unix socket", "path", address)
		opts = append(opts, grpc.WithContextDialer(func(ctx context.Context, target string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", strings.TrimPrefix(target, "unix:"))
		}))
		return grpc.NewClient("unix:"+address, opts...)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
	}
}
