package engine

import (
	"context"
	"fmt"

	"github.com/progsynth/ast-env/go-env/internal/state"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// #region invoker

// Invoker is the unary transport under the client. *grpc.ClientConn
// satisfies it; tests inject a fake.
type Invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// #endregion invoker

// #region client-struct

// Client is the gRPC binding to an out-of-process native engine service.
// It implements Engine. Mutating calls send the record and copy the
// engine's reply back into the caller's record, so the caller's buffer
// never aliases wire buffers.
type Client struct {
	conn *grpc.ClientConn
	inv  Invoker
}

var _ Engine = (*Client)(nil)

// #endregion client-struct

// #region constructor

// NewClient connects to the engine service.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, inv: conn}, nil
}

// NewClientWithInvoker creates a Client with an injected transport.
// Used for testing without a real gRPC connection.
func NewClientWithInvoker(inv Invoker) *Client {
	return &Client{inv: inv}
}

// #endregion constructor

// #region close

// Close shuts down the gRPC connection, releasing the engine handle.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region init

// Init seeds the engine's process-wide randomness.
func (c *Client) Init(ctx context.Context, seed int64) error {
	if err := c.inv.Invoke(ctx, methodInit, &initRequest{Seed: seed}, &ackResponse{}); err != nil {
		return fmt.Errorf("init rpc: %w", err)
	}
	return nil
}

// #endregion init

// #region load-assignment

// LoadAssignment asks the engine for the starting tree of one
// exercise/variant pair and copies it into rec.
func (c *Client) LoadAssignment(ctx context.Context, dir string, assignment, code, perturbation int32, rec *state.Record) error {
	var resp stateResponse
	err := c.inv.Invoke(ctx, methodLoadAssignment, &loadAssignmentRequest{
		Dir:          dir,
		Assignment:   assignment,
		Code:         code,
		Perturbation: perturbation,
	}, &resp)
	if err != nil {
		return fmt.Errorf("load assignment rpc: %w", err)
	}
	if resp.State == nil {
		return fmt.Errorf("load assignment rpc: empty state reply")
	}
	rec.CopyFrom(resp.State)
	return nil
}

// #endregion load-assignment

// #region apply

// Apply performs one structural edit, copying the mutated record back.
func (c *Client) Apply(ctx context.Context, rec *state.Record, action int32) error {
	var resp stateResponse
	err := c.inv.Invoke(ctx, methodApply, &applyRequest{State: rec, Action: action}, &resp)
	if err != nil {
		return fmt.Errorf("apply rpc: %w", err)
	}
	if resp.State == nil {
		return fmt.Errorf("apply rpc: empty state reply")
	}
	rec.CopyFrom(resp.State)
	return nil
}

// #endregion apply

// #region check

// Check runs the held-out tests against the current program.
func (c *Client) Check(ctx context.Context, rec *state.Record) (int32, error) {
	var resp checkResponse
	if err := c.inv.Invoke(ctx, methodCheck, &checkRequest{State: rec}, &resp); err != nil {
		return 0, fmt.Errorf("check rpc: %w", err)
	}
	return resp.Reward, nil
}

// #endregion check

// #region render

// Render fetches the engine's human-readable tree dump.
func (c *Client) Render(ctx context.Context, rec *state.Record) (string, error) {
	var resp renderResponse
	if err := c.inv.Invoke(ctx, methodRender, &renderRequest{State: rec}, &resp); err != nil {
		return "", fmt.Errorf("render rpc: %w", err)
	}
	return resp.Text, nil
}

// #endregion render
