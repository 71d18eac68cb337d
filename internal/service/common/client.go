//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/med-alarm/internal/api/grpc/alarm"
	"github.com/oshokin/med-alarm/internal/config"
	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	pb "github.com/oshokin/med-alarm/internal/pb/v1"
	"github.com/oshokin/med-alarm/internal/service/caregiver"
)

// Client wraps the gRPC AlarmService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the daemon.
	conn *grpc.ClientConn
	// api is the AlarmService client interface.
	api pb.AlarmServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// Status is the daemon's alarm state as seen by a client.
type Status struct {
	// State is the alarm state.
	State *domain.State
	// FallbackAvailable is false when platform reminders could not be registered.
	FallbackAvailable bool
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
)

// Dial establishes a gRPC connection to the daemon.
// Note: this uses insecure transport credentials; the daemon listens on
// loopback by default.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial medalarm daemon: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         pb.NewAlarmServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetAlarmState retrieves the current alarm state.
func (c *Client) GetAlarmState(ctx context.Context) (*Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetAlarmState(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get alarm state: %w", err)
	}

	return &Status{
		State:             pb.DecodeState(resp),
		FallbackAvailable: pb.GetBool(resp, pb.FieldFallbackAvailable),
	}, nil
}

// Acknowledge confirms the ringing alarm. It reports false when nothing was ringing.
func (c *Client) Acknowledge(ctx context.Context, actor *domain.Actor) (bool, error) {
	if actor == nil {
		return false, errActorRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Acknowledge(callCtx, pb.EncodeActor(actor))
	if err != nil {
		return false, fmt.Errorf("acknowledge alarm: %w", err)
	}

	return pb.GetBool(resp, pb.FieldAcknowledged), nil
}

// PendingDose asks for the caregiver view of ownerID's next dose.
func (c *Client) PendingDose(ctx context.Context, ownerID string) (caregiver.Assessment, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetPendingDose(callCtx, wrapperspb.String(ownerID))
	if err != nil {
		return caregiver.Assessment{}, fmt.Errorf("get pending dose: %w", err)
	}

	return api.DecodePending(resp), nil
}

// MarkPendingDose records ownerID's pending dose on behalf of actor.
func (c *Client) MarkPendingDose(ctx context.Context, ownerID string, actor *domain.Actor) (caregiver.Assessment, error) {
	if actor == nil {
		return caregiver.Assessment{}, errActorRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	req := pb.NewMessage().
		Text(pb.FieldOwnerID, ownerID).
		Struct(pb.FieldActor, pb.EncodeActor(actor)).
		Build()

	resp, err := c.api.MarkPendingDose(callCtx, req)
	if err != nil {
		return caregiver.Assessment{}, fmt.Errorf("mark pending dose: %w", err)
	}

	return api.DecodePending(resp), nil
}

// WatchAlarmState calls fn for every state the daemon streams until ctx is
// done or the stream ends. Unary call timeouts do not apply.
func (c *Client) WatchAlarmState(ctx context.Context, fn func(*Status)) error {
	stream, err := c.api.WatchAlarmState(ctx, new(emptypb.Empty))
	if err != nil {
		return fmt.Errorf("watch alarm state: %w", err)
	}

	for {
		resp, err := stream.Recv()

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("receive alarm state: %w", err)
		}

		fn(&Status{
			State:             pb.DecodeState(resp),
			FallbackAvailable: pb.GetBool(resp, pb.FieldFallbackAvailable),
		})
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
