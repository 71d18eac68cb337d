package alarm

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/logger"
	pb "github.com/oshokin/med-alarm/internal/pb/v1"
	"github.com/oshokin/med-alarm/internal/platform"
	"github.com/oshokin/med-alarm/internal/service/caregiver"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	State() *domain.State
	FallbackAvailable() bool
	Acknowledge(ctx context.Context, actor *domain.Actor) bool
	HandleAction(ctx context.Context, action platform.Action) bool
	PendingDose(ctx context.Context, ownerID string) (caregiver.Assessment, error)
	MarkPendingDose(ctx context.Context, ownerID string, actor *domain.Actor) (caregiver.Assessment, error)
	Subscribe(ctx context.Context) <-chan *domain.State
}

// Server implements the AlarmService gRPC API.
type Server struct {
	pb.UnimplementedAlarmServiceServer

	// service provides the business logic for alarm operations.
	service Service
	// shutdown is done once Shutdown is called; it ends the watch streams.
	//nolint:containedctx // Server-wide lifetime, not a request context.
	shutdown context.Context
	// stop cancels shutdown.
	stop context.CancelFunc
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	shutdown, stop := context.WithCancel(context.Background())

	return &Server{
		service:  service,
		shutdown: shutdown,
		stop:     stop,
	}
}

// Shutdown ends every open WatchAlarmState stream and makes new ones return
// at once. Call it before GracefulStop, which waits for open streams.
func (s *Server) Shutdown() {
	s.stop()
}

// GetAlarmState returns the current alarm state and whether the platform
// fallback path is available.
func (s *Server) GetAlarmState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return s.stateMessage(s.service.State()), nil
}

// Acknowledge confirms the ringing alarm on behalf of the request actor.
func (s *Server) Acknowledge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor := pb.DecodeActor(req)
	if actor == nil {
		return nil, status.Error(codes.InvalidArgument, "actor is required")
	}

	acknowledged := s.service.Acknowledge(ctx, actor)

	return pb.NewMessage().
		Bool(pb.FieldAcknowledged, acknowledged).
		Struct(pb.FieldState, s.stateMessage(s.service.State())).
		Build(), nil
}

// HandleAction routes a notification action delivered by the platform.
func (s *Server) HandleAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	action := platform.Action{
		ID:         pb.GetString(req, pb.FieldActionID),
		Background: pb.GetBool(req, pb.FieldBackground),
		Payload:    make(map[string]string),
	}

	if action.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "action_id is required")
	}

	for key, value := range pb.GetStruct(req, pb.FieldPayload).GetFields() {
		action.Payload[key] = value.GetStringValue()
	}

	// The caller may name itself explicitly instead of via payload keys.
	if actor := pb.DecodeActor(pb.GetStruct(req, pb.FieldActor)); actor != nil {
		action.Payload[platform.PayloadHostname] = actor.Hostname
		action.Payload[platform.PayloadUsername] = actor.Username
	}

	handled := s.service.HandleAction(ctx, action)

	return pb.NewMessage().
		Bool(pb.FieldAcknowledged, handled).
		Struct(pb.FieldState, s.stateMessage(s.service.State())).
		Build(), nil
}

// GetPendingDose evaluates the caregiver window of the owner's next dose.
func (s *Server) GetPendingDose(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	assessment, err := s.service.PendingDose(ctx, req.GetValue())
	if err != nil {
		logger.ErrorKV(ctx, "Failed to evaluate pending dose", "owner_id", req.GetValue(), "error", err)

		return nil, status.Error(codes.Unavailable, "unable to evaluate pending dose")
	}

	return pendingMessage(assessment), nil
}

// MarkPendingDose records the owner's pending dose when it is eligible.
func (s *Server) MarkPendingDose(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor := pb.DecodeActor(pb.GetStruct(req, pb.FieldActor))
	if actor == nil {
		return nil, status.Error(codes.InvalidArgument, "actor is required")
	}

	ownerID := pb.GetString(req, pb.FieldOwnerID)

	assessment, err := s.service.MarkPendingDose(ctx, ownerID, actor)

	switch {
	case err == nil:
		return pendingMessage(assessment), nil
	case errors.Is(err, caregiver.ErrNotEligible):
		return nil, status.Error(codes.FailedPrecondition, assessment.Describe())
	default:
		logger.ErrorKV(ctx, "Failed to mark pending dose", "owner_id", ownerID, "error", err)

		return nil, status.Error(codes.Unavailable, "unable to record dose")
	}
}

// WatchAlarmState streams the alarm state on every transition until the
// client goes away or the server shuts down.
func (s *Server) WatchAlarmState(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	stopWatch := context.AfterFunc(s.shutdown, cancel)
	defer stopWatch()

	for state := range s.service.Subscribe(ctx) {
		if err := stream.Send(s.stateMessage(state)); err != nil {
			return err
		}
	}

	return nil
}

func (s *Server) stateMessage(state *domain.State) *structpb.Struct {
	return pb.EncodeState(state).
		Bool(pb.FieldFallbackAvailable, s.service.FallbackAvailable()).
		Build()
}

// pendingMessage converts a caregiver assessment to a PendingDose message.
func pendingMessage(a caregiver.Assessment) *structpb.Struct {
	if a.NothingPending {
		return pb.NewMessage().Bool(pb.FieldNothingPending, true).Build()
	}

	return pb.NewMessage().
		Bool(pb.FieldNothingPending, false).
		Struct(pb.FieldEntry, pb.EncodeEntry(a.Entry)).
		Time(pb.FieldScheduled, a.Scheduled).
		Bool(pb.FieldEligible, a.Eligible).
		Number(pb.FieldRemaining, a.Remaining.Round(time.Second).Seconds()).
		Time(pb.FieldWindowStart, a.WindowStart).
		Time(pb.FieldWindowEnd, a.WindowEnd).
		Build()
}

// DecodePending converts a PendingDose message back to an assessment.
func DecodePending(s *structpb.Struct) caregiver.Assessment {
	if pb.GetBool(s, pb.FieldNothingPending) {
		return caregiver.Assessment{NothingPending: true}
	}

	return caregiver.Assessment{
		Entry:       pb.DecodeEntry(pb.GetStruct(s, pb.FieldEntry)),
		Scheduled:   pb.GetTime(s, pb.FieldScheduled),
		Eligible:    pb.GetBool(s, pb.FieldEligible),
		Remaining:   time.Duration(pb.GetNumber(s, pb.FieldRemaining)) * time.Second,
		WindowStart: pb.GetTime(s, pb.FieldWindowStart),
		WindowEnd:   pb.GetTime(s, pb.FieldWindowEnd),
	}
}
