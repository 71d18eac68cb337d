package alarm

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/med-alarm/internal/domain/alarm"
	"github.com/oshokin/med-alarm/internal/domain/schedule"
	pb "github.com/oshokin/med-alarm/internal/pb/v1"
	"github.com/oshokin/med-alarm/internal/platform"
	"github.com/oshokin/med-alarm/internal/service/caregiver"
)

// fakeService implements the alarm Service interface for unit testing the transport.
type fakeService struct {
	mu sync.Mutex
	// state is returned by State and streamed by Subscribe.
	state *domain.State
	// degraded makes FallbackAvailable report false.
	degraded bool
	// acked holds actors passed to Acknowledge.
	acked []*domain.Actor
	// actions holds routed actions.
	actions []platform.Action
	// assessment is returned by the pending calls.
	assessment caregiver.Assessment
	// markErr is returned by MarkPendingDose.
	markErr error
	// updates feeds Subscribe.
	updates chan *domain.State
}

func (f *fakeService) State() *domain.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

func (f *fakeService) FallbackAvailable() bool { return !f.degraded }

func (f *fakeService) Acknowledge(_ context.Context, actor *domain.Actor) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.acked = append(f.acked, actor)
	if f.state == nil || f.state.Phase != domain.PhaseRinging {
		return false
	}

	f.state = &domain.State{Phase: domain.PhaseAcknowledging, LastActor: actor}

	return true
}

func (f *fakeService) HandleAction(_ context.Context, action platform.Action) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.actions = append(f.actions, action)

	return action.ID == platform.ActionConfirm
}

func (f *fakeService) PendingDose(context.Context, string) (caregiver.Assessment, error) {
	return f.assessment, nil
}

func (f *fakeService) MarkPendingDose(context.Context, string, *domain.Actor) (caregiver.Assessment, error) {
	return f.assessment, f.markErr
}

func (f *fakeService) Subscribe(ctx context.Context) <-chan *domain.State {
	out := make(chan *domain.State)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-f.updates:
				if !ok {
					return
				}

				out <- state
			}
		}
	}()

	return out
}

func metformin() *schedule.Entry {
	return &schedule.Entry{
		ID:             "s1",
		OwnerID:        "u1",
		MedicationID:   "metformin",
		MedicationName: "Metformin",
		Dosage:         "500mg",
		Kind:           schedule.KindFixed,
		TimeOfDay:      schedule.MustClock("08:00"),
		Days:           schedule.NewWeekdays(time.Monday),
		Active:         true,
	}
}

func TestServer_GetAlarmState(t *testing.T) {
	t.Parallel()

	scheduled := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	svc := &fakeService{
		state:    &domain.State{Phase: domain.PhaseRinging, Current: metformin(), Scheduled: scheduled, Since: scheduled},
		degraded: true,
	}

	resp, err := NewServer(svc).GetAlarmState(context.Background(), new(emptypb.Empty))
	require.NoError(t, err)

	state := pb.DecodeState(resp)
	require.Equal(t, domain.PhaseRinging, state.Phase)
	require.Equal(t, "metformin", state.Current.MedicationID)
	require.True(t, state.Scheduled.Equal(scheduled))
	require.False(t, pb.GetBool(resp, pb.FieldFallbackAvailable))
}

func TestServer_Acknowledge(t *testing.T) {
	t.Parallel()

	svc := &fakeService{state: &domain.State{Phase: domain.PhaseRinging, Current: metformin()}}
	s := NewServer(svc)

	_, err := s.Acknowledge(context.Background(), pb.NewMessage().Build())
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	actor := &domain.Actor{Hostname: "kitchen", Username: "anna"}

	resp, err := s.Acknowledge(context.Background(), pb.EncodeActor(actor))
	require.NoError(t, err)
	require.True(t, pb.GetBool(resp, pb.FieldAcknowledged))
	require.Equal(t, domain.PhaseAcknowledging, pb.DecodeState(pb.GetStruct(resp, pb.FieldState)).Phase)

	resp, err = s.Acknowledge(context.Background(), pb.EncodeActor(actor))
	require.NoError(t, err)
	require.False(t, pb.GetBool(resp, pb.FieldAcknowledged))
	require.Len(t, svc.acked, 2)
}

func TestServer_HandleAction(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	s := NewServer(svc)

	_, err := s.HandleAction(context.Background(), pb.NewMessage().Build())
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	payload, err := structpb.NewStruct(map[string]any{platform.PayloadScheduleID: "s1"})
	require.NoError(t, err)

	req := pb.NewMessage().
		Text(pb.FieldActionID, platform.ActionConfirm).
		Bool(pb.FieldBackground, true).
		Struct(pb.FieldPayload, payload).
		Struct(pb.FieldActor, pb.EncodeActor(&domain.Actor{Hostname: "phone", Username: "anna"})).
		Build()

	resp, err := s.HandleAction(context.Background(), req)
	require.NoError(t, err)
	require.True(t, pb.GetBool(resp, pb.FieldAcknowledged))

	require.Len(t, svc.actions, 1)
	action := svc.actions[0]
	require.Equal(t, platform.ActionConfirm, action.ID)
	require.True(t, action.Background)
	require.Equal(t, "s1", action.Payload[platform.PayloadScheduleID])
	require.Equal(t, "phone", action.Payload[platform.PayloadHostname])
	require.Equal(t, "anna", action.Payload[platform.PayloadUsername])
}

func TestServer_PendingDose(t *testing.T) {
	t.Parallel()

	scheduled := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	svc := &fakeService{assessment: caregiver.Assessment{
		Entry:       metformin(),
		Scheduled:   scheduled,
		Remaining:   6 * time.Minute,
		WindowStart: scheduled.Add(-caregiver.EarlyWindow),
		WindowEnd:   scheduled.Add(caregiver.LateWindow),
	}}
	s := NewServer(svc)

	resp, err := s.GetPendingDose(context.Background(), wrapperspb.String("u1"))
	require.NoError(t, err)

	got := DecodePending(resp)
	require.False(t, got.NothingPending)
	require.False(t, got.Eligible)
	require.Equal(t, 6*time.Minute, got.Remaining)
	require.Equal(t, "Metformin", got.Entry.MedicationName)
	require.True(t, got.WindowEnd.Equal(scheduled.Add(30*time.Minute)))
	require.Equal(t, "Next dose Metformin 500mg in 0h06m", got.Describe())

	svc.markErr = caregiver.ErrNotEligible

	_, err = s.MarkPendingDose(context.Background(), pb.NewMessage().Text(pb.FieldOwnerID, "u1").Build())
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	req := pb.NewMessage().
		Text(pb.FieldOwnerID, "u1").
		Struct(pb.FieldActor, pb.EncodeActor(&domain.Actor{Hostname: "h", Username: "carer"})).
		Build()

	_, err = s.MarkPendingDose(context.Background(), req)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	svc.assessment = caregiver.Assessment{NothingPending: true}
	svc.markErr = nil

	resp, err = s.GetPendingDose(context.Background(), wrapperspb.String("u1"))
	require.NoError(t, err)
	require.True(t, DecodePending(resp).NothingPending)
}

// TestServer_WatchAlarmState streams transitions over an in-memory connection.
func TestServer_WatchAlarmState(t *testing.T) {
	t.Parallel()

	svc := &fakeService{updates: make(chan *domain.State)}

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	pb.RegisterAlarmServiceServer(server, NewServer(svc))

	go func() {
		_ = server.Serve(listener) //nolint:errcheck // Stopped by the cleanup below.
	}()

	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := pb.NewAlarmServiceClient(conn).WatchAlarmState(ctx, new(emptypb.Empty))
	require.NoError(t, err)

	go func() {
		svc.updates <- &domain.State{Phase: domain.PhaseRinging, Current: metformin()}
		svc.updates <- &domain.State{Phase: domain.PhaseIdle}
		close(svc.updates)
	}()

	first, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, domain.PhaseRinging, pb.DecodeState(first).Phase)
	require.True(t, pb.GetBool(first, pb.FieldFallbackAvailable))

	second, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, domain.PhaseIdle, pb.DecodeState(second).Phase)
}

// TestServer_ShutdownEndsWatch lets GracefulStop return while a watcher is connected.
func TestServer_ShutdownEndsWatch(t *testing.T) {
	t.Parallel()

	svc := &fakeService{updates: make(chan *domain.State)}
	alarmServer := NewServer(svc)

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	pb.RegisterAlarmServiceServer(server, alarmServer)

	go func() {
		_ = server.Serve(listener) //nolint:errcheck // Stopped below.
	}()

	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	stream, err := pb.NewAlarmServiceClient(conn).WatchAlarmState(context.Background(), new(emptypb.Empty))
	require.NoError(t, err)

	svc.updates <- &domain.State{Phase: domain.PhaseRinging, Current: metformin()}

	_, err = stream.Recv()
	require.NoError(t, err)

	stopped := make(chan struct{})

	go func() {
		alarmServer.Shutdown()
		server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("GracefulStop blocked by an open watch stream")
	}

	_, err = stream.Recv()
	require.Error(t, err)
}
