// Package server runs the medication alarm daemon: the alarm poller and
// state machine, the platform reminder fallback, the notification action
// router, the metrics endpoint and the gRPC API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/med-alarm/internal/actuator"
	"github.com/oshokin/med-alarm/internal/actuator/sound"
	api "github.com/oshokin/med-alarm/internal/api/grpc/alarm"
	"github.com/oshokin/med-alarm/internal/config"
	"github.com/oshokin/med-alarm/internal/logger"
	"github.com/oshokin/med-alarm/internal/metrics"
	pb "github.com/oshokin/med-alarm/internal/pb/v1"
	"github.com/oshokin/med-alarm/internal/platform"
	"github.com/oshokin/med-alarm/internal/platform/calendar"
	"github.com/oshokin/med-alarm/internal/repository/catalog"
	"github.com/oshokin/med-alarm/internal/repository/state"
	"github.com/oshokin/med-alarm/internal/repository/storage"
	"github.com/oshokin/med-alarm/internal/service/alarm"
	"github.com/oshokin/med-alarm/internal/service/caregiver"
	"github.com/oshokin/med-alarm/internal/service/instance"
	"github.com/oshokin/med-alarm/internal/service/reminder"
)

// Options controls the medalarm daemon process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StateFile overrides the path of the alarm snapshot.
	StateFile string
}

// daemon holds the wired components of one running daemon.
type daemon struct {
	// settings is the validated configuration.
	settings *config.Config
	// store is the schedule store, dose ledger and medication catalog.
	store *storage.Store
	// machine is the alarm state machine.
	machine *alarm.Machine
	// poller fires due alarms.
	poller *alarm.Poller
	// reminders maintains the platform trigger alerts.
	reminders *reminder.Scheduler
	// router consumes the platform action stream.
	router *platform.Router
	// service backs the gRPC API.
	service *service
}

// Run starts the daemon and blocks until context is canceled or a component fails.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "medalarm-serve")

	// Load configuration first to get daemon settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.StateFile != "" {
		settings.StateFile = opts.StateFile
	}

	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	// The sound and vibration outputs are host-wide.
	lock, err := instance.Acquire(settings.PIDFile)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.Errorf(ctx, "Failed to release pid file: %v", releaseErr)
		}
	}()

	d, err := newDaemon(ctx, settings)
	if err != nil {
		return err
	}

	defer d.close(ctx)

	return d.run(ctx)
}

// newDaemon opens the store and wires every component.
func newDaemon(ctx context.Context, settings *config.Config) (*daemon, error) {
	store, err := storage.Open(ctx, settings.Database.Driver, settings.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	d, err := wire(ctx, settings, store)
	if err != nil {
		_ = store.Close()

		return nil, err
	}

	return d, nil
}

// wire builds the components on top of an open store.
func wire(ctx context.Context, settings *config.Config, store *storage.Store) (*daemon, error) {
	medications, err := catalog.NewCache(store, settings.CatalogCacheSize)
	if err != nil {
		return nil, err
	}

	feed := calendar.New(ctx, settings.CalendarFile)

	var player actuator.Player
	if settings.SoundFile != "" {
		player = sound.NewPlayer(ctx)
	}

	machine, err := alarm.NewMachine(alarm.MachineConfig{
		Actuator:    actuator.NewDevice(ctx, player, nil),
		Notifier:    feed,
		Ledger:      store,
		Snapshots:   state.NewFileRepository(settings.StateFile),
		SoundFile:   settings.SoundFile,
		Volume:      settings.Volume,
		SettleDelay: settings.SettleDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("create alarm machine: %w", err)
	}

	reminders, err := reminder.NewScheduler(reminder.Config{
		Store:    store,
		Ledger:   store,
		Catalog:  medications,
		Platform: feed,
	})
	if err != nil {
		return nil, fmt.Errorf("create reminder scheduler: %w", err)
	}

	// Today's trigger is skipped once its dose is recorded.
	machine.OnAcknowledged(reminders.Resync)

	router := platform.NewRouter(feed.Actions(), machine, reminders)

	return &daemon{
		settings:  settings,
		store:     store,
		machine:   machine,
		poller:    alarm.NewPoller(store, alarm.NewMatcher(store, machine), settings.PollInterval),
		reminders: reminders,
		router:    router,
		service: &service{
			ownerID:   settings.OwnerID,
			machine:   machine,
			router:    router,
			feed:      feed,
			evaluator: caregiver.NewEvaluator(store, store),
			reminders: reminders,
			now:       time.Now,
		},
	}, nil
}

// run resumes an interrupted alarm and supervises the components.
func (d *daemon) run(ctx context.Context) error {
	metrics.Init()

	resumed, err := d.machine.Resume(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to resume alarm", "error", err)
	}

	logger.InfoKV(ctx, "Medication alarm daemon starting",
		"owner_id", d.settings.OwnerID,
		"driver", d.settings.Database.Driver,
		"resumed", resumed)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error { return d.poller.Run(groupCtx, d.settings.OwnerID) })
	group.Go(func() error { return d.reminders.Run(groupCtx, d.settings.OwnerID) })
	group.Go(func() error { return d.router.Run(groupCtx) })
	group.Go(func() error { return metrics.Serve(groupCtx, d.settings.MetricsAddress) })
	group.Go(func() error { return d.serve(groupCtx) })

	return group.Wait()
}

// serve runs the gRPC server until ctx is done.
func (d *daemon) serve(ctx context.Context) error {
	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", d.settings.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.settings.ListenAddress, err)
	}

	// Create and configure gRPC server with alarm service.
	grpcServer := grpc.NewServer()
	alarmServer := api.NewServer(d.service)
	pb.RegisterAlarmServiceServer(grpcServer, alarmServer)

	logger.InfoKV(ctx, "Alarm server listening",
		"listen_address", d.settings.ListenAddress,
		"state_file", d.settings.StateFile)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		// Watch streams only end when told to, and GracefulStop waits for them.
		alarmServer.Shutdown()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// close silences the outputs and closes the store.
func (d *daemon) close(ctx context.Context) {
	d.machine.Close(ctx)

	if err := d.store.Close(); err != nil {
		logger.Errorf(ctx, "Failed to close store: %v", err)
	}
}
