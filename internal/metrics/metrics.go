// Package metrics exposes the daemon's Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/med-alarm/internal/logger"
)

const (
	metricPrefix = "medalarm_"

	// ResultFired is a poll tick that fired an alarm.
	ResultFired = "fired"
	// ResultIdle is a poll tick with nothing due.
	ResultIdle = "idle"
	// ResultSkipped is a poll tick for an already evaluated minute.
	ResultSkipped = "skipped"
	// ResultError is a poll tick whose schedule fetch failed.
	ResultError = "error"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var (
	registerOnce sync.Once

	pollTicks        *prometheus.CounterVec
	alarmsFired      *prometheus.CounterVec
	acknowledgments  *prometheus.CounterVec
	ledgerErrors     *prometheus.CounterVec
	triggersActive   prometheus.Gauge
	fallbackDegraded prometheus.Gauge
)

// Init registers the metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		pollTicks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "poll_ticks_total",
				Help: "Total poller ticks by result",
			},
			[]string{"result"},
		)
		alarmsFired = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarms_fired_total",
				Help: "Total alarms fired by entry kind",
			},
			[]string{"kind"},
		)
		acknowledgments = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "acknowledgments_total",
				Help: "Total recorded doses by source",
			},
			[]string{"source"},
		)
		ledgerErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_errors_total",
				Help: "Total dose ledger failures by operation",
			},
			[]string{"operation"},
		)
		triggersActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "reminder_triggers",
				Help: "Trigger alerts registered with the notification platform",
			},
		)
		fallbackDegraded = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "reminder_fallback_degraded",
				Help: "1 when the platform declined to register reminders",
			},
		)

		prometheus.MustRegister(
			pollTicks,
			alarmsFired,
			acknowledgments,
			ledgerErrors,
			triggersActive,
			fallbackDegraded,
		)
	})
}

// IncPollTick counts a poller tick.
func IncPollTick(result string) {
	if pollTicks != nil {
		pollTicks.WithLabelValues(result).Inc()
	}
}

// IncAlarmFired counts a fired alarm.
func IncAlarmFired(kind string) {
	if alarmsFired != nil {
		alarmsFired.WithLabelValues(kind).Inc()
	}
}

// IncAcknowledgment counts a recorded dose.
func IncAcknowledgment(source string) {
	if acknowledgments != nil {
		acknowledgments.WithLabelValues(source).Inc()
	}
}

// IncLedgerError counts a failed ledger operation.
func IncLedgerError(operation string) {
	if ledgerErrors != nil {
		ledgerErrors.WithLabelValues(operation).Inc()
	}
}

// SetReminders records the outcome of a reminder sync.
func SetReminders(registered int, degraded bool) {
	if triggersActive != nil {
		triggersActive.Set(float64(registered))
	}

	if fallbackDegraded != nil {
		value := 0.0
		if degraded {
			value = 1
		}

		fallbackDegraded.Set(value)
	}
}

// Serve exposes /metrics on address until ctx is done. An empty address disables it.
func Serve(ctx context.Context, address string) error {
	if address == "" {
		return nil
	}

	ctx = logger.WithName(ctx, "metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf(ctx, "Failed to stop metrics server: %v", err)
		}
	}()

	logger.InfoKV(ctx, "Metrics server listening", "address", address)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	return nil
}
