package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SnapshotFetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_fetch_errors_total",
		Help: "Failed spreadsheet export fetches",
	})
	RowsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_rows_skipped_total",
		Help: "Rows dropped during classification",
	}, []string{"reason"})
	NotificationsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_notifications_delivered_total",
		Help: "Attendance notifications sent to a resolved destination",
	}, []string{"status"})
	SendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messenger_send_errors_total",
		Help: "Rejected or failed message sends",
	})
	ResolutionMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "destination_resolution_misses_total",
		Help: "Events whose subject matched no category or forum channel",
	})
	LedgerWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_write_errors_total",
		Help: "Failed persistence of the delivery-key ledger",
	})
	IterationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_iteration_seconds",
		Help:    "Duration of one poll iteration",
		Buckets: prometheus.DefBuckets,
	})
	RemindersFired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_fired_total",
		Help: "Scheduled reminders delivered",
	})
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Duration of outbound network requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "status"})
)

// MustRegister registers all bot metrics.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SnapshotFetchErrors,
		RowsSkipped,
		NotificationsDelivered,
		SendErrors,
		ResolutionMisses,
		LedgerWriteErrors,
		IterationDuration,
		RemindersFired,
		NetworkRequestDuration,
	)
}

// ObserveNetworkRequest records duration and status of an outbound request.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(time.Since(start).Seconds())
}

// StartServer serves /metrics and /healthz until ctx is cancelled.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		promhttp.Handler().ServeHTTP(w, req)
	})
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}
