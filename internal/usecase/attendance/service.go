package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/usamitakanari/discord-bot/internal/domain"
	"github.com/usamitakanari/discord-bot/internal/infra/metrics"
)

const sendTimeout = 30 * time.Second

// Service drives the fetch → classify → dedupe → format → resolve → deliver
// pipeline on a fixed cadence.
type Service struct {
	fetcher    domain.SnapshotFetcher
	ledger     domain.DeliveryLedger
	messenger  domain.Messenger
	resolver   *Resolver
	classifier *Classifier
	log        zerolog.Logger
	interval   time.Duration
	now        func() time.Time
}

// NewService wires the pipeline. The ledger is owned by the caller and
// injected, never global.
func NewService(fetcher domain.SnapshotFetcher, ledger domain.DeliveryLedger, messenger domain.Messenger, resolver *Resolver, classifier *Classifier, logger zerolog.Logger, interval time.Duration) *Service {
	return &Service{
		fetcher:    fetcher,
		ledger:     ledger,
		messenger:  messenger,
		resolver:   resolver,
		classifier: classifier,
		log:        logger,
		interval:   interval,
		now:        time.Now,
	}
}

// Run blocks until ctx is cancelled, executing one iteration per tick. It
// waits for the messenger to report readiness before the first tick, and a
// failed iteration never stops the loop.
func (s *Service) Run(ctx context.Context) error {
	if err := s.messenger.WaitReady(ctx); err != nil {
		return fmt.Errorf("wait for messenger: %w", err)
	}
	s.log.Info().Dur("interval", s.interval).Msg("attendance: poll loop started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				metrics.SnapshotFetchErrors.Inc()
				s.log.Error().Err(err).Msg("attendance: iteration aborted")
			}
		}
	}
}

// RunOnce executes a single poll iteration. Only a fetch-level failure is
// returned; row-level problems are contained per row.
func (s *Service) RunOnce(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.IterationDuration.Observe(time.Since(start).Seconds()) }()

	snap, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	now := s.now()
	for i, row := range snap.Rows {
		s.processRow(ctx, snap, row, now, i)
	}
	return nil
}

// processRow handles one row in isolation: any panic or error here is logged
// and must never abort the iteration.
func (s *Service) processRow(ctx context.Context, snap domain.Snapshot, row []string, now time.Time, rowIndex int) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Int("row", rowIndex).Interface("panic", r).Msg("attendance: row processing panicked")
		}
	}()

	event, skip := s.classifier.Classify(snap, row, now)
	if skip != SkipNone {
		metrics.RowsSkipped.WithLabelValues(string(skip)).Inc()
		return
	}

	key := event.DeliveryKey()
	if s.ledger.Seen(key) {
		return
	}

	payload := FormatEvent(event)

	dest, err := s.resolver.Resolve(ctx, event.NormalizedSubject)
	if err != nil {
		if errors.Is(err, ErrDestinationNotFound) {
			metrics.ResolutionMisses.Inc()
			s.log.Warn().Str("subject", event.SubjectName).Msg("attendance: no destination, will retry next tick")
			return
		}
		s.log.Error().Err(err).Str("subject", event.SubjectName).Msg("attendance: destination lookup failed")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.messenger.Send(sendCtx, dest, payload); err != nil {
		metrics.SendErrors.Inc()
		s.log.Error().Err(err).Str("destination", dest.Label).Msg("attendance: send failed, key not recorded")
		return
	}
	metrics.NotificationsDelivered.WithLabelValues(event.Status.Label()).Inc()
	s.log.Info().Str("subject", event.SubjectName).Str("destination", dest.Label).Msg("attendance: notification delivered")

	// Record only after a confirmed send. A failed write risks a duplicate
	// on restart, so it is surfaced loudly.
	if err := s.ledger.Record(key); err != nil {
		metrics.LedgerWriteErrors.Inc()
		s.log.Error().Err(err).Str("key", key).Msg("attendance: ledger write failed, duplicate notification possible after restart")
	}
}
