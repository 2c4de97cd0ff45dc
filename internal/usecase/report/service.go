package report

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/usamitakanari/discord-bot/internal/domain"
)

// Fetcher downloads a raw CSV grid. Satisfied by sheets.Client.
type Fetcher interface {
	FetchCSV(ctx context.Context, url string) ([][]string, error)
}

// Performance sheet layout: the fourth row carries day numbers, rows six
// through fourteen carry the per-day figures.
const (
	dateRowIndex  = 3
	firstValueRow = 5
	lastValueRow  = 13
)

var nagTemplates = []string{
	"<@&%s> 本日の実績報告がまだ入力されてないです！",
	"<@&%s> 実績報告の入力忘れてるかも...？",
	"<@&%s> 実績報告まだみたいです〜！お願いします！",
	"<@&%s> 今日の実績入力、16:30過ぎましたよ〜！",
	"<@&%s> 本日の報告お忘れなく！入力チェックしてます！",
}

// Service checks the daily performance sheet once a day and nags the
// configured role when today's column has blanks.
type Service struct {
	fetcher   Fetcher
	messenger domain.Messenger
	url       string
	channelID string
	roleID    string
	hour      int
	minute    int
	loc       *time.Location
	log       zerolog.Logger
	pick      func(n int) int
}

// NewService creates the daily report checker.
func NewService(fetcher Fetcher, messenger domain.Messenger, url, channelID, roleID string, hour, minute int, loc *time.Location, logger zerolog.Logger) *Service {
	return &Service{
		fetcher:   fetcher,
		messenger: messenger,
		url:       url,
		channelID: channelID,
		roleID:    roleID,
		hour:      hour,
		minute:    minute,
		loc:       loc,
		log:       logger,
		pick:      rand.Intn,
	}
}

// Run triggers CheckNow at the configured local time until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.messenger.WaitReady(ctx); err != nil {
		return fmt.Errorf("wait for messenger: %w", err)
	}
	s.log.Info().Int("hour", s.hour).Int("minute", s.minute).Msg("report: daily check scheduled")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now().In(s.loc)
			if now.Hour() != s.hour || now.Minute() != s.minute {
				continue
			}
			if err := s.CheckNow(ctx, now); err != nil {
				s.log.Error().Err(err).Msg("report: daily check failed")
			}
		}
	}
}

// CheckNow fetches the performance grid and sends one nag message when any
// of today's cells is blank.
func (s *Service) CheckNow(ctx context.Context, now time.Time) error {
	rows, err := s.fetcher.FetchCSV(ctx, s.url)
	if err != nil {
		return fmt.Errorf("fetch performance sheet: %w", err)
	}
	if len(rows) <= dateRowIndex {
		return fmt.Errorf("performance sheet too short: %d rows", len(rows))
	}

	today := strconv.Itoa(now.Day())
	for col, cell := range rows[dateRowIndex] {
		if strings.TrimSpace(cell) != today {
			continue
		}
		if !hasBlank(rows, col) {
			return nil
		}
		message := fmt.Sprintf(nagTemplates[s.pick(len(nagTemplates))], s.roleID)
		if err := s.messenger.SendText(ctx, s.channelID, message, false); err != nil {
			return fmt.Errorf("send nag: %w", err)
		}
		s.log.Info().Str("channel", s.channelID).Msg("report: missing-entry reminder sent")
		return nil
	}
	return nil
}

func hasBlank(rows [][]string, col int) bool {
	for rowIndex := firstValueRow; rowIndex <= lastValueRow; rowIndex++ {
		if rowIndex >= len(rows) {
			return true
		}
		row := rows[rowIndex]
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			return true
		}
	}
	return false
}
