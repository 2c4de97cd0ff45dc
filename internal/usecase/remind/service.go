package remind

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/usamitakanari/discord-bot/internal/domain"
	"github.com/usamitakanari/discord-bot/internal/infra/metrics"
)

var (
	// ErrInvalidTime is returned for times not in HH:MM form.
	ErrInvalidTime = errors.New("invalid reminder time")
	// ErrUnknownChannel is returned when the named channel does not exist.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrInvalidIndex is returned for an out-of-range reminder number.
	ErrInvalidIndex = errors.New("invalid reminder number")
)

// Service manages scheduled reminders and fires them once a minute.
type Service struct {
	store          domain.ReminderStore
	dir            domain.Directory
	messenger      domain.Messenger
	guildID        string
	defaultChannel string
	loc            *time.Location
	log            zerolog.Logger

	mu        sync.Mutex
	reminders map[string][]domain.Reminder
}

// NewService loads persisted reminders and creates the scheduler.
func NewService(store domain.ReminderStore, dir domain.Directory, messenger domain.Messenger, guildID, defaultChannel string, loc *time.Location, logger zerolog.Logger) (*Service, error) {
	reminders, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}
	return &Service{
		store:          store,
		dir:            dir,
		messenger:      messenger,
		guildID:        guildID,
		defaultChannel: defaultChannel,
		loc:            loc,
		log:            logger,
		reminders:      reminders,
	}, nil
}

// Add validates and persists a new reminder for the guild.
func (s *Service) Add(ctx context.Context, guildID string, reminder domain.Reminder) (domain.Reminder, error) {
	if _, err := time.Parse("15:04", reminder.Time); err != nil {
		return domain.Reminder{}, ErrInvalidTime
	}
	if reminder.ChannelName != "" {
		channels, err := s.dir.TextChannels(ctx)
		if err != nil {
			return domain.Reminder{}, fmt.Errorf("list channels: %w", err)
		}
		if !channelExists(channels, reminder.ChannelName) {
			return domain.Reminder{}, fmt.Errorf("%w: %s", ErrUnknownChannel, reminder.ChannelName)
		}
	}
	reminder.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[guildID] = append(s.reminders[guildID], reminder)
	if err := s.store.Save(s.reminders); err != nil {
		items := s.reminders[guildID]
		s.reminders[guildID] = items[:len(items)-1]
		return domain.Reminder{}, fmt.Errorf("save reminders: %w", err)
	}
	return reminder, nil
}

// List returns the guild's reminders in insertion order.
func (s *Service) List(guildID string) []domain.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.reminders[guildID]
	out := make([]domain.Reminder, len(items))
	copy(out, items)
	return out
}

// Remove deletes a reminder by its 1-based listing number.
func (s *Service) Remove(guildID string, number int) (domain.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.reminders[guildID]
	if number <= 0 || number > len(items) {
		return domain.Reminder{}, ErrInvalidIndex
	}
	removed := items[number-1]
	s.reminders[guildID] = append(items[:number-1], items[number:]...)
	if err := s.store.Save(s.reminders); err != nil {
		return domain.Reminder{}, fmt.Errorf("save reminders: %w", err)
	}
	return removed, nil
}

// Run fires due reminders once a minute until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.messenger.WaitReady(ctx); err != nil {
		return fmt.Errorf("wait for messenger: %w", err)
	}
	s.log.Info().Msg("remind: scheduler started")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.fireDue(ctx, time.Now().In(s.loc))
		}
	}
}

func (s *Service) fireDue(ctx context.Context, now time.Time) {
	due := s.dueAt(now.Format("15:04"))
	if len(due) == 0 {
		return
	}
	for _, reminder := range due {
		if err := s.fire(ctx, reminder); err != nil {
			s.log.Error().Err(err).Str("reminder", reminder.ID).Msg("remind: delivery failed")
			continue
		}
		metrics.RemindersFired.Inc()
	}
}

func (s *Service) dueAt(clock string) []domain.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.Reminder
	for _, reminder := range s.reminders[s.guildID] {
		if reminder.Time == clock {
			due = append(due, reminder)
		}
	}
	return due
}

func (s *Service) fire(ctx context.Context, reminder domain.Reminder) error {
	channelName := reminder.ChannelName
	if channelName == "" {
		channelName = s.defaultChannel
	}
	channels, err := s.dir.TextChannels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	var channelID string
	for _, ch := range channels {
		if ch.Name == channelName {
			channelID = ch.ID
			break
		}
	}
	if channelID == "" {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channelName)
	}

	mention := "@here"
	roles, err := s.dir.Roles(ctx)
	if err == nil {
		for _, role := range roles {
			if role.Name == reminder.RoleName {
				mention = "<@&" + role.ID + ">"
				break
			}
		}
	}

	content := mention + "\n" + reminder.Message
	if err := s.messenger.SendText(ctx, channelID, content, !reminder.Public); err != nil {
		// Silent delivery is best effort; retry as a plain send.
		return s.messenger.SendText(ctx, channelID, content, false)
	}
	return nil
}

func channelExists(channels []domain.NamedChannel, name string) bool {
	for _, ch := range channels {
		if ch.Name == name {
			return true
		}
	}
	return false
}
