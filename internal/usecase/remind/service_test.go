package remind

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/usamitakanari/discord-bot/internal/domain"
)

type memStore struct {
	data    map[string][]domain.Reminder
	saveCnt int
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]domain.Reminder{}}
}

func (s *memStore) Load() (map[string][]domain.Reminder, error) { return s.data, nil }

func (s *memStore) Save(reminders map[string][]domain.Reminder) error {
	s.saveCnt++
	s.data = reminders
	return nil
}

type stubDirectory struct {
	channels []domain.NamedChannel
	roles    []domain.Role
}

func (d *stubDirectory) Groupings(context.Context) ([]domain.Grouping, error) { return nil, nil }
func (d *stubDirectory) TopicChannels(context.Context) ([]domain.TopicChannel, error) {
	return nil, nil
}
func (d *stubDirectory) TextChannels(context.Context) ([]domain.NamedChannel, error) {
	return d.channels, nil
}
func (d *stubDirectory) Roles(context.Context) ([]domain.Role, error) { return d.roles, nil }

type textMessage struct {
	channelID string
	content   string
	silent    bool
}

type stubMessenger struct {
	sent      []textMessage
	silentErr bool
}

func (m *stubMessenger) WaitReady(context.Context) error { return nil }
func (m *stubMessenger) Send(context.Context, domain.Destination, domain.NotificationPayload) error {
	return nil
}
func (m *stubMessenger) SendText(_ context.Context, channelID, content string, silent bool) error {
	if silent && m.silentErr {
		return errors.New("silent send unsupported")
	}
	m.sent = append(m.sent, textMessage{channelID: channelID, content: content, silent: silent})
	return nil
}

func newTestService(t *testing.T, store domain.ReminderStore, dir *stubDirectory, messenger *stubMessenger) *Service {
	t.Helper()
	svc, err := NewService(store, dir, messenger, "guild-1", "スタッフ連絡", time.UTC, zerolog.Nop())
	if err != nil {
		t.Fatalf("service construction failed: %v", err)
	}
	return svc
}

func TestAddValidatesTime(t *testing.T) {
	svc := newTestService(t, newMemStore(), &stubDirectory{}, &stubMessenger{})
	_, err := svc.Add(context.Background(), "guild-1", domain.Reminder{Message: "m", Time: "25:99", RoleName: "スタッフ"})
	if !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
}

func TestAddValidatesChannel(t *testing.T) {
	dir := &stubDirectory{channels: []domain.NamedChannel{{ID: "1", Name: "雑談"}}}
	svc := newTestService(t, newMemStore(), dir, &stubMessenger{})

	_, err := svc.Add(context.Background(), "guild-1", domain.Reminder{
		Message: "m", Time: "16:30", RoleName: "スタッフ", ChannelName: "存在しない",
	})
	if !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestAddListRemove(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, &stubDirectory{}, &stubMessenger{})

	saved, err := svc.Add(context.Background(), "guild-1", domain.Reminder{Message: "朝会", Time: "09:55", RoleName: "スタッフ"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected an assigned ID")
	}
	if store.saveCnt != 1 {
		t.Fatalf("expected persistence on add")
	}

	items := svc.List("guild-1")
	if len(items) != 1 || items[0].Message != "朝会" {
		t.Fatalf("unexpected list: %v", items)
	}

	if _, err := svc.Remove("guild-1", 2); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
	removed, err := svc.Remove("guild-1", 1)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if removed.Message != "朝会" {
		t.Fatalf("unexpected removed reminder: %v", removed)
	}
	if len(svc.List("guild-1")) != 0 {
		t.Fatalf("expected empty list after removal")
	}
}

func TestFireDueMentionsRole(t *testing.T) {
	dir := &stubDirectory{
		channels: []domain.NamedChannel{{ID: "42", Name: "スタッフ連絡"}},
		roles:    []domain.Role{{ID: "7", Name: "スタッフ"}},
	}
	messenger := &stubMessenger{}
	svc := newTestService(t, newMemStore(), dir, messenger)
	if _, err := svc.Add(context.Background(), "guild-1", domain.Reminder{Message: "朝会です", Time: "09:55", RoleName: "スタッフ"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	svc.fireDue(context.Background(), time.Date(2025, 4, 5, 9, 55, 0, 0, time.UTC))
	if len(messenger.sent) != 1 {
		t.Fatalf("expected one delivery, got %d", len(messenger.sent))
	}
	msg := messenger.sent[0]
	if msg.channelID != "42" {
		t.Fatalf("expected default channel, got %q", msg.channelID)
	}
	if msg.content != "<@&7>\n朝会です" {
		t.Fatalf("unexpected content: %q", msg.content)
	}
	if !msg.silent {
		t.Fatalf("non-public reminder must be silent")
	}

	// Off-schedule minutes fire nothing.
	svc.fireDue(context.Background(), time.Date(2025, 4, 5, 9, 56, 0, 0, time.UTC))
	if len(messenger.sent) != 1 {
		t.Fatalf("reminder fired at the wrong minute")
	}
}

func TestFireFallsBackToPlainSend(t *testing.T) {
	dir := &stubDirectory{channels: []domain.NamedChannel{{ID: "42", Name: "スタッフ連絡"}}}
	messenger := &stubMessenger{silentErr: true}
	svc := newTestService(t, newMemStore(), dir, messenger)
	if _, err := svc.Add(context.Background(), "guild-1", domain.Reminder{Message: "m", Time: "10:00", RoleName: "なし"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	svc.fireDue(context.Background(), time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC))
	if len(messenger.sent) != 1 {
		t.Fatalf("expected fallback delivery, got %d", len(messenger.sent))
	}
	if messenger.sent[0].silent {
		t.Fatalf("fallback send must be plain")
	}
	if messenger.sent[0].content != "@here\nm" {
		t.Fatalf("missing role must fall back to @here: %q", messenger.sent[0].content)
	}
}
