package domain

import "context"

// SnapshotFetcher retrieves the current full spreadsheet export.
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// DeliveryLedger is the durable set of already-delivered keys. Record is only
// called after a confirmed successful send.
type DeliveryLedger interface {
	Seen(key string) bool
	Record(key string) error
}

// Messenger sends messages into the guild and reports gateway readiness.
type Messenger interface {
	WaitReady(ctx context.Context) error
	Send(ctx context.Context, dest Destination, payload NotificationPayload) error
	SendText(ctx context.Context, channelID, text string, silent bool) error
}

// Directory enumerates the live guild structure. Listings are never cached:
// the guild can change between polls.
type Directory interface {
	Groupings(ctx context.Context) ([]Grouping, error)
	TopicChannels(ctx context.Context) ([]TopicChannel, error)
	TextChannels(ctx context.Context) ([]NamedChannel, error)
	Roles(ctx context.Context) ([]Role, error)
}

// ReminderStore persists the reminder list per guild.
type ReminderStore interface {
	Load() (map[string][]Reminder, error)
	Save(map[string][]Reminder) error
}
