package domain

import "time"

// Status is the closed set of attendance event kinds.
type Status int

const (
	StatusArrival Status = iota
	StatusDeparture
)

// ParseStatus maps the raw 出退勤 cell to a Status. Unknown values are rejected.
func ParseStatus(raw string) (Status, bool) {
	switch raw {
	case "出勤":
		return StatusArrival, true
	case "退勤":
		return StatusDeparture, true
	default:
		return 0, false
	}
}

// Label returns the sheet spelling of the status.
func (s Status) Label() string {
	if s == StatusDeparture {
		return "退勤"
	}
	return "出勤"
}

// Snapshot is one full fetch of the spreadsheet export: the located header row
// plus every data row below it.
type Snapshot struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the position of a named column in the header.
func (s Snapshot) ColumnIndex(name string) (int, bool) {
	for i, col := range s.Header {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// Event is an attendance report derived from one qualifying snapshot row.
// It is rebuilt on every poll; only its DeliveryKey is ever persisted.
type Event struct {
	SubjectName       string
	NormalizedSubject string
	OccurredAt        time.Time
	RawTimestamp      string
	Status            Status
	Attributes        map[string]string
}

// DeliveryKey identifies one logical event across repeated fetches of the
// same snapshot. The timestamp is part of the key so a subject can report
// the same status more than once per ledger lifetime.
func (e Event) DeliveryKey() string {
	return e.SubjectName + "|" + e.RawTimestamp + "|" + e.Status.Label()
}

// Field is one labelled value inside a notification.
type Field struct {
	Label string
	Value string
}

// NotificationPayload is the rendered form of an event.
type NotificationPayload struct {
	Title       string
	Color       int
	Description string
	Fields      []Field
}

// Destination is a concrete delivery target inside the guild, resolved fresh
// for every attempt.
type Destination struct {
	ChannelID string
	Label     string
}

// Grouping is a category with its child channels.
type Grouping struct {
	Name     string
	Channels []NamedChannel
}

// TopicChannel is a forum-style channel whose children are threads.
type TopicChannel struct {
	Name    string
	Threads []NamedChannel
}

// NamedChannel is a channel or thread referenced by name.
type NamedChannel struct {
	ID   string
	Name string
}

// Role is a guild role referenced by name.
type Role struct {
	ID   string
	Name string
}

// Reminder is one scheduled notification, keyed by guild in the store.
type Reminder struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Time        string `json:"time"`
	RoleName    string `json:"role_name"`
	ChannelName string `json:"channel_name,omitempty"`
	Public      bool   `json:"public"`
}
