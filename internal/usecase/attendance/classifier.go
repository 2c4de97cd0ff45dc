package attendance

import (
	"strings"
	"time"

	"github.com/usamitakanari/discord-bot/internal/domain"
)

// TimestampLayout is the fixed format of the タイムスタンプ column.
const TimestampLayout = "2006/01/02 15:04:05"

// Column names required in every snapshot.
const (
	ColumnName      = "お名前"
	ColumnTimestamp = "タイムスタンプ"
	ColumnStatus    = "出退勤"
)

// SkipReason explains why a row was not classified.
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipMissingColumns  SkipReason = "missing_columns"
	SkipShortRow        SkipReason = "short_row"
	SkipBlankName       SkipReason = "blank_name"
	SkipBadTimestamp    SkipReason = "bad_timestamp"
	SkipNotToday        SkipReason = "not_today"
	SkipBeforeWatermark SkipReason = "before_watermark"
	SkipUnknownStatus   SkipReason = "unknown_status"
)

// Classifier decides whether a snapshot row is a new in-scope attendance
// event and extracts its typed fields.
type Classifier struct {
	loc       *time.Location
	watermark time.Time
}

// NewClassifier creates a classifier. Events strictly before watermark are
// never classified, bounding backward reach after a restart.
func NewClassifier(loc *time.Location, watermark time.Time) *Classifier {
	return &Classifier{loc: loc, watermark: watermark}
}

// Classify extracts an event from row, or reports why the row is skipped.
// Malformed rows suppress themselves rather than failing the iteration.
func (c *Classifier) Classify(snap domain.Snapshot, row []string, now time.Time) (domain.Event, SkipReason) {
	nameCol, okName := snap.ColumnIndex(ColumnName)
	tsCol, okTS := snap.ColumnIndex(ColumnTimestamp)
	statusCol, okStatus := snap.ColumnIndex(ColumnStatus)
	if !okName || !okTS || !okStatus {
		return domain.Event{}, SkipMissingColumns
	}

	if len(row) <= max(nameCol, tsCol, statusCol) {
		return domain.Event{}, SkipShortRow
	}

	name := strings.TrimSpace(row[nameCol])
	if name == "" {
		return domain.Event{}, SkipBlankName
	}

	rawTimestamp := strings.TrimSpace(row[tsCol])
	occurredAt, err := time.ParseInLocation(TimestampLayout, rawTimestamp, c.loc)
	if err != nil {
		return domain.Event{}, SkipBadTimestamp
	}

	nowLocal := now.In(c.loc)
	if occurredAt.Year() != nowLocal.Year() || occurredAt.YearDay() != nowLocal.YearDay() {
		return domain.Event{}, SkipNotToday
	}
	if occurredAt.Before(c.watermark) {
		return domain.Event{}, SkipBeforeWatermark
	}

	status, ok := domain.ParseStatus(strings.TrimSpace(row[statusCol]))
	if !ok {
		return domain.Event{}, SkipUnknownStatus
	}

	// Free-text attributes follow the header by name, tolerating header
	// drift between fetches.
	attributes := make(map[string]string)
	for i, column := range snap.Header {
		if column == "" || column == ColumnName || column == ColumnTimestamp || column == ColumnStatus {
			continue
		}
		if i >= len(row) {
			continue
		}
		if value := strings.TrimSpace(row[i]); value != "" {
			attributes[column] = value
		}
	}

	return domain.Event{
		SubjectName:       name,
		NormalizedSubject: NormalizeName(name),
		OccurredAt:        occurredAt,
		RawTimestamp:      rawTimestamp,
		Status:            status,
		Attributes:        attributes,
	}, SkipNone
}
