package attendance

import (
	"testing"
	"time"

	"github.com/usamitakanari/discord-bot/internal/domain"
)

var testHeader = []string{"タイムスタンプ", "お名前", "出退勤", "体温", "本日の作業予定"}

func testSnapshot(rows ...[]string) domain.Snapshot {
	return domain.Snapshot{Header: testHeader, Rows: rows}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation(TimestampLayout, value, time.UTC)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return parsed
}

func TestClassifyArrival(t *testing.T) {
	watermark := mustTime(t, "2025/04/05 09:00:00")
	c := NewClassifier(time.UTC, watermark)
	now := mustTime(t, "2025/04/05 12:00:00")

	row := []string{"2025/04/05 09:30:00", "山田 太郎", "出勤", "36.5", "資料作成"}
	event, skip := c.Classify(testSnapshot(row), row, now)
	if skip != SkipNone {
		t.Fatalf("expected classification, got skip %q", skip)
	}
	if event.SubjectName != "山田 太郎" {
		t.Fatalf("unexpected subject: %q", event.SubjectName)
	}
	if event.NormalizedSubject != "山田太郎" {
		t.Fatalf("expected whitespace stripped, got %q", event.NormalizedSubject)
	}
	if event.Status != domain.StatusArrival {
		t.Fatalf("expected arrival status")
	}
	if event.Attributes["体温"] != "36.5" || event.Attributes["本日の作業予定"] != "資料作成" {
		t.Fatalf("attributes not extracted: %v", event.Attributes)
	}
}

func TestClassifyWatermarkExclusion(t *testing.T) {
	watermark := mustTime(t, "2025/04/05 09:00:00")
	c := NewClassifier(time.UTC, watermark)
	now := mustTime(t, "2025/04/05 12:00:00")

	row := []string{"2025/04/05 08:59:59", "山田", "出勤", "", ""}
	if _, skip := c.Classify(testSnapshot(row), row, now); skip != SkipBeforeWatermark {
		t.Fatalf("expected before_watermark skip, got %q", skip)
	}

	// Exactly at the watermark is eligible.
	row = []string{"2025/04/05 09:00:00", "山田", "出勤", "", ""}
	if _, skip := c.Classify(testSnapshot(row), row, now); skip != SkipNone {
		t.Fatalf("expected classification at the watermark, got %q", skip)
	}
}

func TestClassifySkips(t *testing.T) {
	watermark := mustTime(t, "2025/04/05 00:00:00")
	c := NewClassifier(time.UTC, watermark)
	now := mustTime(t, "2025/04/05 12:00:00")

	cases := []struct {
		name string
		row  []string
		want SkipReason
	}{
		{"short row", []string{"2025/04/05 10:00:00", "山田"}, SkipShortRow},
		{"blank name", []string{"2025/04/05 10:00:00", "   ", "出勤"}, SkipBlankName},
		{"bad timestamp", []string{"昨日のどこか", "山田", "出勤"}, SkipBadTimestamp},
		{"previous day", []string{"2025/04/04 10:00:00", "山田", "出勤"}, SkipNotToday},
		{"unknown status", []string{"2025/04/05 10:00:00", "山田", "欠勤"}, SkipUnknownStatus},
	}
	for _, tc := range cases {
		if _, skip := c.Classify(testSnapshot(tc.row), tc.row, now); skip != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, skip)
		}
	}
}

func TestClassifyToleratesHeaderDrift(t *testing.T) {
	watermark := mustTime(t, "2025/04/05 00:00:00")
	c := NewClassifier(time.UTC, watermark)
	now := mustTime(t, "2025/04/05 12:00:00")

	// Header without the optional attribute columns.
	snap := domain.Snapshot{
		Header: []string{"タイムスタンプ", "お名前", "出退勤"},
		Rows:   nil,
	}
	row := []string{"2025/04/05 10:00:00", "山田", "退勤"}
	event, skip := c.Classify(snap, row, now)
	if skip != SkipNone {
		t.Fatalf("expected classification, got %q", skip)
	}
	if len(event.Attributes) != 0 {
		t.Fatalf("expected no attributes, got %v", event.Attributes)
	}
}
