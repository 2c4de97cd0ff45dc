package attendance

import (
	"fmt"
	"strings"

	"github.com/usamitakanari/discord-bot/internal/domain"
)

const (
	colorArrival   = 0x2ECC71
	colorDeparture = 0xE67E22
)

type attributeTemplate struct {
	label  string
	column string
}

// Attribute rendering order is fixed per status and must stay stable: the
// destination channels read these like a form printout.
var (
	arrivalAttributes = []attributeTemplate{
		{"🌡️ 体温", "体温"},
		{"💪 体調", "体調"},
		{"📋 体調備考", "体調備考"},
		{"🗓️ 本日の作業予定", "本日の作業予定"},
		{"🎯 本日の目標", "本日の目標"},
	}
	departureAttributes = []attributeTemplate{
		{"📝 本日の作業内容", "本日の作業内容"},
		{"🚩 感想", "感想"},
		{"📋 特記事項", "特記事項"},
	}
	departureChecklist = []attributeTemplate{
		{"✅ あいさつ・返事", "あいさつ・返事"},
		{"✅ 報告・連絡・相談", "報告・連絡・相談"},
		{"✅ 時間を守る", "時間を守る"},
		{"✅ 整理整頓", "整理整頓"},
	}
)

// FormatEvent renders an event into the notification payload for its status.
func FormatEvent(event domain.Event) domain.NotificationPayload {
	switch event.Status {
	case domain.StatusDeparture:
		return domain.NotificationPayload{
			Title: "🏠 退勤報告",
			Color: colorDeparture,
			Description: fmt.Sprintf(
				"%s さん！本日もお疲れ様でした✨\n退勤報告確認しました👍\n次回もよろしくお願いします🙇\n\n%s",
				event.SubjectName, event.RawTimestamp,
			),
			Fields: pickFields(event, departureAttributes, departureChecklist),
		}
	default:
		return domain.NotificationPayload{
			Title: "☀️ 出勤報告",
			Color: colorArrival,
			Description: fmt.Sprintf(
				"%s さん！%s☀️\n出勤報告確認しました👍\n本日もよろしくお願いします😊\n\n%s",
				event.SubjectName, greetingFor(event.OccurredAt.Hour()), event.RawTimestamp,
			),
			Fields: pickFields(event, arrivalAttributes),
		}
	}
}

func greetingFor(hour int) string {
	if hour <= 11 {
		return "おはようございます"
	}
	return "こんにちは"
}

// pickFields keeps the template order and drops attributes that are blank
// after trimming or absent from the current header.
func pickFields(event domain.Event, templates ...[]attributeTemplate) []domain.Field {
	var fields []domain.Field
	for _, template := range templates {
		for _, attr := range template {
			value := strings.TrimSpace(event.Attributes[attr.column])
			if value == "" {
				continue
			}
			fields = append(fields, domain.Field{Label: attr.label, Value: value})
		}
	}
	return fields
}
