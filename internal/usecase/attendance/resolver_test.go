package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/usamitakanari/discord-bot/internal/domain"
)

type stubDirectory struct {
	groupings []domain.Grouping
	topics    []domain.TopicChannel
}

func (d *stubDirectory) Groupings(context.Context) ([]domain.Grouping, error) {
	return d.groupings, nil
}
func (d *stubDirectory) TopicChannels(context.Context) ([]domain.TopicChannel, error) {
	return d.topics, nil
}
func (d *stubDirectory) TextChannels(context.Context) ([]domain.NamedChannel, error) { return nil, nil }
func (d *stubDirectory) Roles(context.Context) ([]domain.Role, error)                { return nil, nil }

func TestResolveCategoryMatch(t *testing.T) {
	dir := &stubDirectory{
		groupings: []domain.Grouping{
			{Name: "総務", Channels: []domain.NamedChannel{{ID: "1", Name: "雑談"}}},
			{Name: "高橋", Channels: []domain.NamedChannel{{ID: "2", Name: "今日のお仕事"}}},
		},
	}
	r := NewResolver(dir, "今日のお仕事")

	dest, err := r.Resolve(context.Background(), NormalizeName("高橋"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.ChannelID != "2" {
		t.Fatalf("expected channel 2, got %q", dest.ChannelID)
	}
}

func TestResolveVariantIdeographEquivalence(t *testing.T) {
	dir := &stubDirectory{
		groupings: []domain.Grouping{
			{Name: "高橋", Channels: []domain.NamedChannel{{ID: "2", Name: "今日のお仕事"}}},
		},
	}
	r := NewResolver(dir, "今日のお仕事")

	legacy, err := r.Resolve(context.Background(), NormalizeName("髙橋"))
	if err != nil {
		t.Fatalf("legacy variant did not resolve: %v", err)
	}
	canonical, err := r.Resolve(context.Background(), NormalizeName("高橋"))
	if err != nil {
		t.Fatalf("canonical spelling did not resolve: %v", err)
	}
	if legacy.ChannelID != canonical.ChannelID {
		t.Fatalf("variant and canonical spellings resolved differently: %q vs %q", legacy.ChannelID, canonical.ChannelID)
	}
}

func TestResolveCategoryWinsOverForum(t *testing.T) {
	dir := &stubDirectory{
		groupings: []domain.Grouping{
			{Name: "佐藤", Channels: []domain.NamedChannel{{ID: "cat", Name: "今日のお仕事"}}},
		},
		topics: []domain.TopicChannel{
			{Name: "佐藤", Threads: []domain.NamedChannel{{ID: "forum", Name: "今日のお仕事"}}},
		},
	}
	r := NewResolver(dir, "今日のお仕事")

	dest, err := r.Resolve(context.Background(), NormalizeName("佐藤"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.ChannelID != "cat" {
		t.Fatalf("category match must win, got %q", dest.ChannelID)
	}
}

func TestResolveForumThreadFallback(t *testing.T) {
	dir := &stubDirectory{
		topics: []domain.TopicChannel{
			{Name: "鈴木", Threads: []domain.NamedChannel{
				{ID: "t1", Name: "メモ"},
				{ID: "t2", Name: "今日のお仕事"},
			}},
		},
	}
	r := NewResolver(dir, "今日のお仕事")

	dest, err := r.Resolve(context.Background(), NormalizeName("鈴木"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.ChannelID != "t2" {
		t.Fatalf("expected thread t2, got %q", dest.ChannelID)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := NewResolver(&stubDirectory{}, "今日のお仕事")
	_, err := r.Resolve(context.Background(), NormalizeName("存在しない"))
	if !errors.Is(err, ErrDestinationNotFound) {
		t.Fatalf("expected ErrDestinationNotFound, got %v", err)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{" 山田 太郎 ", "山田太郎"},
		{"山田　太郎", "山田太郎"},
		{"髙橋", "高橋"},
		{"山﨑", "山崎"},
		{"ＡＢＣ", "ABC"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
