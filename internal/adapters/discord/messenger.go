package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/usamitakanari/discord-bot/internal/domain"
	"github.com/usamitakanari/discord-bot/internal/infra/metrics"
)

// Messenger implements domain.Messenger and domain.Directory on top of a
// discordgo session for one guild.
type Messenger struct {
	session *discordgo.Session
	guildID string
	log     zerolog.Logger
	ready   chan struct{}
}

var (
	_ domain.Messenger = (*Messenger)(nil)
	_ domain.Directory = (*Messenger)(nil)
)

// NewMessenger creates the gateway session without opening it.
func NewMessenger(token, guildID string, logger zerolog.Logger) (*Messenger, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsGuildMembers

	m := &Messenger{session: session, guildID: guildID, log: logger, ready: make(chan struct{})}
	session.AddHandlerOnce(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info().Str("user", r.User.Username).Msg("discord: gateway ready")
		close(m.ready)
	})
	return m, nil
}

// Session exposes the underlying session for command registration.
func (m *Messenger) Session() *discordgo.Session {
	return m.session
}

// Connect opens the gateway connection.
func (m *Messenger) Connect() error {
	if err := m.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

// Close shuts the gateway connection down.
func (m *Messenger) Close() error {
	return m.session.Close()
}

// WaitReady blocks until the gateway reports readiness or ctx is cancelled.
func (m *Messenger) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers a notification payload as an embed to the destination.
func (m *Messenger) Send(ctx context.Context, dest domain.Destination, payload domain.NotificationPayload) error {
	fields := make([]*discordgo.MessageEmbedField, 0, len(payload.Fields))
	for _, f := range payload.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{Name: f.Label, Value: f.Value})
	}
	embed := &discordgo.MessageEmbed{
		Title:       payload.Title,
		Color:       payload.Color,
		Description: payload.Description,
		Fields:      fields,
	}

	start := time.Now()
	_, err := m.session.ChannelMessageSendEmbed(dest.ChannelID, embed, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "send_embed", start, err)
	if err != nil {
		return fmt.Errorf("send embed to %s: %w", dest.ChannelID, err)
	}
	return nil
}

// SendText delivers a plain message, optionally without a notification ping.
func (m *Messenger) SendText(ctx context.Context, channelID, text string, silent bool) error {
	msg := &discordgo.MessageSend{Content: text}
	if silent {
		msg.Flags = discordgo.MessageFlagsSuppressNotifications
	}
	start := time.Now()
	_, err := m.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	metrics.ObserveNetworkRequest("discord", "send_text", start, err)
	if err != nil {
		return fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return nil
}

// Groupings lists the guild's categories with their child channels.
func (m *Messenger) Groupings(ctx context.Context) ([]domain.Grouping, error) {
	channels, err := m.guildChannels(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]domain.NamedChannel)
	var categories []*discordgo.Channel
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory {
			categories = append(categories, ch)
			continue
		}
		if ch.ParentID != "" {
			byCategory[ch.ParentID] = append(byCategory[ch.ParentID], domain.NamedChannel{ID: ch.ID, Name: ch.Name})
		}
	}

	groupings := make([]domain.Grouping, 0, len(categories))
	for _, category := range categories {
		groupings = append(groupings, domain.Grouping{Name: category.Name, Channels: byCategory[category.ID]})
	}
	return groupings, nil
}

// TopicChannels lists forum channels with their active threads.
func (m *Messenger) TopicChannels(ctx context.Context) ([]domain.TopicChannel, error) {
	channels, err := m.guildChannels(ctx)
	if err != nil {
		return nil, err
	}
	active, err := m.session.GuildThreadsActive(m.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list active threads: %w", err)
	}

	byParent := make(map[string][]domain.NamedChannel)
	for _, thread := range active.Threads {
		byParent[thread.ParentID] = append(byParent[thread.ParentID], domain.NamedChannel{ID: thread.ID, Name: thread.Name})
	}

	var topics []domain.TopicChannel
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildForum {
			continue
		}
		topics = append(topics, domain.TopicChannel{Name: ch.Name, Threads: byParent[ch.ID]})
	}
	return topics, nil
}

// TextChannels lists plain text channels by name.
func (m *Messenger) TextChannels(ctx context.Context) ([]domain.NamedChannel, error) {
	channels, err := m.guildChannels(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.NamedChannel
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText {
			out = append(out, domain.NamedChannel{ID: ch.ID, Name: ch.Name})
		}
	}
	return out, nil
}

// Roles lists the guild's roles.
func (m *Messenger) Roles(ctx context.Context) ([]domain.Role, error) {
	roles, err := m.session.GuildRoles(m.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	out := make([]domain.Role, 0, len(roles))
	for _, role := range roles {
		out = append(out, domain.Role{ID: role.ID, Name: role.Name})
	}
	return out, nil
}

func (m *Messenger) guildChannels(ctx context.Context) ([]*discordgo.Channel, error) {
	channels, err := m.session.GuildChannels(m.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list guild channels: %w", err)
	}
	return channels, nil
}
