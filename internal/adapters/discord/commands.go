package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/usamitakanari/discord-bot/internal/domain"
	"github.com/usamitakanari/discord-bot/internal/usecase/remind"
)

// Handler serves the bot's slash commands.
type Handler struct {
	session  *discordgo.Session
	guildID  string
	remindUC *remind.Service
	archiver *Archiver
	log      zerolog.Logger
}

// NewHandler creates the command handler and hooks it into the session.
func NewHandler(session *discordgo.Session, guildID string, remindUC *remind.Service, archiver *Archiver, logger zerolog.Logger) *Handler {
	h := &Handler{session: session, guildID: guildID, remindUC: remindUC, archiver: archiver, log: logger}
	session.AddHandler(h.handleInteraction)
	return h
}

var commandDefinitions = []*discordgo.ApplicationCommand{
	{
		Name:        "リマインド",
		Description: "リマインドを設定します",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "内容", Description: "通知するメッセージの内容", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "時間", Description: "通知する時間（例: 16:30）", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "ロール", Description: "メンションするロール名", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "チャンネル", Description: "送信するチャンネル名"},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "公開", Description: "リマインド通知を公開するか"},
		},
	},
	{
		Name:        "リマインド一覧",
		Description: "設定されているリマインドを表示します",
	},
	{
		Name:        "リマインド削除",
		Description: "リマインドを削除します",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "番号", Description: "削除したいリマインドの番号（一覧で表示された番号）", Required: true},
		},
	},
	{
		Name:        "archive_ch_th",
		Description: "チャンネルの内容をフォーラム投稿に保存します",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type: discordgo.ApplicationCommandOptionChannel, Name: "保存元", Description: "保存元のチャンネル", Required: true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			},
			{
				Type: discordgo.ApplicationCommandOptionChannel, Name: "保存先", Description: "保存先のフォーラム投稿（スレッド）", Required: true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildPublicThread},
			},
		},
	},
	{
		Name:        "archive_th_th",
		Description: "フォーラム投稿の内容を別のフォーラム投稿に保存します",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type: discordgo.ApplicationCommandOptionChannel, Name: "保存元", Description: "保存元のフォーラム投稿（スレッド）", Required: true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildPublicThread},
			},
			{
				Type: discordgo.ApplicationCommandOptionChannel, Name: "保存先", Description: "保存先のフォーラム投稿（スレッド）", Required: true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildPublicThread},
			},
		},
	},
	{
		Name:        "server",
		Description: "サーバーの情報を表示します",
	},
}

// Register overwrites the guild's slash commands. Must run after readiness,
// the application ID comes from the session state.
func (h *Handler) Register() error {
	_, err := h.session.ApplicationCommandBulkOverwrite(h.session.State.User.ID, h.guildID, commandDefinitions)
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

func (h *Handler) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	ctx := context.Background()

	switch data.Name {
	case "リマインド":
		h.handleRemindSet(ctx, i, data)
	case "リマインド一覧":
		h.handleRemindList(i)
	case "リマインド削除":
		h.handleRemindDelete(i, data)
	case "archive_ch_th", "archive_th_th":
		h.handleArchive(ctx, i, data)
	case "server":
		h.handleServerInfo(i)
	default:
		h.respondEphemeral(i, "不明なコマンドです。")
	}
}

func (h *Handler) handleRemindSet(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	reminder := domain.Reminder{
		Message:  stringOption(opts, "内容"),
		Time:     stringOption(opts, "時間"),
		RoleName: strings.TrimPrefix(stringOption(opts, "ロール"), "@"),
	}
	if opt, ok := opts["チャンネル"]; ok {
		reminder.ChannelName = opt.StringValue()
	}
	if opt, ok := opts["公開"]; ok {
		reminder.Public = opt.BoolValue()
	}

	saved, err := h.remindUC.Add(ctx, i.GuildID, reminder)
	if err != nil {
		switch {
		case errors.Is(err, remind.ErrInvalidTime):
			h.respondEphemeral(i, "⚠️ 時間は HH:MM 形式で指定してください。例: 16:30")
		case errors.Is(err, remind.ErrUnknownChannel):
			h.respondEphemeral(i, fmt.Sprintf("⚠️ チャンネル '%s' は存在しません。", reminder.ChannelName))
		default:
			h.log.Error().Err(err).Msg("commands: reminder add failed")
			h.respondEphemeral(i, "リマインドの保存に失敗しました。")
		}
		return
	}

	h.respond(i, fmt.Sprintf("⏰ リマインド設定完了：%s に '%s' を @%s に送信します。", saved.Time, saved.Message, saved.RoleName), !saved.Public)
}

func (h *Handler) handleRemindList(i *discordgo.InteractionCreate) {
	items := h.remindUC.List(i.GuildID)
	if len(items) == 0 {
		h.respondEphemeral(i, "🔕 設定されているリマインドはありません。")
		return
	}

	var b strings.Builder
	b.WriteString("📋 リマインド一覧：\n")
	for idx, item := range items {
		fmt.Fprintf(&b, "%d. 🕒 %s | @%s | %s", idx+1, item.Time, item.RoleName, item.Message)
		if item.ChannelName != "" {
			fmt.Fprintf(&b, " → #%s", item.ChannelName)
		}
		b.WriteString("\n")
	}
	h.respondEphemeral(i, strings.TrimSpace(b.String()))
}

func (h *Handler) handleRemindDelete(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	number := int(opts["番号"].IntValue())
	removed, err := h.remindUC.Remove(i.GuildID, number)
	if err != nil {
		if errors.Is(err, remind.ErrInvalidIndex) {
			h.respondEphemeral(i, "⚠️ 無効な番号です。")
			return
		}
		h.log.Error().Err(err).Msg("commands: reminder delete failed")
		h.respondEphemeral(i, "リマインドの削除に失敗しました。")
		return
	}
	h.respondEphemeral(i, fmt.Sprintf("🗑 リマインド削除済み：%s @%s → %s", removed.Time, removed.RoleName, removed.Message))
}

func (h *Handler) handleArchive(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	source := opts["保存元"].ChannelValue(h.session)
	dest := opts["保存先"].ChannelValue(h.session)
	if source == nil || dest == nil {
		h.respondEphemeral(i, "保存元と保存先を指定してください。")
		return
	}

	if err := h.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		h.log.Error().Err(err).Msg("commands: archive defer failed")
		return
	}

	copied, err := h.archiver.Archive(ctx, source.ID, dest.ID)
	var content string
	switch {
	case err != nil:
		h.log.Error().Err(err).Msg("commands: archive failed")
		content = "アーカイブ処理でエラーが発生しました。"
	case copied == 0:
		content = "保存元にメッセージがありません。"
	default:
		content = fmt.Sprintf("保存元: <#%s> のメッセージをスレッド: <#%s> に保存しました！（%d件）", source.ID, dest.ID, copied)
	}
	if _, err := h.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		h.log.Error().Err(err).Msg("commands: archive followup failed")
	}
}

func (h *Handler) handleServerInfo(i *discordgo.InteractionCreate) {
	guild, err := h.session.Guild(i.GuildID)
	if err != nil {
		h.respondEphemeral(i, "このコマンドはサーバー内でのみ使用できます。")
		return
	}
	roles, _ := h.session.GuildRoles(i.GuildID)
	channels, _ := h.session.GuildChannels(i.GuildID)

	embed := &discordgo.MessageEmbed{
		Title: "📊 サーバー情報",
		Color: 0x00AE86,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "メンバー数", Value: fmt.Sprintf("%d人", guild.MemberCount), Inline: true},
			{Name: "ロール数", Value: fmt.Sprintf("%d/250個", len(roles)), Inline: true},
			{Name: "チャンネル数", Value: fmt.Sprintf("%d/500個", len(channels)), Inline: true},
		},
	}
	if err := h.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		h.log.Error().Err(err).Msg("commands: server info respond failed")
	}
}

func (h *Handler) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	h.respond(i, content, true)
}

func (h *Handler) respond(i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := h.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		h.log.Error().Err(err).Msg("commands: respond failed")
	}
}

func optionMap(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		opts[opt.Name] = opt
	}
	return opts
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}
