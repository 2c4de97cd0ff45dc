package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/usamitakanari/discord-bot/internal/adapters/images"
)

const (
	archiveFetchLimit = 100
	archivePacing     = 500 * time.Millisecond
)

// Archiver copies the recent history of a channel or thread into a forum
// thread, preserving author, timestamp and attachments.
type Archiver struct {
	session    *discordgo.Session
	httpClient *http.Client
	maxBytes   int
	log        zerolog.Logger
}

// NewArchiver creates an archiver that compresses image attachments larger
// than maxBytes before re-uploading.
func NewArchiver(session *discordgo.Session, maxBytes int, logger zerolog.Logger) *Archiver {
	return &Archiver{
		session:    session,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxBytes:   maxBytes,
		log:        logger,
	}
}

// Archive copies up to the fetch limit of messages from sourceID into
// destID, oldest first, and returns how many were copied. A failure on one
// message never aborts the rest.
func (a *Archiver) Archive(ctx context.Context, sourceID, destID string) (int, error) {
	messages, err := a.session.ChannelMessages(sourceID, archiveFetchLimit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("read source history: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	copied := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		msg := messages[i]
		if msg.Content == "" && len(msg.Attachments) == 0 {
			continue
		}
		if err := a.copyMessage(ctx, msg, destID); err != nil {
			a.log.Error().Err(err).Str("message", msg.ID).Msg("archive: message copy failed")
			continue
		}
		copied++
		time.Sleep(archivePacing)
	}
	return copied, nil
}

func (a *Archiver) copyMessage(ctx context.Context, msg *discordgo.Message, destID string) error {
	chunks := SplitMessage(msg.Content)
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	files := a.collectFiles(ctx, msg)

	for i, chunk := range chunks {
		embed := &discordgo.MessageEmbed{Description: chunk}
		if i == 0 {
			embed.Author = &discordgo.MessageEmbedAuthor{
				Name:    authorName(msg),
				IconURL: msg.Author.AvatarURL(""),
			}
			embed.Timestamp = msg.Timestamp.Format(time.RFC3339)
		}
		send := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
		if i == len(chunks)-1 {
			send.Files = files
		}
		if _, err := a.session.ChannelMessageSendComplex(destID, send, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send archived message: %w", err)
		}
	}
	return nil
}

// collectFiles downloads the attachments, compressing images that exceed
// the upload budget. An attachment that cannot be fetched is skipped.
func (a *Archiver) collectFiles(ctx context.Context, msg *discordgo.Message) []*discordgo.File {
	var files []*discordgo.File
	for _, att := range msg.Attachments {
		data, err := a.download(ctx, att.URL)
		if err != nil {
			a.log.Warn().Err(err).Str("attachment", att.Filename).Msg("archive: attachment download failed")
			continue
		}
		name := att.Filename
		contentType := att.ContentType
		if strings.HasPrefix(contentType, "image/") && len(data) > a.maxBytes {
			compressed, err := images.Compress(data, a.maxBytes)
			if err != nil {
				a.log.Warn().Err(err).Str("attachment", att.Filename).Msg("archive: compression failed, uploading original")
			} else {
				data = compressed
				name = strings.TrimSuffix(name, ext(name)) + ".jpg"
				contentType = "image/jpeg"
			}
		}
		files = append(files, &discordgo.File{Name: name, ContentType: contentType, Reader: bytes.NewReader(data)})
	}
	return files
}

func (a *Archiver) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func authorName(msg *discordgo.Message) string {
	if msg.Member != nil && msg.Member.Nick != "" {
		return msg.Member.Nick
	}
	if msg.Author.GlobalName != "" {
		return msg.Author.GlobalName
	}
	return msg.Author.Username
}

func ext(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}
