package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/usamitakanari/discord-bot/internal/domain"
)

// ErrDestinationNotFound is returned when no category or forum channel
// matches the subject. The event stays undelivered and unrecorded so it can
// retry once the destination appears.
var ErrDestinationNotFound = errors.New("no destination for subject")

// Resolver maps a normalized subject name to a live delivery target. The
// guild structure is listed fresh on every call.
type Resolver struct {
	dir            domain.Directory
	subchannelName string
}

// NewResolver creates a resolver delivering into subchannelName.
func NewResolver(dir domain.Directory, subchannelName string) *Resolver {
	return &Resolver{dir: dir, subchannelName: subchannelName}
}

// Resolve finds the destination for a normalized subject. A category match
// always wins over a forum-channel match, and the first match short-circuits.
func (r *Resolver) Resolve(ctx context.Context, normalizedSubject string) (domain.Destination, error) {
	groupings, err := r.dir.Groupings(ctx)
	if err != nil {
		return domain.Destination{}, fmt.Errorf("list groupings: %w", err)
	}
	for _, grouping := range groupings {
		if NormalizeName(grouping.Name) != normalizedSubject {
			continue
		}
		for _, channel := range grouping.Channels {
			if channel.Name == r.subchannelName {
				return domain.Destination{
					ChannelID: channel.ID,
					Label:     grouping.Name + "/" + channel.Name,
				}, nil
			}
		}
	}

	topics, err := r.dir.TopicChannels(ctx)
	if err != nil {
		return domain.Destination{}, fmt.Errorf("list topic channels: %w", err)
	}
	for _, topic := range topics {
		if NormalizeName(topic.Name) != normalizedSubject {
			continue
		}
		for _, thread := range topic.Threads {
			if thread.Name == r.subchannelName {
				return domain.Destination{
					ChannelID: thread.ID,
					Label:     topic.Name + "/" + thread.Name,
				}, nil
			}
		}
		break
	}

	return domain.Destination{}, ErrDestinationNotFound
}
