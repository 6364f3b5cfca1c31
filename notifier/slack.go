// grbwatch/notifier/slack.go
package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/gewnthar/grbwatch/config"
	"github.com/gewnthar/grbwatch/models"
	"github.com/slack-go/slack"
)

// Slack posts alert summaries to one channel under a fixed bot identity.
type Slack struct {
	client  *slack.Client
	channel string
	botName string
	iconURL string
}

// NewSlack creates the client and resolves cfg.Channel to its ID by listing
// every channel visible to the token. The name is matched case-insensitively;
// when nothing matches, messages are addressed to the channel name.
func NewSlack(ctx context.Context, cfg config.SlackConfig) (*Slack, error) {
	var opts []slack.Option
	if cfg.APIURL != "" {
		apiURL := cfg.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	client := slack.New(cfg.Token, opts...)

	channelID, err := resolveChannel(ctx, client, cfg.Channel)
	if err != nil {
		return nil, err
	}
	if channelID == "" {
		log.Warnf("Slack channel %q not found in conversations.list; posting by name", cfg.Channel)
		channelID = cfg.Channel
	} else {
		log.Infof("Resolved Slack channel %q to %s", cfg.Channel, channelID)
	}

	return &Slack{
		client:  client,
		channel: channelID,
		botName: cfg.BotName,
		iconURL: cfg.IconURL,
	}, nil
}

func resolveChannel(ctx context.Context, client *slack.Client, name string) (string, error) {
	params := &slack.GetConversationsParameters{
		Limit: 1000,
		Types: []string{"public_channel", "private_channel"},
	}
	for {
		channels, cursor, err := client.GetConversationsContext(ctx, params)
		if err != nil {
			return "", fmt.Errorf("failed to list Slack channels: %w", err)
		}
		for _, ch := range channels {
			if strings.EqualFold(ch.Name, name) {
				return ch.ID, nil
			}
		}
		if cursor == "" {
			return "", nil
		}
		params.Cursor = cursor
	}
}

// ChannelID returns the channel messages are posted to.
func (s *Slack) ChannelID() string {
	return s.channel
}

// Post sends one chat.postMessage call. There is no retry.
func (s *Slack) Post(ctx context.Context, payload models.NotificationPayload) error {
	_, ts, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(FormatMessage(payload), false),
		slack.MsgOptionUsername(s.botName),
		slack.MsgOptionIconURL(s.iconURL),
	)
	if err != nil {
		return fmt.Errorf("failed to post trigger %s to Slack channel %s: %w", payload.Trig, s.channel, err)
	}
	log.Infof("Posted trigger %s to Slack channel %s (ts=%s)", payload.Trig, s.channel, ts)
	return nil
}
