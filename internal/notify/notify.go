// Package notify posts maintenance events to chat platforms (Slack, Discord).
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/primefragrance/cmms/internal/config"
	"go.uber.org/zap"
)

// Severities understood by the chat formatters.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Message is one event destined for the maintenance channel.
type Message struct {
	Title    string
	Body     string
	Severity string
	Fields   []Field
}

// Field is a key-value pair shown under the message.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Notifier delivers messages to a chat platform.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Color returns the sidebar color for a severity.
func Color(severity string) string {
	switch severity {
	case SeveritySuccess:
		return "#36a64f"
	case SeverityWarning:
		return "#daa038"
	case SeverityError:
		return "#cc0000"
	default:
		return "#439fe0"
	}
}

// Nop discards every message.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Message) error { return nil }

// Multi fans a message out to several notifiers. Every notifier is tried;
// failures are joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the notifier for the configured platforms. With none
// configured it returns Nop.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var out Multi
	if cfg.Slack.Enabled() {
		s, err := NewSlack(SlackOpts{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if cfg.Discord.Enabled() {
		d, err := NewDiscord(DiscordOpts{BotToken: cfg.Discord.BotToken, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	switch len(out) {
	case 0:
		return Nop{}, nil
	case 1:
		return out[0], nil
	}
	return out, nil
}

// Logged wraps n so delivery failures are logged at Warn and never returned.
func Logged(n Notifier, log *zap.Logger) Notifier {
	if n == nil {
		n = Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &logged{next: n, log: log}
}

type logged struct {
	next Notifier
	log  *zap.Logger
}

func (l *logged) Notify(ctx context.Context, msg Message) error {
	if err := l.next.Notify(ctx, msg); err != nil {
		l.log.Warn("notification failed", zap.String("title", msg.Title), zap.Error(err))
	}
	return nil
}

func requireChannel(platform, channelID string) error {
	if channelID == "" {
		return fmt.Errorf("%s: no channel specified", platform)
	}
	return nil
}
