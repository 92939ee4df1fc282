// Package notify dispatches short run reports to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Channel names a notification sink.
type Channel string

const (
	ChannelWebhook Channel = "webhook"
	ChannelLog     Channel = "log"
)

// Message is a channel-neutral notification.
type Message struct {
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Format string            `json:"format"` // "plain" or "markdown"
	Fields map[string]string `json:"fields,omitempty"`
}

// Notifier sends a message to one channel.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Channel() Channel
}

// Dispatcher fans a message out to every registered notifier.
type Dispatcher struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher with the given notifiers.
func NewDispatcher(logger *slog.Logger, notifiers ...Notifier) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifiers: notifiers, logger: logger}
}

// Register adds a notifier.
func (d *Dispatcher) Register(n Notifier) {
	d.notifiers = append(d.notifiers, n)
}

// Len reports how many notifiers are registered.
func (d *Dispatcher) Len() int { return len(d.notifiers) }

// SendAll delivers msg to every notifier. A failing channel does not stop
// the others; all failures are joined into the returned error.
func (d *Dispatcher) SendAll(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Send(ctx, msg); err != nil {
			d.logger.Error("notification failed", "channel", n.Channel(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Channel(), err))
			continue
		}
		d.logger.Debug("notification sent", "channel", n.Channel(), "title", msg.Title)
	}
	return errors.Join(errs...)
}

// LogNotifier writes messages to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs at info level.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Channel() Channel { return ChannelLog }

func (l *LogNotifier) Send(_ context.Context, msg Message) error {
	args := []any{"title", msg.Title}
	for k, v := range msg.Fields {
		args = append(args, k, v)
	}
	l.logger.Info("run report", args...)
	return nil
}
