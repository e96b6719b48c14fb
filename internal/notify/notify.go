// Package notify delivers best-effort push messages to users through the
// Telegram bot. Delivery never blocks or fails the operation that triggered it.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// Sender delivers one text message to a Telegram chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// NopSender drops every message. Used when no bot token is configured.
type NopSender struct{}

func (NopSender) Send(context.Context, int64, string) error { return nil }

// Dispatcher runs each delivery in its own goroutine with its own timeout,
// detached from the request that triggered it.
type Dispatcher struct {
	sender  Sender
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over sender. A nil sender means NopSender.
func NewDispatcher(sender Sender, log *slog.Logger) *Dispatcher {
	if sender == nil {
		sender = NopSender{}
	}
	return &Dispatcher{sender: sender, log: log, timeout: DefaultTimeout}
}

// Dispatch schedules a message and returns immediately.
// Failures are logged and swallowed.
func (d *Dispatcher) Dispatch(chatID int64, text string) {
	if d == nil || chatID == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification panicked", "chat_id", chatID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, chatID, text); err != nil {
			d.log.Warn("notification failed", "chat_id", chatID, "err", err)
			return
		}
		d.log.Debug("notification sent", "chat_id", chatID)
	}()
}

// Wait blocks until all scheduled deliveries have finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
