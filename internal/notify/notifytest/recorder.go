// Package notifytest provides an in-memory notify.Sender for tests.
package notifytest

import (
	"context"
	"errors"
	"sync"
)

// Recorder stores every message it is asked to send.
type Recorder struct {
	mu   sync.Mutex
	sent map[int64][]string
	// Fail makes every Send return an error after recording the message.
	Fail bool
}

func (r *Recorder) Send(_ context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = map[int64][]string{}
	}
	r.sent[chatID] = append(r.sent[chatID], text)
	if r.Fail {
		return errors.New("telegram unavailable")
	}
	return nil
}

// Messages returns what was sent to chatID.
func (r *Recorder) Messages(chatID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent[chatID]...)
}

// Total counts all recorded messages.
func (r *Recorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, msgs := range r.sent {
		n += len(msgs)
	}
	return n
}
