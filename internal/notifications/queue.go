package notifications

import (
	"context"
	"errors"
	"strings"
)

// ErrQueueFull is returned when a notice cannot be buffered.
var ErrQueueFull = errors.New("notification queue full")

// Publisher is the only notification capability checkout code depends on.
type Publisher interface {
	Publish(ctx context.Context, notice Notice) error
}

// Queue buffers published notices for a single Consumer. Publish never blocks
// a request handler; a full queue drops the notice.
type Queue struct {
	ch chan Notice
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{ch: make(chan Notice, size)}
}

func (q *Queue) Publish(ctx context.Context, notice Notice) error {
	if strings.TrimSpace(notice.Scope) == "" || strings.TrimSpace(notice.Message) == "" {
		return errors.New("notice scope and message required")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- notice:
		return nil
	default:
		return ErrQueueFull
	}
}
