package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/luvwish-checkout/pkg/logger"
)

// Consumer is the single subscriber of a Queue. It stamps each notice and
// files it in the repository.
type Consumer struct {
	queue     *Queue
	repo      Repository
	logg      *logger.Logger
	transient time.Duration
	now       func() time.Time
}

// NewConsumer builds the notice consumer. transient is the configured
// auto-dismiss duration.
func NewConsumer(queue *Queue, repo Repository, logg *logger.Logger, transient time.Duration) (*Consumer, error) {
	if queue == nil {
		return nil, fmt.Errorf("notification queue required")
	}
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		queue:     queue,
		repo:      repo,
		logg:      logg,
		transient: ClampDuration(transient),
		now:       time.Now,
	}, nil
}

// Run drains the queue until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case notice := <-c.queue.ch:
			c.deliver(ctx, notice)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, notice Notice) {
	stamped := notice.stamp(c.now().UTC(), c.transient)
	if err := c.repo.Add(ctx, stamped); err != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"notice_id":   stamped.ID,
			"notice_kind": string(stamped.Kind),
		})
		c.logg.Error(logCtx, "notifications.deliver.failed", err)
	}
}
