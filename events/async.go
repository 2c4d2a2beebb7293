package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Async hands events to next on a background goroutine so slow sinks such
// as mail providers never hold up a request. Failures are logged.
type Async struct {
	next    Publisher
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Publisher, logger *slog.Logger, timeout time.Duration) *Async {
	return &Async{next: next, logger: logger, timeout: timeout}
}

func (a *Async) Publish(ctx context.Context, event Event) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Publish(ctx, event); err != nil {
			a.logger.Error("async publish failed", "event_id", event.ID, "type", event.Type, "order_id", event.Order.ID.Hex(), "err", err)
		}
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (a *Async) Wait() {
	a.wg.Wait()
}
