package filewatcher

import (
	"context"
	"time"

	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// Debounce calls fn once events have been quiet for wait. A burst of
// writes from one ingestion run collapses into a single call. It returns
// when ctx is done or events is closed; a pending call is flushed on close.
func Debounce(ctx context.Context, events <-chan ports.FileEvent, wait time.Duration, fn func(ctx context.Context)) {
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}

	// fire is nil while nothing is pending.
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				if fire != nil {
					fn(ctx)
				}
				return
			}
			fire = time.After(wait)
		case <-fire:
			fire = nil
			fn(ctx)
		}
	}
}
