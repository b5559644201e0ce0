package server

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/logging"
)

type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// runJanitor deletes expired desktop codes every interval until ctx is done.
func runJanitor(ctx context.Context, logger logging.Logger, p purger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				logger.Error(ctx, "purge expired desktop codes", "error", err)
				continue
			}
			if n > 0 {
				logger.Info(ctx, "purged expired desktop codes", "count", n)
			}
		}
	}
}
