package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartIngestScheduler runs ingester every interval until ctx is cancelled.
// interval <= 0 disables it and leaves ingestion to an external scheduler.
func StartIngestScheduler(ctx context.Context, ingester *NewsIngester, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			// wait first so startup is not slowed by a fetch
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			res, err := ingester.IngestLatest(ctx)
			if err != nil {
				logger.Warn("scheduled news ingestion failed", zap.Error(err))
				continue
			}
			logger.Debug("scheduled news ingestion", zap.Int("inserted", res.Inserted))
		}
	}()
}
