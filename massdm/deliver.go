package massdm

import (
	"context"
	"time"

	"discord-modbot/metrics"
	"discord-modbot/utils"

	"go.uber.org/zap"
)

// Result counts the outcome of a mass DM.
type Result struct {
	Sent   int
	Failed int
}

// Deliver sends message to every recipient one after the other, pausing delay after
// each successful send. It stops early when ctx is cancelled.
func Deliver(ctx context.Context, s utils.DirectMessenger, recipients []string, message string, delay time.Duration, logger *zap.Logger) Result {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res Result
	for _, userID := range recipients {
		if ctx.Err() != nil {
			break
		}
		if err := utils.SendPrivateMessage(s, userID, message); err != nil {
			res.Failed++
			metrics.DirectMessages.WithLabelValues("failed").Inc()
			logger.Debug("Mass DM failed", zap.String("userID", userID), zap.Error(err))
			continue
		}
		res.Sent++
		metrics.DirectMessages.WithLabelValues("sent").Inc()

		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}
	return res
}
