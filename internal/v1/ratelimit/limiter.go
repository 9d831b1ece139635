// Package ratelimit implements the per-connection inbound line limit on top
// of ulule/limiter's in-memory store.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/secirc/secirc/internal/v1/logging"
	"github.com/secirc/secirc/internal/v1/metrics"
)

// MessageLimiter enforces a per-connection messages-per-second cap. Every
// inbound line is counted before dispatch; a rejected line costs the client
// one ERROR RATE_LIMITED reply, never the connection.
type MessageLimiter struct {
	limiter *limiter.Limiter
}

// NewMessageLimiter builds a limiter allowing perSecond lines in each
// one-second window, keyed by connection id.
func NewMessageLimiter(perSecond int) *MessageLimiter {
	rate := limiter.Rate{
		Period: time.Second,
		Limit:  int64(perSecond),
	}
	return &MessageLimiter{limiter: limiter.New(memory.NewStore(), rate)}
}

// Allow counts one line for the given connection and reports whether it is
// within the window. Store failures fail open: availability over strictness.
func (l *MessageLimiter) Allow(ctx context.Context, connID uint64) bool {
	res, err := l.limiter.Get(ctx, strconv.FormatUint(connID, 10))
	if err != nil {
		logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
		return true
	}
	if res.Reached {
		metrics.RateLimitedTotal.Inc()
		return false
	}
	return true
}
