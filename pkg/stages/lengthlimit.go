package stages

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/metrics"
	"outbound-reply-pipeline/pkg/models"
)

// LengthLimitStage enforces the SMS character budget. Other channels pass
// through untouched.
type LengthLimitStage struct {
	limit   int
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewLengthLimitStage(limit int, m *metrics.Metrics, logger *logrus.Logger) *LengthLimitStage {
	return &LengthLimitStage{
		limit:   limit,
		metrics: m,
		logger:  logger,
	}
}

func (s *LengthLimitStage) Name() string {
	return "channel_length_limiter"
}

func (s *LengthLimitStage) Process(_ context.Context, resp *models.ProcessedResponse, pctx *models.ProcessingContext) error {
	if pctx.Channel != models.ChannelSMS {
		return nil
	}

	runes := []rune(resp.Message)
	if len(runes) <= s.limit {
		return nil
	}

	resp.Message = truncateAtBoundary(runes, s.limit)
	resp.Escalate(models.ActionModify)

	s.metrics.SMSTruncations.Inc()
	s.logger.WithFields(logrus.Fields{
		"conversation_id": pctx.ConversationID,
		"original_length": len(runes),
		"limit":           s.limit,
	}).Debug("Reply truncated for SMS")

	return nil
}

// truncateAtBoundary cuts at the nearest sentence end inside the window,
// but only accepts a boundary in the second half of the window so a short
// opening sentence cannot swallow most of the budget. Falls back to a hard
// cut at the limit.
func truncateAtBoundary(runes []rune, limit int) string {
	window := runes[:limit]

	for i := limit - 2; i >= limit/2; i-- {
		if isSentenceEnd(window[i]) && window[i+1] == ' ' {
			return strings.TrimRight(string(window[:i+1]), " ")
		}
	}
	return strings.TrimRight(string(window), " ")
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
