package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/constants"
	"outbound-reply-pipeline/pkg/metrics"
	"outbound-reply-pipeline/pkg/models"
)

// StreamProducer publishes finalized replies to the outbound Redis stream.
// The delivery layer consumes the stream, inspects action and message to
// decide what to send, and applies the side-effect directives.
type StreamProducer struct {
	rdb     *redis.Client
	stream  string
	group   string
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewStreamProducer(rdb *redis.Client, m *metrics.Metrics, logger *logrus.Logger) *StreamProducer {
	return &StreamProducer{
		rdb:     rdb,
		stream:  constants.OutboundRepliesStream,
		group:   constants.DispatchConsumerGroup,
		metrics: m,
		logger:  logger,
	}
}

// EnsureGroup creates the consumer group for the delivery layer (idempotent).
func (p *StreamProducer) EnsureGroup(ctx context.Context) error {
	err := p.rdb.XGroupCreateMkStream(ctx, p.stream, p.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"stream":         p.stream,
		"consumer_group": p.group,
	}).Info("Outbound reply stream ready")
	return nil
}

// Publish appends one finalized response to the stream.
func (p *StreamProducer) Publish(ctx context.Context, pctx *models.ProcessingContext, resp *models.ProcessedResponse) error {
	err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"response_id":     resp.ResponseID,
			"conversation_id": pctx.ConversationID,
			"channel":         string(pctx.Channel),
			"action":          string(resp.Action),
			"message":         resp.Message,
			"side_effects":    strings.Join(resp.SideEffects, ";"),
			"published_at":    time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish reply to stream: %w", err)
	}

	p.metrics.RepliesDispatched.Inc()
	p.logger.WithFields(logrus.Fields{
		"response_id":     resp.ResponseID,
		"conversation_id": pctx.ConversationID,
		"action":          resp.Action,
	}).Debug("Published reply to outbound stream")

	return nil
}
