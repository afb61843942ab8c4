package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/metrics"
	"outbound-reply-pipeline/pkg/models"
)

// Stage is a named, single-purpose transformer of the in-flight reply. A
// stage may mutate both the response and the shared context; an error means
// the stage is skipped (fail-open), never that the pipeline aborts.
type Stage interface {
	Name() string
	Process(ctx context.Context, resp *models.ProcessedResponse, pctx *models.ProcessingContext) error
}

// Orchestrator runs the fixed stage sequence over each candidate reply. The
// ordering is a correctness contract: opt-out before disclosure guarantees an
// opted-out user never receives a disclosure footer, and compliance before
// disclosure guarantees a blocked message is never dressed up.
type Orchestrator struct {
	stages  []Stage
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewOrchestrator(stages []Stage, m *metrics.Metrics, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		stages:  stages,
		metrics: m,
		logger:  logger,
	}
}

// StageNames returns the configured sequence, for status reporting.
func (o *Orchestrator) StageNames() []string {
	names := make([]string, len(o.stages))
	for i, stage := range o.stages {
		names[i] = stage.Name()
	}
	return names
}

// Process runs every stage in order against the raw candidate reply,
// stopping early on SHORT_CIRCUIT. A failing stage contributes an
// "{stage}:error" audit entry and leaves the response exactly as it found
// it.
func (o *Orchestrator) Process(ctx context.Context, rawMessage string, pctx *models.ProcessingContext) *models.ProcessedResponse {
	start := time.Now()
	resp := models.NewProcessedResponse(rawMessage)

	for _, stage := range o.stages {
		snapshot := resp.Clone()
		stageStart := time.Now()

		err := stage.Process(ctx, resp, pctx)
		o.metrics.StageDuration.WithLabelValues(stage.Name()).Observe(time.Since(stageStart).Seconds())

		if err != nil {
			// Fail-open: restore the pre-stage response so one defective
			// stage never prevents delivery of some reply.
			resp = snapshot
			resp.AuditLog = append(resp.AuditLog, stage.Name()+":error")
			resp.StageOutcomes = append(resp.StageOutcomes, models.StageOutcome{
				Stage:  stage.Name(),
				Status: models.StageSkippedError,
				Error:  err.Error(),
			})
			o.metrics.StageErrors.WithLabelValues(stage.Name()).Inc()
			o.logger.WithError(err).WithFields(logrus.Fields{
				"stage":           stage.Name(),
				"conversation_id": pctx.ConversationID,
			}).Warn("Stage failed, skipping (fail-open)")
			continue
		}

		resp.AuditLog = append(resp.AuditLog, fmt.Sprintf("%s:%s", stage.Name(), resp.Action))
		resp.StageOutcomes = append(resp.StageOutcomes, models.StageOutcome{
			Stage:  stage.Name(),
			Status: models.StageOK,
		})

		if resp.Action == models.ActionShortCircuit {
			o.logger.WithFields(logrus.Fields{
				"stage":           stage.Name(),
				"conversation_id": pctx.ConversationID,
			}).Debug("Pipeline short-circuited")
			break
		}
	}

	o.metrics.FinalActions.WithLabelValues(string(resp.Action)).Inc()
	o.metrics.PipelineDuration.Observe(time.Since(start).Seconds())

	o.logger.WithFields(logrus.Fields{
		"conversation_id": pctx.ConversationID,
		"action":          resp.Action,
		"stages_run":      len(resp.StageOutcomes),
	}).Debug("Pipeline run complete")

	return resp
}
