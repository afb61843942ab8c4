package stages

import (
	"context"

	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/metrics"
	"outbound-reply-pipeline/pkg/models"
	"outbound-reply-pipeline/pkg/policy"
)

// SideEffectTagComplianceBlock marks a conversation whose reply was blocked.
const SideEffectTagComplianceBlock = "tag_conversation:compliance-blocked"

// safeFallbacks replace a blocked reply, per bot persona.
var safeFallbacks = map[models.BotMode]string{
	models.ModeLead:    "Thanks for reaching out! Let me connect you with one of our agents who can help with that.",
	models.ModeBuyer:   "That's a great question for one of our licensed agents. I'll have someone follow up with you shortly.",
	models.ModeSeller:  "I'd rather have one of our listing specialists give you an accurate answer on that. Someone will be in touch soon.",
	models.ModeGeneral: "Let me have one of our team members get back to you on that.",
}

// ComplianceStage delegates classification to the policy engine and applies
// the verdict. An unavailable engine degrades to a no-op: availability wins
// over strictness, and the degradation is logged and counted so it never
// goes unnoticed.
type ComplianceStage struct {
	engine  policy.Engine
	timeout contextTimeout
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

type contextTimeout = func(ctx context.Context) (context.Context, context.CancelFunc)

// NewComplianceStage wires a policy engine; pass nil to run fully degraded.
// The timeout bounds the engine call.
func NewComplianceStage(engine policy.Engine, timeout contextTimeout, m *metrics.Metrics, logger *logrus.Logger) *ComplianceStage {
	if timeout == nil {
		timeout = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(ctx)
		}
	}
	return &ComplianceStage{
		engine:  engine,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

func (s *ComplianceStage) Name() string {
	return "compliance_enforcer"
}

func (s *ComplianceStage) Process(ctx context.Context, resp *models.ProcessedResponse, pctx *models.ProcessingContext) error {
	if s.engine == nil {
		s.degrade(pctx, nil)
		return nil
	}

	evalCtx, cancel := s.timeout(ctx)
	defer cancel()

	verdict, err := s.engine.Evaluate(evalCtx, resp.Message, pctx.Mode)
	if err != nil {
		s.degrade(pctx, err)
		return nil
	}

	switch verdict.Status {
	case policy.StatusBlocked:
		fallback, ok := safeFallbacks[pctx.Mode]
		if !ok {
			fallback = safeFallbacks[models.ModeGeneral]
		}
		resp.Message = fallback
		resp.Escalate(models.ActionBlock)
		resp.AddFlag(models.ComplianceFlag{
			Stage:       s.Name(),
			Category:    "policy_violation",
			Severity:    models.SeverityCritical,
			Description: "reply blocked by policy engine",
			Metadata: map[string]interface{}{
				"violations": verdict.Violations,
				"risk_score": verdict.RiskScore,
			},
		})
		resp.AddSideEffect(SideEffectTagComplianceBlock)

		s.metrics.MessagesBlocked.WithLabelValues(string(pctx.Mode)).Inc()
		s.logger.WithFields(logrus.Fields{
			"conversation_id": pctx.ConversationID,
			"mode":            pctx.Mode,
			"risk_score":      verdict.RiskScore,
		}).Warn("Reply blocked by policy engine")

	case policy.StatusFlagged:
		resp.AddFlag(models.ComplianceFlag{
			Stage:       s.Name(),
			Category:    "policy_flag",
			Severity:    models.SeverityWarning,
			Description: "reply flagged by policy engine",
			Metadata: map[string]interface{}{
				"violations": verdict.Violations,
				"risk_score": verdict.RiskScore,
			},
		})

	default:
		for _, category := range verdict.RequiredDisclosures {
			resp.AddFlag(models.ComplianceFlag{
				Stage:       s.Name(),
				Category:    "disclosure_required",
				Severity:    models.SeverityWarning,
				Description: "reply requires disclosure: " + category,
			})
		}
	}

	return nil
}

func (s *ComplianceStage) degrade(pctx *models.ProcessingContext, err error) {
	s.metrics.PolicyEngineUnavailable.Inc()
	entry := s.logger.WithField("conversation_id", pctx.ConversationID)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("Policy engine unavailable, compliance enforcement degraded to no-op")
}
