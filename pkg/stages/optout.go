package stages

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/metrics"
	"outbound-reply-pipeline/pkg/models"
	"outbound-reply-pipeline/pkg/repair"
)

// Side-effect directives emitted on opt-out.
const (
	SideEffectTagOptOut        = "tag_conversation:opted-out"
	SideEffectDisableAutomated = "disable_automated_replies"
)

// optOutPhrases are matched case-insensitively against the normalized
// inbound message. Single words must match the whole message; multi-word
// phrases also match as substrings.
var optOutPhrases = []string{
	"stop",
	"unsubscribe",
	"cancel",
	"quit",
	"end",
	"opt out",
	"not interested",
	"stop texting me",
	"remove me",
	"alto",
	"parar",
	"cancelar",
	"basta",
	"no me interesa",
	"no me contactes",
	"dejen de escribirme",
}

// optOutAcknowledgements are the fixed, regulation-compliant replies, keyed
// by detected language.
var optOutAcknowledgements = map[string]string{
	"en": "You've been unsubscribed and will not receive further messages from us. Reply START to opt back in.",
	"es": "Ha sido dado de baja y no recibirá más mensajes nuestros. Responda START para volver a suscribirse.",
}

// OptOutStage honors stop requests immediately: it overwrites the reply with
// the compliant acknowledgement and short-circuits the pipeline so no later
// stage can dress the message up.
type OptOutStage struct {
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewOptOutStage(m *metrics.Metrics, logger *logrus.Logger) *OptOutStage {
	return &OptOutStage{
		metrics: m,
		logger:  logger,
	}
}

func (s *OptOutStage) Name() string {
	return "opt_out_detector"
}

func (s *OptOutStage) Process(_ context.Context, resp *models.ProcessedResponse, pctx *models.ProcessingContext) error {
	if !isOptOut(pctx.UserMessage) {
		return nil
	}

	pctx.IsOptOut = true

	ack, ok := optOutAcknowledgements[pctx.DetectedLanguage]
	if !ok {
		ack = optOutAcknowledgements["en"]
	}
	resp.Message = ack
	resp.Escalate(models.ActionShortCircuit)

	resp.AddSideEffect(SideEffectTagOptOut)
	resp.AddSideEffect(SideEffectDisableAutomated)
	resp.AddFlag(models.ComplianceFlag{
		Stage:       s.Name(),
		Category:    "opt_out",
		Severity:    models.SeverityInfo,
		Description: "user requested to stop receiving automated messages",
	})

	s.metrics.OptOutsDetected.Inc()
	s.logger.WithFields(logrus.Fields{
		"conversation_id": pctx.ConversationID,
		"language":        pctx.DetectedLanguage,
	}).Info("Opt-out honored")

	return nil
}

func isOptOut(message string) bool {
	normalized := repair.NormalizePhrase(message)
	if normalized == "" {
		return false
	}

	for _, phrase := range optOutPhrases {
		if normalized == phrase {
			return true
		}
		if strings.Contains(phrase, " ") && strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}
