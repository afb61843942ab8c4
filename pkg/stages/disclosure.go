package stages

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/models"
)

// disclosurePreambles open the first message of a conversation with the
// proactive AI-identity statement.
var disclosurePreambles = map[string]string{
	"en": "Hi! I'm an AI assistant working with our team.",
	"es": "¡Hola! Soy un asistente de IA que trabaja con nuestro equipo.",
}

// disclosureFooters are the per-message bracketed tags.
var disclosureFooters = map[string]string{
	"en": "[AI-assisted message]",
	"es": "[Mensaje asistido por IA]",
}

// leadingGreeting strips a duplicated salutation before the preamble goes on.
var leadingGreeting = regexp.MustCompile(`(?i)^(hey|hi)[\s,.!]+`)

// DisclosureStage adds the AI-identity preamble on the first message of a
// conversation and an idempotent disclosure footer on every message. Blocked
// and short-circuited replies are left alone.
type DisclosureStage struct {
	logger *logrus.Logger
}

func NewDisclosureStage(logger *logrus.Logger) *DisclosureStage {
	return &DisclosureStage{logger: logger}
}

func (s *DisclosureStage) Name() string {
	return "disclosure_appender"
}

func (s *DisclosureStage) Process(_ context.Context, resp *models.ProcessedResponse, pctx *models.ProcessingContext) error {
	if resp.Action.Terminal() {
		return nil
	}

	modified := false

	if pctx.IsFirstMessage {
		preamble := selectByLanguage(disclosurePreambles, pctx.DetectedLanguage)
		message := leadingGreeting.ReplaceAllString(resp.Message, "")
		resp.Message = preamble + " " + strings.TrimSpace(message)
		modified = true
	}

	if !hasDisclosureFooter(resp.Message) {
		footer := selectByLanguage(disclosureFooters, pctx.DetectedLanguage)
		resp.Message = strings.TrimRight(resp.Message, " ") + " " + footer
		modified = true
	}

	if modified {
		resp.Escalate(models.ActionModify)
		s.logger.WithFields(logrus.Fields{
			"conversation_id": pctx.ConversationID,
			"first_message":   pctx.IsFirstMessage,
			"language":        pctx.DetectedLanguage,
		}).Debug("Disclosure applied")
	}

	return nil
}

// hasDisclosureFooter checks every known footer so the stage stays
// idempotent even if the detected language changed between runs.
func hasDisclosureFooter(message string) bool {
	for _, footer := range disclosureFooters {
		if strings.Contains(message, footer) {
			return true
		}
	}
	return false
}

func selectByLanguage(table map[string]string, lang string) string {
	if value, ok := table[lang]; ok {
		return value
	}
	return table["en"]
}
