package repair

import (
	"fmt"
	"strings"

	"outbound-reply-pipeline/pkg/models"
)

// Template placeholders understood by Render.
const (
	PlaceholderTopic     = "{topic}"
	PlaceholderRephrased = "{rephrased}"
)

// GenericTopic fills {topic} when no concrete topic is known.
const GenericTopic = "your question"

// DefaultCatalog is the ordered, immutable strategy ladder. Resolution picks
// the first entry whose trigger matches and whose level is at or above the
// contact's escalation level; HumanEscalationStrategy is the terminal
// fallback.
func DefaultCatalog() []models.RepairStrategy {
	return []models.RepairStrategy{
		{
			Type:     models.RepairClarification,
			Trigger:  models.TriggerLowConfidence,
			Template: "I want to make sure I get this right. Could you tell me a bit more about " + PlaceholderTopic + "?",
			Level:    0,
		},
		{
			Type:     models.RepairRephrase,
			Trigger:  models.TriggerRepeatedQuestion,
			Template: "Let me put that another way: " + PlaceholderRephrased,
			Level:    0,
		},
		{
			Type:     models.RepairClarification,
			Trigger:  models.TriggerContradiction,
			Template: "Thanks for setting me straight. What did I get wrong about " + PlaceholderTopic + "?",
			Level:    0,
		},
		{
			Type:     models.RepairMultipleChoice,
			Trigger:  models.TriggerRepeatedQuestion,
			Template: "I might not be answering the right question. Which of these is closest to what you need?",
			Level:    1,
			Options: []string{
				"Pricing or budget",
				"Scheduling a time to talk",
				"Property details",
				"Something else",
			},
		},
		{
			Type:     models.RepairMultipleChoice,
			Trigger:  models.TriggerLowConfidence,
			Template: "Just so I point you the right way, which of these best matches what you're after?",
			Level:    1,
			Options: []string{
				"Pricing or budget",
				"Scheduling a time to talk",
				"Property details",
				"Something else",
			},
		},
		{
			Type:     models.RepairRephrase,
			Trigger:  models.TriggerContradiction,
			Template: "Got it, let me try again: " + PlaceholderRephrased,
			Level:    1,
		},
		{
			Type:     models.RepairHumanEscalation,
			Trigger:  models.TriggerNoProgress,
			Template: "I'm sorry we keep going in circles. I'm looping in one of our team members to help you directly.",
			Level:    2,
		},
	}
}

// ResolveStrategy selects the first catalog entry answering the trigger at or
// above the contact's escalation level. Falls back to the catalog's
// HUMAN_ESCALATION entry when nothing matches.
func ResolveStrategy(catalog []models.RepairStrategy, trigger models.RepairTrigger, escalationLevel int) models.RepairStrategy {
	for _, strategy := range catalog {
		if strategy.Trigger == trigger && strategy.Level >= escalationLevel {
			return strategy
		}
	}
	for _, strategy := range catalog {
		if strategy.Type == models.RepairHumanEscalation {
			return strategy
		}
	}
	// Catalogs without a human-escalation entry are a configuration bug.
	return models.RepairStrategy{
		Type:     models.RepairHumanEscalation,
		Trigger:  models.TriggerNoProgress,
		Template: "Let me connect you with one of our team members.",
		Level:    models.MaxEscalationLevel,
	}
}

// Render fills the strategy template and, for MULTIPLE_CHOICE entries,
// appends the numbered option list.
func Render(strategy models.RepairStrategy, topic, rephrased string) string {
	message := strings.NewReplacer(
		PlaceholderTopic, topic,
		PlaceholderRephrased, rephrased,
	).Replace(strategy.Template)

	if strategy.Type == models.RepairMultipleChoice && len(strategy.Options) > 0 {
		var b strings.Builder
		b.WriteString(message)
		for i, option := range strategy.Options {
			b.WriteString(fmt.Sprintf("\n%d. %s", i+1, option))
		}
		message = b.String()
	}
	return message
}
