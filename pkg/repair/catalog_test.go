package repair

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-reply-pipeline/pkg/models"
)

func TestResolveStrategy_Ladder(t *testing.T) {
	catalog := DefaultCatalog()

	// Level 0 repeat gets the gentle rephrase
	s := ResolveStrategy(catalog, models.TriggerRepeatedQuestion, 0)
	assert.Equal(t, models.RepairRephrase, s.Type)

	// Level 1 repeat steps up to multiple choice
	s = ResolveStrategy(catalog, models.TriggerRepeatedQuestion, 1)
	assert.Equal(t, models.RepairMultipleChoice, s.Type)
	require.NotEmpty(t, s.Options)

	// Level 2 repeat has no catalog entry left, falls back to a human
	s = ResolveStrategy(catalog, models.TriggerRepeatedQuestion, 2)
	assert.Equal(t, models.RepairHumanEscalation, s.Type)

	// NO_PROGRESS resolves to the human escalation entry directly
	s = ResolveStrategy(catalog, models.TriggerNoProgress, 2)
	assert.Equal(t, models.RepairHumanEscalation, s.Type)
}

func TestResolveStrategy_FallbackWithoutEntry(t *testing.T) {
	catalog := []models.RepairStrategy{
		{Type: models.RepairClarification, Trigger: models.TriggerLowConfidence, Template: "x", Level: 0},
	}

	s := ResolveStrategy(catalog, models.TriggerContradiction, 0)
	assert.Equal(t, models.RepairHumanEscalation, s.Type)
}

func TestRender_Placeholders(t *testing.T) {
	strategy := models.RepairStrategy{
		Type:     models.RepairRephrase,
		Trigger:  models.TriggerRepeatedQuestion,
		Template: "Let me put that another way: " + PlaceholderRephrased,
	}

	message := Render(strategy, GenericTopic, "The home is listed at $450k.")
	assert.Equal(t, "Let me put that another way: The home is listed at $450k.", message)
}

func TestRender_MultipleChoiceOptions(t *testing.T) {
	strategy := models.RepairStrategy{
		Type:     models.RepairMultipleChoice,
		Trigger:  models.TriggerRepeatedQuestion,
		Template: "Which of these is closest?",
		Options:  []string{"Pricing", "Scheduling", "Something else"},
	}

	message := Render(strategy, GenericTopic, "")
	lines := strings.Split(message, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "1. Pricing", lines[1])
	assert.Equal(t, "3. Something else", lines[3])
}
