package stages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-reply-pipeline/pkg/models"
	"outbound-reply-pipeline/pkg/repair"
)

func newRepairStage(t *testing.T) (*RepairStage, repair.StateStore) {
	t.Helper()
	store := repair.NewMemoryStore(time.Hour, testLogger())
	return NewRepairStage(store, repair.DefaultCatalog(), testMetrics(), testLogger()), store
}

func runTurn(t *testing.T, stage *RepairStage, conversationID, userMessage, reply string, confidence float64) *models.ProcessedResponse {
	t.Helper()
	pctx := models.NewProcessingContext(conversationID, models.ModeBuyer, models.ChannelSMS, userMessage, false)
	if confidence >= 0 {
		pctx.Metadata[models.MetadataKeyBotConfidence] = confidence
	}
	resp := models.NewProcessedResponse(reply)
	require.NoError(t, stage.Process(context.Background(), resp, pctx))
	return resp
}

func TestRepairStage_FirstTurnNoRepair(t *testing.T) {
	stage, store := newRepairStage(t)

	resp := runTurn(t, stage, "conv_1", "how much is the house?", "It's listed at $450k.", -1)

	assert.Equal(t, models.ActionPass, resp.Action)
	assert.Equal(t, "It's listed at $450k.", resp.Message)

	// The turn is tracked even without a trigger
	state, err := store.Get(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"how much is the house?"}, state.RecentMessages)
	assert.Equal(t, "It's listed at $450k.", state.LastBotResponse)
	assert.Equal(t, 0, state.RepairCount)
}

func TestRepairStage_EscalationLadder(t *testing.T) {
	stage, store := newRepairStage(t)
	ctx := context.Background()
	question := "how much is the house?"

	// Turn 1: nothing tracked yet, no repair
	resp := runTurn(t, stage, "conv_1", question, "It's $450k.", -1)
	assert.Equal(t, models.ActionPass, resp.Action)

	// Turn 2: exact repeat triggers REPEATED_QUESTION at level 0 (rephrase)
	resp = runTurn(t, stage, "conv_1", question, "It's $450k.", -1)
	assert.Equal(t, models.ActionModify, resp.Action)
	assert.True(t, strings.HasPrefix(resp.Message, "Let me put that another way:"))

	state, err := store.Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.EscalationLevel)
	assert.Equal(t, 1, state.RepairCount)

	// Turn 3: still repeating, level 1 resolves to multiple choice
	resp = runTurn(t, stage, "conv_1", question, "It's $450k.", -1)
	assert.Equal(t, models.ActionModify, resp.Action)
	assert.Contains(t, resp.Message, "1. ")

	state, err = store.Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.EscalationLevel)
	assert.Equal(t, 2, state.RepairCount)

	// Turn 4: level 2 has no repeat entry left; human escalation fallback
	resp = runTurn(t, stage, "conv_1", question, "It's $450k.", -1)
	assert.Contains(t, resp.SideEffects, SideEffectTagHumanHandoff)

	// Turn 5: count >= 3 at the cap resolves the trigger to NO_PROGRESS
	pctx := models.NewProcessingContext("conv_1", models.ModeBuyer, models.ChannelSMS, question, false)
	resp = models.NewProcessedResponse("It's $450k.")
	require.NoError(t, stage.Process(ctx, resp, pctx))
	assert.Equal(t, string(models.TriggerNoProgress), pctx.Metadata[MetadataKeyRepairTrigger])

	// The ladder never exceeds the cap and the counter never resets
	state, err = store.Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, models.MaxEscalationLevel, state.EscalationLevel)
	assert.Equal(t, 4, state.RepairCount)
}

func TestRepairStage_RepeatedQuestionBeatsLowConfidence(t *testing.T) {
	stage, _ := newRepairStage(t)

	runTurn(t, stage, "conv_1", "can I bring my dog?", "Yes, pets are welcome.", -1)

	pctx := models.NewProcessingContext("conv_1", models.ModeBuyer, models.ChannelSMS, "can I bring my dog?", false)
	pctx.Metadata[models.MetadataKeyBotConfidence] = 0.1
	resp := models.NewProcessedResponse("Yes, pets are welcome.")
	require.NoError(t, stage.Process(context.Background(), resp, pctx))

	assert.Equal(t, string(models.TriggerRepeatedQuestion), pctx.Metadata[MetadataKeyRepairTrigger])
}

func TestRepairStage_LowConfidenceTrigger(t *testing.T) {
	stage, _ := newRepairStage(t)

	pctx := models.NewProcessingContext("conv_1", models.ModeBuyer, models.ChannelSMS, "what about schools nearby?", false)
	pctx.Metadata[models.MetadataKeyBotConfidence] = 0.2
	resp := models.NewProcessedResponse("There are some schools.")
	require.NoError(t, stage.Process(context.Background(), resp, pctx))

	assert.Equal(t, models.ActionModify, resp.Action)
	assert.Equal(t, string(models.TriggerLowConfidence), pctx.Metadata[MetadataKeyRepairTrigger])
	assert.Equal(t, string(models.RepairClarification), pctx.Metadata[MetadataKeyRepairStrategy])
}

func TestRepairStage_ContradictionNeedsLastBotResponse(t *testing.T) {
	stage, _ := newRepairStage(t)

	// First ever turn: "no" alone cannot contradict anything
	resp := runTurn(t, stage, "conv_1", "No.", "Happy to help!", -1)
	assert.Equal(t, models.ActionPass, resp.Action)

	// Second turn: there is now a last bot response to contradict
	pctx := models.NewProcessingContext("conv_1", models.ModeBuyer, models.ChannelSMS, "that's wrong", false)
	resp = models.NewProcessedResponse("The HOA fee is $200.")
	require.NoError(t, stage.Process(context.Background(), resp, pctx))

	assert.Equal(t, models.ActionModify, resp.Action)
	assert.Equal(t, string(models.TriggerContradiction), pctx.Metadata[MetadataKeyRepairTrigger])
}

func TestRepairStage_SkipsTerminalResponses(t *testing.T) {
	stage, store := newRepairStage(t)

	pctx := models.NewProcessingContext("conv_1", models.ModeBuyer, models.ChannelSMS, "hello", false)
	resp := models.NewProcessedResponse("blocked content")
	resp.Escalate(models.ActionBlock)

	require.NoError(t, stage.Process(context.Background(), resp, pctx))
	assert.Equal(t, "blocked content", resp.Message)

	// Terminal responses do not even update state
	state, err := store.Get(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Empty(t, state.RecentMessages)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*models.RepairState, error) {
	return nil, errors.New("store down")
}

func (failingStore) Update(context.Context, string, func(*models.RepairState)) (*models.RepairState, error) {
	return nil, errors.New("store down")
}

func TestRepairStage_StoreFailureSurfacesError(t *testing.T) {
	stage := NewRepairStage(failingStore{}, repair.DefaultCatalog(), testMetrics(), testLogger())

	pctx := models.NewProcessingContext("conv_1", models.ModeBuyer, models.ChannelSMS, "hello", false)
	resp := models.NewProcessedResponse("reply")

	err := stage.Process(context.Background(), resp, pctx)
	assert.Error(t, err)
}
