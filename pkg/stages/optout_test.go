package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-reply-pipeline/pkg/models"
)

func TestOptOutStage_StopShortCircuits(t *testing.T) {
	stage := NewOptOutStage(testMetrics(), testLogger())
	pctx := models.NewProcessingContext("conv_1", models.ModeLead, models.ChannelSMS, "STOP", false)
	resp := models.NewProcessedResponse("Would you like to see the property this week?")

	err := stage.Process(context.Background(), resp, pctx)
	require.NoError(t, err)

	assert.True(t, pctx.IsOptOut)
	assert.Equal(t, models.ActionShortCircuit, resp.Action)
	assert.Equal(t, optOutAcknowledgements["en"], resp.Message)
	assert.Contains(t, resp.SideEffects, SideEffectTagOptOut)
	assert.Contains(t, resp.SideEffects, SideEffectDisableAutomated)

	require.Len(t, resp.ComplianceFlags, 1)
	assert.Equal(t, models.SeverityInfo, resp.ComplianceFlags[0].Severity)
}

func TestOptOutStage_PunctuatedAndCased(t *testing.T) {
	stage := NewOptOutStage(testMetrics(), testLogger())

	for _, message := range []string{"Stop.", "UNSUBSCRIBE!", "  not interested  ", "gracias pero no me interesa"} {
		pctx := models.NewProcessingContext("conv_1", models.ModeLead, models.ChannelSMS, message, false)
		resp := models.NewProcessedResponse("reply")

		err := stage.Process(context.Background(), resp, pctx)
		require.NoError(t, err)
		assert.True(t, pctx.IsOptOut, "expected opt-out for %q", message)
		assert.Equal(t, models.ActionShortCircuit, resp.Action)
	}
}

func TestOptOutStage_SpanishAcknowledgement(t *testing.T) {
	stage := NewOptOutStage(testMetrics(), testLogger())
	pctx := models.NewProcessingContext("conv_1", models.ModeLead, models.ChannelSMS, "alto", false)
	pctx.DetectedLanguage = "es"
	resp := models.NewProcessedResponse("reply")

	err := stage.Process(context.Background(), resp, pctx)
	require.NoError(t, err)
	assert.Equal(t, optOutAcknowledgements["es"], resp.Message)
}

func TestOptOutStage_NoFalsePositives(t *testing.T) {
	stage := NewOptOutStage(testMetrics(), testLogger())

	for _, message := range []string{
		"non-stop delivery please",
		"I can't stop thinking about that house",
		"what's the price?",
		"",
	} {
		pctx := models.NewProcessingContext("conv_1", models.ModeLead, models.ChannelSMS, message, false)
		resp := models.NewProcessedResponse("reply")

		err := stage.Process(context.Background(), resp, pctx)
		require.NoError(t, err)
		assert.False(t, pctx.IsOptOut, "unexpected opt-out for %q", message)
		assert.Equal(t, models.ActionPass, resp.Action)
		assert.Equal(t, "reply", resp.Message)
	}
}
