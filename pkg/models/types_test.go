package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessedResponse_EscalateIsMonotonic(t *testing.T) {
	resp := NewProcessedResponse("hello")
	assert.Equal(t, ActionPass, resp.Action)

	resp.Escalate(ActionModify)
	assert.Equal(t, ActionModify, resp.Action)

	resp.Escalate(ActionBlock)
	assert.Equal(t, ActionBlock, resp.Action)

	// No downgrade once a terminal action is set
	resp.Escalate(ActionPass)
	assert.Equal(t, ActionBlock, resp.Action)
	resp.Escalate(ActionModify)
	assert.Equal(t, ActionBlock, resp.Action)

	resp.Escalate(ActionShortCircuit)
	assert.Equal(t, ActionShortCircuit, resp.Action)
}

func TestProcessedResponse_CloneIsIndependent(t *testing.T) {
	resp := NewProcessedResponse("hello")
	resp.AddSideEffect("tag_conversation:test")
	resp.AuditLog = append(resp.AuditLog, "stage:PASS")

	clone := resp.Clone()
	clone.Message = "changed"
	clone.AddSideEffect("tag_conversation:other")
	clone.AuditLog = append(clone.AuditLog, "stage:MODIFY")

	assert.Equal(t, "hello", resp.Message)
	assert.Len(t, resp.SideEffects, 1)
	assert.Len(t, resp.AuditLog, 1)
	assert.Len(t, clone.SideEffects, 2)
}

func TestProcessingContext_BotConfidence(t *testing.T) {
	pctx := NewProcessingContext("conv_1", ModeGeneral, ChannelChat, "hi", false)
	assert.Equal(t, 1.0, pctx.BotConfidence())

	pctx.Metadata[MetadataKeyBotConfidence] = 0.25
	assert.Equal(t, 0.25, pctx.BotConfidence())

	pctx.Metadata[MetadataKeyBotConfidence] = "not a number"
	assert.Equal(t, 1.0, pctx.BotConfidence())
}

func TestNewProcessingContext_Defaults(t *testing.T) {
	pctx := NewProcessingContext("conv_1", "", "", "hi", true)

	assert.Equal(t, ModeGeneral, pctx.Mode)
	assert.Equal(t, ChannelChat, pctx.Channel)
	assert.Equal(t, "en", pctx.DetectedLanguage)
	assert.False(t, pctx.IsOptOut)
	assert.NotNil(t, pctx.Metadata)
}

func TestRepairState_TrackMessageBoundedFIFO(t *testing.T) {
	state := NewRepairState()

	for i := 0; i < 8; i++ {
		state.TrackMessage(fmt.Sprintf("message %d", i))
	}

	assert.Len(t, state.RecentMessages, RepairStateWindow)
	assert.Equal(t, "message 3", state.RecentMessages[0])
	assert.Equal(t, "message 7", state.RecentMessages[4])
}

func TestRepairState_RecentWindow(t *testing.T) {
	state := NewRepairState()
	state.TrackMessage("one")
	state.TrackMessage("two")
	state.TrackMessage("three")
	state.TrackMessage("four")

	window := state.RecentWindow(3)
	assert.Equal(t, []string{"two", "three", "four"}, window)

	assert.Nil(t, state.RecentWindow(0))
	assert.Len(t, NewRepairState().RecentWindow(3), 0)
}

func TestRepairState_RaiseEscalationCapped(t *testing.T) {
	state := NewRepairState()

	for i := 0; i < 5; i++ {
		state.RaiseEscalation()
	}
	assert.Equal(t, MaxEscalationLevel, state.EscalationLevel)
}
