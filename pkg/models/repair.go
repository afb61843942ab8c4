package models

import "time"

// RepairTrigger names the breakdown pattern that fired.
type RepairTrigger string

const (
	TriggerLowConfidence    RepairTrigger = "LOW_CONFIDENCE"
	TriggerRepeatedQuestion RepairTrigger = "REPEATED_QUESTION"
	TriggerContradiction    RepairTrigger = "CONTRADICTION"
	TriggerNoProgress       RepairTrigger = "NO_PROGRESS"
)

// RepairType names the remedy applied when a trigger fires.
type RepairType string

const (
	RepairClarification   RepairType = "CLARIFICATION"
	RepairRephrase        RepairType = "REPHRASE"
	RepairMultipleChoice  RepairType = "MULTIPLE_CHOICE"
	RepairHumanEscalation RepairType = "HUMAN_ESCALATION"
)

// RepairStrategy is one immutable entry in the static catalog. Options is
// populated for MULTIPLE_CHOICE entries only.
type RepairStrategy struct {
	Type     RepairType    `json:"type"`
	Trigger  RepairTrigger `json:"trigger"`
	Template string        `json:"template"`
	Level    int           `json:"level"`
	Options  []string      `json:"options,omitempty"`
}

// RepairStateWindow bounds the FIFO of tracked user messages.
const RepairStateWindow = 5

// MaxEscalationLevel caps the escalation ladder.
const MaxEscalationLevel = 2

// RepairState is the per-conversation breakdown history consumed by the
// repair stage. EscalationLevel and RepairCount are monotone.
type RepairState struct {
	RecentMessages  []string  `json:"recent_messages"`
	EscalationLevel int       `json:"escalation_level"`
	RepairCount     int       `json:"repair_count"`
	LastBotResponse string    `json:"last_bot_response"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewRepairState returns the zero state for a conversation.
func NewRepairState() *RepairState {
	return &RepairState{UpdatedAt: time.Now().UTC()}
}

// TrackMessage pushes a user message onto the bounded FIFO, evicting the
// oldest entry on overflow.
func (s *RepairState) TrackMessage(message string) {
	s.RecentMessages = append(s.RecentMessages, message)
	if len(s.RecentMessages) > RepairStateWindow {
		s.RecentMessages = s.RecentMessages[len(s.RecentMessages)-RepairStateWindow:]
	}
}

// RecentWindow returns up to the last n tracked messages, newest last.
func (s *RepairState) RecentWindow(n int) []string {
	if n <= 0 || len(s.RecentMessages) == 0 {
		return nil
	}
	if len(s.RecentMessages) <= n {
		return s.RecentMessages
	}
	return s.RecentMessages[len(s.RecentMessages)-n:]
}

// RaiseEscalation bumps the level by one, staying within the cap.
func (s *RepairState) RaiseEscalation() {
	if s.EscalationLevel < MaxEscalationLevel {
		s.EscalationLevel++
	}
}

// Clone copies the state so store readers never share mutable slices.
func (s *RepairState) Clone() *RepairState {
	clone := *s
	clone.RecentMessages = append([]string(nil), s.RecentMessages...)
	return &clone
}
