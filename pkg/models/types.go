package models

import (
	"time"

	"github.com/google/uuid"
)

// BotMode selects the persona the assistant is speaking as. Compliance rules
// and safe fallback messages are mode-specific.
type BotMode string

const (
	ModeLead    BotMode = "lead"
	ModeBuyer   BotMode = "buyer"
	ModeSeller  BotMode = "seller"
	ModeGeneral BotMode = "general"
)

// Channel is the delivery channel for the outbound reply.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelChat     Channel = "chat"
	ChannelWhatsApp Channel = "whatsapp"
)

// Action is the pipeline's verdict on the in-flight reply.
type Action string

const (
	ActionPass         Action = "PASS"
	ActionModify       Action = "MODIFY"
	ActionBlock        Action = "BLOCK"
	ActionShortCircuit Action = "SHORT_CIRCUIT"
)

// severityRank orders actions so that transitions are monotonic within a
// single pipeline run. BLOCK and SHORT_CIRCUIT are terminal.
func (a Action) severityRank() int {
	switch a {
	case ActionModify:
		return 1
	case ActionBlock:
		return 2
	case ActionShortCircuit:
		return 3
	default:
		return 0
	}
}

// Terminal reports whether the action ends stage processing for good.
func (a Action) Terminal() bool {
	return a == ActionBlock || a == ActionShortCircuit
}

// Severity grades a compliance flag.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// ComplianceFlag is an immutable record appended by a stage.
type ComplianceFlag struct {
	Stage       string                 `json:"stage"`
	Category    string                 `json:"category"`
	Severity    Severity               `json:"severity"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// StageStatus reports how a stage run ended from the orchestrator's point of
// view. A skipped-error stage left the response untouched (fail-open).
type StageStatus string

const (
	StageOK           StageStatus = "ok"
	StageSkippedError StageStatus = "skipped_error"
)

// StageOutcome is the typed result for one stage execution.
type StageOutcome struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// MetadataKeyBotConfidence carries the externally supplied confidence score
// for the candidate reply, when the caller has one.
const MetadataKeyBotConfidence = "bot_confidence"

// ProcessingContext is created once per inbound turn and passed by reference
// through every stage.
type ProcessingContext struct {
	ConversationID   string                 `json:"conversation_id"`
	Mode             BotMode                `json:"mode"`
	Channel          Channel                `json:"channel"`
	UserMessage      string                 `json:"user_message"`
	IsFirstMessage   bool                   `json:"is_first_message"`
	DetectedLanguage string                 `json:"detected_language"`
	IsOptOut         bool                   `json:"is_opt_out"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// NewProcessingContext builds a context with the documented defaults.
func NewProcessingContext(conversationID string, mode BotMode, channel Channel, userMessage string, isFirstMessage bool) *ProcessingContext {
	if mode == "" {
		mode = ModeGeneral
	}
	if channel == "" {
		channel = ChannelChat
	}
	return &ProcessingContext{
		ConversationID:   conversationID,
		Mode:             mode,
		Channel:          channel,
		UserMessage:      userMessage,
		IsFirstMessage:   isFirstMessage,
		DetectedLanguage: "en",
		Metadata:         make(map[string]interface{}),
	}
}

// BotConfidence returns the caller-supplied confidence score, defaulting to
// 1.0 when absent or malformed.
func (c *ProcessingContext) BotConfidence() float64 {
	raw, ok := c.Metadata[MetadataKeyBotConfidence]
	if !ok {
		return 1.0
	}
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 1.0
	}
}

// ProcessedResponse is the in-flight reply as it moves through the stages.
type ProcessedResponse struct {
	ResponseID      string           `json:"response_id"`
	Message         string           `json:"message"`
	OriginalMessage string           `json:"original_message"`
	Action          Action           `json:"action"`
	ComplianceFlags []ComplianceFlag `json:"compliance_flags"`
	SideEffects     []string         `json:"side_effects"`
	AuditLog        []string         `json:"audit_log"`
	StageOutcomes   []StageOutcome   `json:"stage_outcomes"`
	ProcessedAt     time.Time        `json:"processed_at"`
}

// NewProcessedResponse wraps the raw candidate reply at pipeline start.
func NewProcessedResponse(rawMessage string) *ProcessedResponse {
	return &ProcessedResponse{
		ResponseID:      uuid.New().String(),
		Message:         rawMessage,
		OriginalMessage: rawMessage,
		Action:          ActionPass,
		ProcessedAt:     time.Now().UTC(),
	}
}

// Escalate raises the action if the new one is more severe. Once BLOCK or
// SHORT_CIRCUIT is set no stage can downgrade it.
func (r *ProcessedResponse) Escalate(a Action) {
	if a.severityRank() > r.Action.severityRank() {
		r.Action = a
	}
}

// AddFlag appends a compliance flag. Flags are never removed or edited.
func (r *ProcessedResponse) AddFlag(f ComplianceFlag) {
	r.ComplianceFlags = append(r.ComplianceFlags, f)
}

// AddSideEffect appends a directive for the delivery layer, e.g.
// "tag_conversation:opted-out".
func (r *ProcessedResponse) AddSideEffect(directive string) {
	r.SideEffects = append(r.SideEffects, directive)
}

// Clone deep-copies the response so the orchestrator can restore it when a
// stage fails.
func (r *ProcessedResponse) Clone() *ProcessedResponse {
	clone := *r
	clone.ComplianceFlags = append([]ComplianceFlag(nil), r.ComplianceFlags...)
	clone.SideEffects = append([]string(nil), r.SideEffects...)
	clone.AuditLog = append([]string(nil), r.AuditLog...)
	clone.StageOutcomes = append([]StageOutcome(nil), r.StageOutcomes...)
	return &clone
}
