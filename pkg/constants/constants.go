package constants

import "time"

// Repair trigger thresholds
const (
	// RepeatedQuestionOverlap - minimum word-overlap ratio for a repeat
	RepeatedQuestionOverlap = 0.70

	// LowConfidenceThreshold - bot confidence below this triggers repair
	LowConfidenceThreshold = 0.40

	// RepeatComparisonWindow - how many tracked messages to compare against
	RepeatComparisonWindow = 3

	// NoProgressRepairCount - repairs needed before the NO_PROGRESS override
	NoProgressRepairCount = 3
)

// Language detection thresholds
const (
	// MarkerRatioThreshold - marker-word ratio for the fallback heuristic
	MarkerRatioThreshold = 0.15

	// FallbackBaseConfidence - confidence when the heuristic stays on base
	FallbackBaseConfidence = 0.8

	// CodeSwitchSentenceConfidence - per-sentence confidence needed to call
	// a sentence out as a different language
	CodeSwitchSentenceConfidence = 0.6
)

// Channel limits
const (
	// DefaultSMSMaxLength - default character budget for SMS replies
	DefaultSMSMaxLength = 320
)

// Default retention and timeout values
const (
	// DefaultRepairStateTTLHours - repair state retention in Redis
	DefaultRepairStateTTLHours = 24

	// DefaultPolicyEngineTimeoutMS - bound on the policy engine call
	DefaultPolicyEngineTimeoutMS = 2000

	// DefaultJanitorIntervalMinutes - sweep cadence for the in-memory store
	DefaultJanitorIntervalMinutes = 30
)

// Redis key prefixes and names
const (
	RepairStateKeyPrefix   = "repair_state:"
	LanguagePrefsKeyPrefix = "language_prefs:"
	OutboundRepliesStream  = "outbound_replies"
	DispatchConsumerGroup  = "reply-dispatchers"
)

// Configuration environment variable names
const (
	EnvRedisURL              = "REDIS_URL"
	EnvPort                  = "PORT"
	EnvLogLevel              = "LOG_LEVEL"
	EnvBaseLanguage          = "BASE_LANGUAGE"
	EnvSMSMaxLength          = "SMS_MAX_LENGTH"
	EnvPolicyEngineURL       = "POLICY_ENGINE_URL"
	EnvPolicyEngineTimeoutMS = "POLICY_ENGINE_TIMEOUT_MS"
	EnvRepairStateTTLHours   = "REPAIR_STATE_TTL_HOURS"
	EnvDispatchEnabled       = "DISPATCH_ENABLED"
)

// HoursToDuration converts a configured hour count to a Duration.
func HoursToDuration(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}

// MillisecondsToDuration converts a configured millisecond count to a Duration.
func MillisecondsToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
