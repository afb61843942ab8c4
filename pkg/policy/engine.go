package policy

import (
	"context"

	"outbound-reply-pipeline/pkg/models"
)

// Status is the policy engine's verdict on a candidate reply.
type Status string

const (
	StatusClean   Status = "clean"
	StatusFlagged Status = "flagged"
	StatusBlocked Status = "blocked"
)

// Violation describes a single rule hit.
type Violation struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Verdict is the full classification result for a reply.
type Verdict struct {
	Status              Status      `json:"status"`
	Violations          []Violation `json:"violations,omitempty"`
	RiskScore           float64     `json:"risk_score"`
	RequiredDisclosures []string    `json:"required_disclosures,omitempty"`
}

// Engine classifies a reply under mode-specific rules. Real engines live
// outside this service; the compliance stage treats any error as
// "engine unavailable" and fails open.
type Engine interface {
	Evaluate(ctx context.Context, message string, mode models.BotMode) (*Verdict, error)
}
