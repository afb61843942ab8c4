package policy

import (
	"context"
	"strings"

	"outbound-reply-pipeline/pkg/models"
)

// RulesEngine is the in-process keyword classifier used when no external
// policy service is configured. It covers the rule categories the external
// engines enforce: hard-blocked phrasing, risky claims, and statements that
// require a disclosure.
type RulesEngine struct {
	blockedPhrases    []string
	flaggedPhrases    []string
	disclosurePhrases map[string][]string
}

func NewRulesEngine() *RulesEngine {
	return &RulesEngine{
		// Fair-housing and consent violations are blocked outright.
		blockedPhrases: []string{
			"no section 8",
			"no children",
			"no kids",
			"adults only",
			"christian only",
			"perfect for young professionals only",
			"guaranteed approval",
			"risk-free investment",
		},
		// Pushy or absolute claims are flagged for review but delivered.
		flaggedPhrases: []string{
			"guaranteed",
			"act now",
			"best deal",
			"100% certain",
			"you must",
			"limited time only",
		},
		disclosurePhrases: map[string][]string{
			"financing_terms": {"interest rate", "mortgage", "loan", "financing", "apr"},
			"price_opinion":   {"worth about", "valued at", "estimate", "market value"},
		},
	}
}

func (e *RulesEngine) Evaluate(_ context.Context, message string, _ models.BotMode) (*Verdict, error) {
	lowered := strings.ToLower(message)
	verdict := &Verdict{Status: StatusClean}

	for _, phrase := range e.blockedPhrases {
		if strings.Contains(lowered, phrase) {
			verdict.Violations = append(verdict.Violations, Violation{
				Rule:        "blocked_phrase",
				Description: "message contains prohibited phrase: " + phrase,
				Severity:    "critical",
			})
		}
	}
	if len(verdict.Violations) > 0 {
		verdict.Status = StatusBlocked
		verdict.RiskScore = 1.0
		return verdict, nil
	}

	for _, phrase := range e.flaggedPhrases {
		if strings.Contains(lowered, phrase) {
			verdict.Violations = append(verdict.Violations, Violation{
				Rule:        "flagged_phrase",
				Description: "message contains risky phrase: " + phrase,
				Severity:    "warning",
			})
		}
	}
	if len(verdict.Violations) > 0 {
		verdict.Status = StatusFlagged
		verdict.RiskScore = 0.5
	}

	for category, phrases := range e.disclosurePhrases {
		for _, phrase := range phrases {
			if strings.Contains(lowered, phrase) {
				verdict.RequiredDisclosures = append(verdict.RequiredDisclosures, category)
				break
			}
		}
	}

	return verdict, nil
}
