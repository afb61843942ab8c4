package stages

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/constants"
	"outbound-reply-pipeline/pkg/metrics"
	"outbound-reply-pipeline/pkg/models"
	"outbound-reply-pipeline/pkg/repair"
)

// SideEffectTagHumanHandoff asks the delivery layer to route the
// conversation to a human.
const SideEffectTagHumanHandoff = "tag_conversation:human-handoff"

// Metadata keys recording what the repair stage did this turn.
const (
	MetadataKeyRepairTrigger  = "repair_trigger"
	MetadataKeyRepairStrategy = "repair_strategy"
)

// rejectionPhrases match (normalized) user messages that flatly reject the
// assistant's last reply.
var rejectionPhrases = map[string]struct{}{
	"no":                {},
	"nope":              {},
	"wrong":             {},
	"incorrect":         {},
	"thats wrong":       {},
	"that is wrong":     {},
	"youre wrong":       {},
	"you are wrong":     {},
	"not right":         {},
	"thats not right":   {},
	"thats not true":    {},
	"that is not true":  {},
	"that is not right": {},
}

// RepairStage detects conversational breakdown and rewrites the reply with a
// repair strategy from the escalation ladder. All trigger evaluation and
// state mutation happens inside one store Update, so concurrent turns for
// the same conversation are serialized.
type RepairStage struct {
	store   repair.StateStore
	catalog []models.RepairStrategy
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewRepairStage(store repair.StateStore, catalog []models.RepairStrategy, m *metrics.Metrics, logger *logrus.Logger) *RepairStage {
	return &RepairStage{
		store:   store,
		catalog: catalog,
		metrics: m,
		logger:  logger,
	}
}

func (s *RepairStage) Name() string {
	return "conversation_repair"
}

func (s *RepairStage) Process(ctx context.Context, resp *models.ProcessedResponse, pctx *models.ProcessingContext) error {
	// Terminal responses are never repaired.
	if resp.Action.Terminal() {
		return nil
	}

	_, err := s.store.Update(ctx, pctx.ConversationID, func(state *models.RepairState) {
		trigger, fired := evaluateTrigger(state, pctx)

		// A contact stuck at the top of the ladder has stopped making
		// progress, whatever the surface trigger was.
		if fired && state.EscalationLevel >= models.MaxEscalationLevel && state.RepairCount >= constants.NoProgressRepairCount {
			trigger = models.TriggerNoProgress
		}

		if fired {
			strategy := repair.ResolveStrategy(s.catalog, trigger, state.EscalationLevel)
			resp.Message = repair.Render(strategy, repair.GenericTopic, resp.Message)
			resp.Escalate(models.ActionModify)

			if strategy.Type == models.RepairHumanEscalation {
				resp.AddSideEffect(SideEffectTagHumanHandoff)
			}

			pctx.Metadata[MetadataKeyRepairTrigger] = string(trigger)
			pctx.Metadata[MetadataKeyRepairStrategy] = string(strategy.Type)

			s.metrics.RepairsTriggered.WithLabelValues(string(trigger)).Inc()
			s.logger.WithFields(logrus.Fields{
				"conversation_id":  pctx.ConversationID,
				"trigger":          trigger,
				"strategy":         strategy.Type,
				"escalation_level": state.EscalationLevel,
				"repair_count":     state.RepairCount,
			}).Info("Conversation repair applied")

			state.RaiseEscalation()
			state.RepairCount++
		}

		// State tracking happens every turn the stage runs, fired or not.
		state.TrackMessage(pctx.UserMessage)
		state.LastBotResponse = resp.Message
	})
	if err != nil {
		return fmt.Errorf("repair state update failed: %w", err)
	}
	return nil
}

// evaluateTrigger checks the breakdown patterns in fixed precedence order;
// the first match wins.
func evaluateTrigger(state *models.RepairState, pctx *models.ProcessingContext) (models.RepairTrigger, bool) {
	for _, previous := range state.RecentWindow(constants.RepeatComparisonWindow) {
		if repair.WordOverlap(pctx.UserMessage, previous) >= constants.RepeatedQuestionOverlap {
			return models.TriggerRepeatedQuestion, true
		}
	}

	if pctx.BotConfidence() < constants.LowConfidenceThreshold {
		return models.TriggerLowConfidence, true
	}

	if state.LastBotResponse != "" {
		if _, ok := rejectionPhrases[repair.NormalizePhrase(pctx.UserMessage)]; ok {
			return models.TriggerContradiction, true
		}
	}

	return "", false
}
