package stages

import (
	"context"

	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/language"
	"outbound-reply-pipeline/pkg/models"
)

// MetadataKeyLanguageDetection holds the detector's full result on the
// context metadata map.
const MetadataKeyLanguageDetection = "language_detection"

// LanguageStage classifies the user's inbound message and records the
// detected language on the context. It never touches the response.
type LanguageStage struct {
	detector *language.Detector
	prefs    language.PreferenceStore
	logger   *logrus.Logger
}

// NewLanguageStage wires the detector and an optional preference store; pass
// a nil store to skip preference accumulation.
func NewLanguageStage(detector *language.Detector, prefs language.PreferenceStore, logger *logrus.Logger) *LanguageStage {
	return &LanguageStage{
		detector: detector,
		prefs:    prefs,
		logger:   logger,
	}
}

func (s *LanguageStage) Name() string {
	return "language_detector"
}

func (s *LanguageStage) Process(ctx context.Context, _ *models.ProcessedResponse, pctx *models.ProcessingContext) error {
	// An opted-out conversation keeps its language untouched.
	if pctx.IsOptOut {
		return nil
	}

	result := s.detector.Detect(pctx.UserMessage)

	pctx.DetectedLanguage = result.Language
	pctx.Metadata[MetadataKeyLanguageDetection] = map[string]interface{}{
		"language":           result.Language,
		"confidence":         result.Confidence,
		"code_switching":     result.CodeSwitching,
		"secondary_language": result.SecondaryLanguage,
	}

	if s.prefs != nil {
		if err := s.prefs.Record(ctx, pctx.ConversationID, result.Language); err != nil {
			// Preference accumulation is optional; a store outage must not
			// fail the stage.
			s.logger.WithError(err).WithField("conversation_id", pctx.ConversationID).
				Warn("Failed to record language preference")
		}
	}

	return nil
}
