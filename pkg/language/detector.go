package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/constants"
)

// Result is one detection outcome for an inbound message.
type Result struct {
	Language          string  `json:"language"`
	Confidence        float64 `json:"confidence"`
	CodeSwitching     bool    `json:"code_switching"`
	SecondaryLanguage string  `json:"secondary_language,omitempty"`
}

// Detector classifies inbound messages. The primary classifier is a lingua
// model over the supported languages; when it is not constructed the
// marker-word heuristic takes over.
type Detector struct {
	primary  lingua.LanguageDetector
	baseLang string
	markers  map[string]map[string]struct{}
	logger   *logrus.Logger
}

// NewDetector builds a detector with the lingua primary classifier.
func NewDetector(baseLang string, logger *logrus.Logger) *Detector {
	d := NewFallbackDetector(baseLang, logger)
	d.primary = lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Spanish).
		Build()
	return d
}

// NewFallbackDetector builds a detector that only uses the marker-word
// heuristic. Deterministic and dependency-free, which also makes it the
// detector of choice in tests.
func NewFallbackDetector(baseLang string, logger *logrus.Logger) *Detector {
	if baseLang == "" {
		baseLang = "en"
	}
	return &Detector{
		baseLang: baseLang,
		markers:  markerDictionaries(),
		logger:   logger,
	}
}

// Detect classifies the full text and scans sentences for code-switching.
func (d *Detector) Detect(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Language: d.baseLang, Confidence: 1.0}
	}

	lang, confidence := d.classify(trimmed)
	result := Result{Language: lang, Confidence: confidence}

	if secondary := d.scanSentences(trimmed, lang); secondary != "" {
		result.CodeSwitching = true
		result.SecondaryLanguage = secondary
	}

	if d.logger != nil {
		d.logger.WithFields(logrus.Fields{
			"language":       result.Language,
			"confidence":     result.Confidence,
			"code_switching": result.CodeSwitching,
		}).Debug("Language detection complete")
	}

	return result
}

func (d *Detector) classify(text string) (string, float64) {
	if d.primary != nil {
		if detected, ok := d.primary.DetectLanguageOf(text); ok {
			code := strings.ToLower(detected.IsoCode639_1().String())
			confidence := d.primary.ComputeLanguageConfidence(text, detected)
			return code, confidence
		}
	}
	return d.heuristic(text)
}

// heuristic scores the text against fixed marker-word dictionaries: ratio of
// marker hits to total words, classifying when the ratio reaches the
// threshold, otherwise defaulting to the base language.
func (d *Detector) heuristic(text string) (string, float64) {
	words := tokenize(text)
	if len(words) == 0 {
		return d.baseLang, 1.0
	}

	bestLang := ""
	bestRatio := 0.0
	for lang, dict := range d.markers {
		if lang == d.baseLang {
			continue
		}
		matches := 0
		for _, word := range words {
			if _, ok := dict[word]; ok {
				matches++
			}
		}
		ratio := float64(matches) / float64(len(words))
		if ratio > bestRatio {
			bestLang = lang
			bestRatio = ratio
		}
	}

	if bestRatio >= constants.MarkerRatioThreshold {
		confidence := 0.5 + bestRatio
		if confidence > 0.95 {
			confidence = 0.95
		}
		return bestLang, confidence
	}
	return d.baseLang, constants.FallbackBaseConfidence
}

// scanSentences looks for sentences whose own classification names a
// different dominant language with enough confidence. Returns the most
// frequent such language, or "" when the text is monolingual.
func (d *Detector) scanSentences(text, primaryLang string) string {
	sentences := splitSentences(text)
	if len(sentences) < 2 {
		return ""
	}

	counts := make(map[string]int)
	for _, sentence := range sentences {
		if len(tokenize(sentence)) < 2 {
			continue
		}
		lang, confidence := d.classify(sentence)
		if lang != primaryLang && confidence >= constants.CodeSwitchSentenceConfidence {
			counts[lang]++
		}
	}

	secondary := ""
	best := 0
	for lang, count := range counts {
		if count > best {
			secondary = lang
			best = count
		}
	}
	return secondary
}

func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '!', '?', ';', ':', '¿', '¡', '"', '\'':
			return ' '
		}
		return r
	}, strings.ToLower(text))
	return strings.Fields(cleaned)
}

// markerDictionaries holds high-frequency function words per language. The
// sets deliberately exclude words shared across the supported languages.
func markerDictionaries() map[string]map[string]struct{} {
	es := []string{
		"el", "la", "los", "las", "un", "una", "es", "está", "estoy",
		"hola", "gracias", "por", "para", "que", "qué", "como", "cómo",
		"casa", "quiero", "necesito", "precio", "cuánto", "dónde",
		"cuando", "usted", "muy", "pero", "más", "tiene", "buenos",
		"días", "tardes", "ayuda", "puede", "hablar", "español", "sí",
	}
	en := []string{
		"the", "is", "are", "was", "you", "your", "this", "that",
		"have", "with", "about", "would", "could", "price", "house",
		"want", "need", "when", "where", "thanks", "hello", "please",
		"help", "speak", "english", "yes",
	}

	dicts := map[string]map[string]struct{}{
		"es": make(map[string]struct{}, len(es)),
		"en": make(map[string]struct{}, len(en)),
	}
	for _, w := range es {
		dicts["es"][w] = struct{}{}
	}
	for _, w := range en {
		dicts["en"][w] = struct{}{}
	}
	return dicts
}
