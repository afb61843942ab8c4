package language

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestDetector() *Detector {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewFallbackDetector("en", logger)
}

func TestDetect_EmptyInput(t *testing.T) {
	d := newTestDetector()

	for _, input := range []string{"", "   ", "\n\t"} {
		result := d.Detect(input)
		assert.Equal(t, "en", result.Language)
		assert.Equal(t, 1.0, result.Confidence)
		assert.False(t, result.CodeSwitching)
	}
}

func TestDetect_SpanishMarkers(t *testing.T) {
	d := newTestDetector()

	result := d.Detect("Hola necesito ayuda con el precio")
	assert.Equal(t, "es", result.Language)
	assert.Greater(t, result.Confidence, 0.5)
	assert.LessOrEqual(t, result.Confidence, 0.95)
}

func TestDetect_EnglishDefault(t *testing.T) {
	d := newTestDetector()

	result := d.Detect("The weather is nice today")
	assert.Equal(t, "en", result.Language)
	assert.Equal(t, 0.8, result.Confidence)
	assert.False(t, result.CodeSwitching)
}

func TestDetect_BelowMarkerThreshold(t *testing.T) {
	d := newTestDetector()

	// One marker word among many is not enough to switch
	result := d.Detect("I would like to schedule a showing for the downtown property hola")
	assert.Equal(t, "en", result.Language)
}

func TestDetect_CodeSwitching(t *testing.T) {
	d := newTestDetector()

	text := "I want to see the house tomorrow and maybe I can also discuss all the financing options with you if possible. Hola necesito ayuda."
	result := d.Detect(text)

	assert.Equal(t, "en", result.Language)
	assert.True(t, result.CodeSwitching)
	assert.Equal(t, "es", result.SecondaryLanguage)
}

func TestDetect_ConfidenceCap(t *testing.T) {
	d := newTestDetector()

	// Every word is a marker; confidence still caps at 0.95
	result := d.Detect("hola gracias el la es")
	assert.Equal(t, "es", result.Language)
	assert.Equal(t, 0.95, result.Confidence)
}
