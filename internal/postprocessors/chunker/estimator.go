package chunker

import (
	"math"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultCharsPerToken is the calibrated character-to-token ratio.
const DefaultCharsPerToken = 3.5

// Ensure CharRatioEstimator implements the interface.
var _ driven.TokenEstimator = CharRatioEstimator{}

// CharRatioEstimator estimates tokens as ceil(chars / CharsPerToken).
// It is a heuristic, not a tokenizer.
type CharRatioEstimator struct {
	CharsPerToken float64
}

// Estimate returns the estimated token count of text.
func (e CharRatioEstimator) Estimate(text string) int {
	ratio := e.CharsPerToken
	if ratio <= 0 {
		ratio = DefaultCharsPerToken
	}
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / ratio))
}
