package evaluation

import (
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/jonreiter/govader"
)

const (
	// Compound thresholds for the three labels.
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05

	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"
)

// The analyzer parses its lexicon on construction, so it is built once and
// shared. PolarityScores only reads it.
var analyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Polarity is a lexicon-based sentiment reading. Pos, Neu and Neg are
// proportions summing to about 1; Compound is normalized to [-1, 1].
type Polarity struct {
	Pos      float64 `json:"pos"`
	Neu      float64 `json:"neu"`
	Neg      float64 `json:"neg"`
	Compound float64 `json:"compound"`
}

// Label maps the compound score to positive, neutral or negative.
func (p Polarity) Label() string {
	switch {
	case p.Compound >= PositiveThreshold:
		return LabelPositive
	case p.Compound <= NegativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Sentiment scores text with the VADER lexicon and rules: boosters,
// negations, capitalised emphasis, contrastive "but" and exclamation marks.
// Text with no words scores zero everywhere.
func Sentiment(text string) Polarity {
	if strings.IndexFunc(text, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) < 0 {
		return Polarity{}
	}
	s := analyzer().PolarityScores(text)
	return Polarity{
		Pos:      round3(s.Positive),
		Neu:      round3(s.Neutral),
		Neg:      round3(s.Negative),
		Compound: round4(s.Compound),
	}
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
