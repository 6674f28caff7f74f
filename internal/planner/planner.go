package planner

import (
	"math"
	"strings"

	"textlab/internal/config"
	"textlab/internal/models"
)

const (
	minParaphraseLength = 10
	lengthGap           = 20
	summaryMinRatio     = 0.3
)

// Params is the generation parameter bundle handed to a generator.
type Params struct {
	MinLength     int     `json:"min_length"`
	MaxLength     int     `json:"max_length"`
	NumCandidates int     `json:"num_candidates"`
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	Deterministic bool    `json:"deterministic"`
}

// DefaultSummaryLengths is the canonical summary table. The short row keeps
// an explicit minimum of half its maximum; the other rows use 30%.
func DefaultSummaryLengths() map[string]config.LengthBounds {
	return map[string]config.LengthBounds{
		models.LengthShort:  {Min: 25, Max: 50},
		models.LengthMedium: {Min: 45, Max: 150},
		models.LengthLong:   {Min: 90, Max: 300},
	}
}

type paraphraseRatio struct {
	min, max float64
}

var paraphraseRatios = map[string]paraphraseRatio{
	models.LengthShort:  {0.4, 0.7},
	models.LengthMedium: {0.8, 1.2},
	models.LengthLong:   {1.1, 1.5},
}

// Planner turns a qualitative length selector into concrete bounds.
type Planner struct {
	summary map[string]config.LengthBounds
}

// New builds a planner from a summary table; rows missing from table fall
// back to DefaultSummaryLengths.
func New(table map[string]config.LengthBounds) *Planner {
	summary := DefaultSummaryLengths()
	for k, v := range table {
		if v.Max <= 0 {
			continue
		}
		summary[strings.ToLower(k)] = v
	}
	return &Planner{summary: summary}
}

// Summary plans a single deterministic candidate from the summary table.
// Unknown selectors plan as medium.
func (p *Planner) Summary(length string) Params {
	bounds, ok := p.summary[normalize(length)]
	if !ok {
		bounds = p.summary[models.LengthMedium]
	}
	lo := bounds.Min
	if lo <= 0 {
		lo = int(math.Floor(summaryMinRatio * float64(bounds.Max)))
	}
	return Params{
		MinLength:     lo,
		MaxLength:     bounds.Max,
		NumCandidates: 1,
		Deterministic: true,
	}
}

// Paraphrase plans bounds proportional to the source word count and
// derives the sampling parameters from creativity.
func (p *Planner) Paraphrase(length string, wordCount int, creativity float64) Params {
	ratio, ok := paraphraseRatios[normalize(length)]
	if !ok {
		ratio = paraphraseRatios[models.LengthMedium]
	}
	w := float64(wordCount)
	lo := int(ratio.min * w)
	hi := int(ratio.max * w)

	if lo < minParaphraseLength {
		lo = minParaphraseLength
	}
	if hi <= lo {
		hi = lo + lengthGap
	}

	temperature, topP := Sampling(creativity)
	return Params{
		MinLength:   lo,
		MaxLength:   hi,
		Temperature: temperature,
		TopP:        topP,
	}
}

// Sampling maps creativity to temperature and nucleus threshold. The
// results are not clamped; callers validate creativity.
func Sampling(creativity float64) (temperature, topP float64) {
	return 0.5 + creativity, 0.85 + creativity/10
}

func normalize(length string) string {
	return strings.ToLower(strings.TrimSpace(length))
}
