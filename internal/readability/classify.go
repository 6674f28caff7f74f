package readability

import (
	"errors"
	"math"

	"github.com/rs/zerolog/log"

	"textlab/internal/models"
)

// MinSentenceWords is the shortest sentence, in words, that gets a grade.
// Shorter sentences score too noisily to be counted.
const MinSentenceWords = 5

const (
	BandBeginner     = "beginner"
	BandIntermediate = "intermediate"
	BandAdvanced     = "advanced"
)

// skip reasons reported on SentenceResult
const (
	ReasonTooShort = "fewer than 5 words"
)

// SentenceResult is the outcome of grading one sentence: either a grade and
// its band, or a skip with the reason.
type SentenceResult struct {
	Sentence
	Words   int     `json:"words"`
	Grade   float64 `json:"grade,omitempty"`
	Band    string  `json:"band,omitempty"`
	Skipped bool    `json:"skipped"`
	Reason  string  `json:"reason,omitempty"`
}

// Audit is a ComplexityProfile together with the per-sentence decisions
// that produced it.
type Audit struct {
	Profile   models.ComplexityProfile `json:"profile"`
	Sentences []SentenceResult         `json:"sentences"`
	Scored    int                      `json:"scored"`
}

// Classifier maps a document to its ComplexityProfile. It holds no mutable
// state and is safe for concurrent use as long as its collaborators are.
type Classifier struct {
	segmenter Segmenter
	scorer    Scorer
}

func NewClassifier(segmenter Segmenter, scorer Scorer) *Classifier {
	if scorer == nil {
		scorer = FleschKincaid{}
	}
	return &Classifier{segmenter: segmenter, scorer: scorer}
}

// NewDefaultClassifier pairs the Punkt segmenter with the Flesch-Kincaid
// scorer.
func NewDefaultClassifier() (*Classifier, error) {
	seg, err := NewPunktSegmenter()
	if err != nil {
		return nil, err
	}
	return NewClassifier(seg, FleschKincaid{}), nil
}

func (c *Classifier) Classify(text string) models.ComplexityProfile {
	return c.Audit(text).Profile
}

func (c *Classifier) Audit(text string) Audit {
	sentences := c.segmenter.Segment(text)
	results := make([]SentenceResult, 0, len(sentences))
	var counts [3]int

	for _, s := range sentences {
		r := SentenceResult{Sentence: s, Words: models.CountWords(s.Text)}
		if r.Words < MinSentenceWords {
			r.Skipped = true
			r.Reason = ReasonTooShort
			results = append(results, r)
			continue
		}

		grade, err := c.scorer.Grade(s.Text)
		if err != nil {
			if !errors.Is(err, models.ErrScoring) {
				log.Warn().Err(err).Int("sentence", s.Index).Msg("Unexpected scorer error, skipping sentence")
			}
			r.Skipped = true
			r.Reason = err.Error()
			results = append(results, r)
			continue
		}

		r.Grade = grade
		r.Band = BandFor(grade)
		counts[bandIndex(r.Band)]++
		results = append(results, r)
	}

	scored := counts[0] + counts[1] + counts[2]
	log.Debug().
		Int("sentences", len(sentences)).
		Int("scored", scored).
		Int("skipped", len(sentences)-scored).
		Msg("Complexity classification completed")

	return Audit{
		Profile:   Distribution(counts),
		Sentences: results,
		Scored:    scored,
	}
}

// BandFor buckets a grade: below 8 is beginner, 8 through 12 intermediate,
// above 12 advanced.
func BandFor(grade float64) string {
	switch {
	case grade < 8:
		return BandBeginner
	case grade <= 12:
		return BandIntermediate
	default:
		return BandAdvanced
	}
}

func bandIndex(band string) int {
	switch band {
	case BandBeginner:
		return 0
	case BandIntermediate:
		return 1
	default:
		return 2
	}
}

// Distribution turns beginner/intermediate/advanced counts into independently
// rounded percentages (half to even). No counts yields the default profile.
func Distribution(counts [3]int) models.ComplexityProfile {
	total := counts[0] + counts[1] + counts[2]
	if total == 0 {
		return models.DefaultProfile()
	}
	pct := func(n int) int {
		return int(math.RoundToEven(100 * float64(n) / float64(total)))
	}
	return models.ComplexityProfile{
		Beginner:     pct(counts[0]),
		Intermediate: pct(counts[1]),
		Advanced:     pct(counts[2]),
	}
}
