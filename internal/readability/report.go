package readability

import (
	"math"
	"unicode"

	"github.com/rs/zerolog/log"

	"textlab/internal/models"
)

// band peaks used by the soft classification
const (
	beginnerPeak     = 5.0
	intermediatePeak = 10.0
	advancedPeak     = 15.0
	peakSmoothing    = 0.1
)

// SoftProfile spreads a single document grade over the three bands by
// inverse distance to each band's peak grade.
type SoftProfile struct {
	Beginner     float64 `json:"beginner"`
	Intermediate float64 `json:"intermediate"`
	Advanced     float64 `json:"advanced"`
}

// Primary is the band with the largest share.
func (s SoftProfile) Primary() string {
	switch {
	case s.Beginner >= s.Intermediate && s.Beginner >= s.Advanced:
		return BandBeginner
	case s.Intermediate >= s.Advanced:
		return BandIntermediate
	default:
		return BandAdvanced
	}
}

// Report holds whole-document readability measurements.
type Report struct {
	WordCount        int `json:"word_count"`
	SentenceCount    int `json:"sentence_count"`
	SyllableCount    int `json:"syllable_count"`
	ComplexWordCount int `json:"complex_word_count"`
	CharacterCount   int `json:"character_count"`

	FleschKincaidGrade        float64 `json:"flesch_kincaid_grade"`
	FleschReadingEase         float64 `json:"flesch_reading_ease"`
	GunningFogIndex           float64 `json:"gunning_fog_index"`
	SMOGIndex                 float64 `json:"smog_index"`
	AutomatedReadabilityIndex float64 `json:"automated_readability_index"`

	Complexity   models.ComplexityProfile `json:"complexity"`
	Soft         SoftProfile              `json:"soft_classification"`
	PrimaryLevel string                   `json:"primary_level"`
}

// Report measures the whole document. Sentence counts come from the
// classifier's segmenter so they agree with the complexity profile.
func (c *Classifier) Report(text string) Report {
	r := Report{
		SentenceCount: len(c.segmenter.Segment(text)),
		Complexity:    c.Classify(text),
	}

	for _, w := range letterWords(text) {
		r.WordCount++
		syl := CountSyllables(w)
		r.SyllableCount += syl
		if syl >= 3 {
			r.ComplexWordCount++
		}
	}
	for _, ch := range text {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			r.CharacterCount++
		}
	}

	if r.WordCount > 0 && r.SentenceCount > 0 {
		wps := float64(r.WordCount) / float64(r.SentenceCount)
		spw := float64(r.SyllableCount) / float64(r.WordCount)
		pcw := 100 * float64(r.ComplexWordCount) / float64(r.WordCount)
		cpw := float64(r.CharacterCount) / float64(r.WordCount)

		r.FleschKincaidGrade = fleschKincaidGrade(r.WordCount, r.SentenceCount, r.SyllableCount)
		r.FleschReadingEase = 206.835 - 1.015*wps - 84.6*spw
		r.GunningFogIndex = 0.4 * (wps + pcw)
		r.SMOGIndex = 1.043*math.Sqrt(float64(r.ComplexWordCount)*(30/float64(r.SentenceCount))) + 3.1291
		r.AutomatedReadabilityIndex = 4.71*cpw + 0.5*wps - 21.43
	}

	r.Soft = SoftClassify(r.FleschKincaidGrade)
	r.PrimaryLevel = r.Soft.Primary()

	log.Debug().
		Int("words", r.WordCount).
		Int("sentences", r.SentenceCount).
		Float64("flesch_kincaid", r.FleschKincaidGrade).
		Str("level", r.PrimaryLevel).
		Msg("Readability report completed")

	return r
}

// SoftClassify returns percentages (summing to 100) weighted by how close
// grade is to each band's peak.
func SoftClassify(grade float64) SoftProfile {
	invB := 1 / (math.Abs(grade-beginnerPeak) + peakSmoothing)
	invI := 1 / (math.Abs(grade-intermediatePeak) + peakSmoothing)
	invA := 1 / (math.Abs(grade-advancedPeak) + peakSmoothing)
	total := invB + invI + invA
	return SoftProfile{
		Beginner:     100 * invB / total,
		Intermediate: 100 * invI / total,
		Advanced:     100 * invA / total,
	}
}
