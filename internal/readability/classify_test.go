package readability

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textlab/internal/models"
)

// lineSegmenter treats every non-empty line as a sentence.
type lineSegmenter struct{}

func (lineSegmenter) Segment(text string) []Sentence {
	var out []Sentence
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, Sentence{Index: len(out), Start: offset, End: offset + len(line), Text: line})
		}
		offset += len(line) + 1
	}
	return out
}

// tableScorer returns fixed grades keyed by sentence text.
type tableScorer map[string]float64

func (s tableScorer) Grade(sentence string) (float64, error) {
	g, ok := s[sentence]
	if !ok {
		return 0, fmt.Errorf("%w: no grade for %q", models.ErrScoring, sentence)
	}
	return g, nil
}

const (
	easy   = "one two three four five"
	medium = "six seven eight nine ten"
	hard   = "eleven twelve thirteen fourteen fifteen"
)

func TestClassifier_OneOfEachBand(t *testing.T) {
	c := NewClassifier(lineSegmenter{}, tableScorer{easy: 3, medium: 10, hard: 16})

	p := c.Classify(strings.Join([]string{easy, medium, hard}, "\n"))

	assert.Equal(t, models.ComplexityProfile{Beginner: 33, Intermediate: 33, Advanced: 33}, p)
	assert.Equal(t, 99, p.Total())
}

func TestClassifier_BandBoundaries(t *testing.T) {
	tests := []struct {
		grade float64
		band  string
	}{
		{-3, BandBeginner},
		{7.99, BandBeginner},
		{8, BandIntermediate},
		{12, BandIntermediate},
		{12.01, BandAdvanced},
		{30, BandAdvanced},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.grade), func(t *testing.T) {
			assert.Equal(t, tt.band, BandFor(tt.grade))
		})
	}
}

func TestClassifier_DegenerateDefault(t *testing.T) {
	c := NewClassifier(lineSegmenter{}, tableScorer{easy: 3})

	t.Run("empty document", func(t *testing.T) {
		assert.Equal(t, models.DefaultProfile(), c.Classify(""))
	})

	t.Run("only short sentences", func(t *testing.T) {
		assert.Equal(t, models.DefaultProfile(), c.Classify("too short\nalso short here"))
	})

	t.Run("all scoring failed", func(t *testing.T) {
		assert.Equal(t, models.DefaultProfile(), c.Classify(medium+"\n"+hard))
	})
}

func TestClassifier_SkipsAreAudited(t *testing.T) {
	c := NewClassifier(lineSegmenter{}, tableScorer{easy: 3, hard: 14})

	audit := c.Audit(strings.Join([]string{"tiny one", easy, medium, hard}, "\n"))

	require.Len(t, audit.Sentences, 4)
	assert.Equal(t, 2, audit.Scored)

	assert.True(t, audit.Sentences[0].Skipped)
	assert.Equal(t, ReasonTooShort, audit.Sentences[0].Reason)

	assert.False(t, audit.Sentences[1].Skipped)
	assert.Equal(t, BandBeginner, audit.Sentences[1].Band)

	assert.True(t, audit.Sentences[2].Skipped)
	assert.Contains(t, audit.Sentences[2].Reason, models.ErrScoring.Error())

	assert.Equal(t, BandAdvanced, audit.Sentences[3].Band)
	assert.Equal(t, models.ComplexityProfile{Beginner: 50, Advanced: 50}, audit.Profile)
}

func TestClassifier_Idempotent(t *testing.T) {
	c, err := NewDefaultClassifier()
	require.NoError(t, err)

	text := "Photosynthesis converts electromagnetic radiation into chemical energy within chloroplasts. " +
		"The dog ran fast across the big green field. Plants need water and light to grow well."
	assert.Equal(t, c.Classify(text), c.Classify(text))
}

func TestClassifier_EndToEnd(t *testing.T) {
	c, err := NewDefaultClassifier()
	require.NoError(t, err)

	audit := c.Audit("The cat sat. The dog ran fast across the big green field.")

	require.Len(t, audit.Sentences, 2)
	assert.True(t, audit.Sentences[0].Skipped)
	assert.False(t, audit.Sentences[1].Skipped)
	assert.Equal(t, 1, audit.Scored)
	assert.Equal(t, models.ComplexityProfile{Beginner: 100}, audit.Profile)
}

func TestClassifier_ProfileRange(t *testing.T) {
	c, err := NewDefaultClassifier()
	require.NoError(t, err)

	texts := []string{
		"",
		"Hi.",
		"The quick brown fox jumps over the lazy dog. Notwithstanding considerable institutional opposition, " +
			"the administration implemented comprehensive telecommunications deregulation initiatives.",
		"1234 5678 91011 121314 151617.",
	}
	for _, text := range texts {
		p := c.Classify(text)
		for _, v := range []int{p.Beginner, p.Intermediate, p.Advanced} {
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, 100)
		}
		assert.InDelta(t, 100, p.Total(), 2)
	}
}

func TestDistribution(t *testing.T) {
	tests := []struct {
		name   string
		counts [3]int
		want   models.ComplexityProfile
	}{
		{"none", [3]int{0, 0, 0}, models.ComplexityProfile{Beginner: 100}},
		{"all advanced", [3]int{0, 0, 4}, models.ComplexityProfile{Advanced: 100}},
		{"thirds", [3]int{1, 1, 1}, models.ComplexityProfile{Beginner: 33, Intermediate: 33, Advanced: 33}},
		{"half to even", [3]int{1, 1, 6}, models.ComplexityProfile{Beginner: 12, Intermediate: 12, Advanced: 75}},
		{"two thirds", [3]int{2, 1, 0}, models.ComplexityProfile{Beginner: 67, Intermediate: 33}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distribution(tt.counts)
			assert.Equal(t, tt.want, got)
			assert.InDelta(t, 100, got.Total(), 2)
		})
	}
}
