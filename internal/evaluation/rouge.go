package evaluation

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Score is one ROUGE measurement.
type Score struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	FMeasure  float64 `json:"fmeasure"`
}

// RougeScores compares a candidate against its source.
type RougeScores struct {
	Rouge1 Score `json:"rouge1"`
	Rouge2 Score `json:"rouge2"`
	RougeL Score `json:"rougeL"`
}

// Rouge computes ROUGE-1, ROUGE-2 and ROUGE-L between reference and
// candidate over lower-cased, stemmed alphanumeric tokens. Either side
// empty scores zero everywhere.
func Rouge(reference, candidate string) RougeScores {
	ref := Tokenize(reference)
	cand := Tokenize(candidate)
	if len(ref) == 0 || len(cand) == 0 {
		return RougeScores{}
	}
	return RougeScores{
		Rouge1: ngramScore(ref, cand, 1),
		Rouge2: ngramScore(ref, cand, 2),
		RougeL: lcsScore(ref, cand),
	}
}

// Tokenize lower-cases text, splits it on anything that is not a letter or
// digit and stems tokens longer than three characters.
func Tokenize(text string) []string {
	fields := strings.Fields(nonAlnumRe.ReplaceAllString(strings.ToLower(text), " "))
	for i, f := range fields {
		if len(f) <= 3 {
			continue
		}
		stemmed, err := snowball.Stem(f, "english", true)
		if err == nil && stemmed != "" {
			fields[i] = stemmed
		}
	}
	return fields
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

func ngramScore(ref, cand []string, n int) Score {
	refGrams := ngrams(ref, n)
	candGrams := ngrams(cand, n)

	refTotal, candTotal, overlap := 0, 0, 0
	for _, c := range refGrams {
		refTotal += c
	}
	for g, c := range candGrams {
		candTotal += c
		overlap += min(c, refGrams[g])
	}
	return newScore(overlap, candTotal, refTotal)
}

func lcsScore(ref, cand []string) Score {
	return newScore(lcsLength(ref, cand), len(cand), len(ref))
}

func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func newScore(overlap, candTotal, refTotal int) Score {
	var s Score
	if candTotal > 0 {
		s.Precision = float64(overlap) / float64(candTotal)
	}
	if refTotal > 0 {
		s.Recall = float64(overlap) / float64(refTotal)
	}
	if s.Precision+s.Recall > 0 {
		s.FMeasure = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}
