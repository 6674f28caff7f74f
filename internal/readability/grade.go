package readability

import (
	"fmt"
	"regexp"
	"strings"

	"textlab/internal/models"
)

var letterWordRe = regexp.MustCompile(`[A-Za-z]+(?:'[A-Za-z]+)*`)

// Scorer computes a grade level for one sentence. It returns an error
// wrapping models.ErrScoring for text it cannot score.
type Scorer interface {
	Grade(sentence string) (float64, error)
}

// FleschKincaid scores a single sentence with the Flesch-Kincaid grade
// formula.
type FleschKincaid struct{}

func (FleschKincaid) Grade(sentence string) (float64, error) {
	words := letterWords(sentence)
	if len(words) == 0 {
		return 0, fmt.Errorf("%w: no countable words", models.ErrScoring)
	}
	syllables := 0
	for _, w := range words {
		syllables += CountSyllables(w)
	}
	if syllables == 0 {
		return 0, fmt.Errorf("%w: no countable syllables", models.ErrScoring)
	}
	return fleschKincaidGrade(len(words), 1, syllables), nil
}

func fleschKincaidGrade(words, sentences, syllables int) float64 {
	if words == 0 || sentences == 0 {
		return 0
	}
	awl := float64(words) / float64(sentences)
	asw := float64(syllables) / float64(words)
	return 0.39*awl + 11.8*asw - 15.59
}

func letterWords(text string) []string {
	return letterWordRe.FindAllString(text, -1)
}

// CountSyllables estimates the syllables of an English word by counting
// vowel groups, with corrections for a silent trailing "e" and a
// consonant + "le" ending. Words without letters have zero syllables.
func CountSyllables(word string) int {
	word = strings.ToLower(word)
	if !letterWordRe.MatchString(word) {
		return 0
	}

	groups := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			groups++
		}
		prevVowel = isVowel
	}

	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		groups--
	}
	if strings.HasSuffix(word, "le") && len(word) > 2 && strings.ContainsRune("aeiouy", rune(word[len(word)-3])) {
		groups--
	}

	if groups <= 0 {
		groups = 1
	}
	return groups
}
