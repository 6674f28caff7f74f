package readability

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Sentence is one segment of a document. Start and End are byte offsets
// into the segmented text.
type Sentence struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Segmenter splits raw text into ordered sentences.
type Segmenter interface {
	Segment(text string) []Sentence
}

// PunktSegmenter splits English text with the Punkt tokenizer, which knows
// about abbreviations, initials and ellipses.
type PunktSegmenter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewPunktSegmenter() (*PunktSegmenter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	return &PunktSegmenter{tokenizer: tokenizer}, nil
}

func (p *PunktSegmenter) Segment(text string) []Sentence {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []Sentence
	for _, s := range p.tokenizer.Tokenize(text) {
		trimmed := strings.TrimSpace(s.Text)
		if trimmed == "" {
			continue
		}
		start := s.Start + strings.Index(s.Text, trimmed)
		out = append(out, Sentence{
			Index: len(out),
			Start: start,
			End:   start + len(trimmed),
			Text:  trimmed,
		})
	}
	return out
}
