package models

import "regexp"

var wordRe = regexp.MustCompile(WordRegex)

// Document is raw text handed to the pipeline, either typed in directly or
// extracted from an uploaded file.
type Document struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Format string `json:"format"`
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content    string
	PageNumber int
	ChunkID    int
}

// ComplexityProfile is the percentage of a document's sentences falling in
// each difficulty band.
type ComplexityProfile struct {
	Beginner     int `json:"beginner"`
	Intermediate int `json:"intermediate"`
	Advanced     int `json:"advanced"`
}

// DefaultProfile is returned when no sentence of a document could be scored.
func DefaultProfile() ComplexityProfile {
	return ComplexityProfile{Beginner: 100}
}

// Total is the sum of the three bands; it may drift from 100 by rounding.
func (p ComplexityProfile) Total() int {
	return p.Beginner + p.Intermediate + p.Advanced
}

// CountWords counts \b\w+\b matches.
func CountWords(text string) int {
	return len(wordRe.FindAllStringIndex(text, -1))
}
