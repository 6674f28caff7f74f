package orchestrator

import (
	"fmt"
	"strings"

	"textlab/internal/evaluation"
	"textlab/internal/models"
	"textlab/internal/planner"
)

const (
	DefaultCreativity = 1.0
	MinCreativity     = 0.0
	MaxCreativity     = 1.5

	ModeSampling = "sampling"
	ModeBeam     = "beam"
)

// GenerationRequest is one summarize or paraphrase job.
type GenerationRequest struct {
	Kind       string
	Text       string
	ModelID    string
	Length     string
	Creativity float64
	Owner      string
}

func (r GenerationRequest) Validate() error {
	if r.Kind != models.OperationSummarize && r.Kind != models.OperationParaphrase {
		return fmt.Errorf("%w: unknown operation %q", models.ErrInvalidRequest, r.Kind)
	}
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: text must not be empty", models.ErrInvalidRequest)
	}
	if r.Kind == models.OperationParaphrase && (r.Creativity < MinCreativity || r.Creativity > MaxCreativity) {
		return fmt.Errorf("%w: creativity %.2f outside [%.1f, %.1f]", models.ErrInvalidRequest, r.Creativity, MinCreativity, MaxCreativity)
	}
	return nil
}

// Candidate is one generated text with its analysis.
type Candidate struct {
	Text       string                   `json:"text"`
	Complexity models.ComplexityProfile `json:"complexity"`
	Rouge      evaluation.RougeScores   `json:"rouge"`
}

// GenerationResult is read-only once Run returns it.
type GenerationResult struct {
	Kind             string                   `json:"kind"`
	ModelID          string                   `json:"model"`
	Candidates       []Candidate              `json:"candidates"`
	SourceComplexity models.ComplexityProfile `json:"source_complexity"`
	Params           planner.Params           `json:"params"`
	HistorySaved     bool                     `json:"history_saved"`
}

type SummarizeRequest struct {
	Text   string `json:"text"`
	Model  string `json:"model_name"`
	Length string `json:"length"`
	Owner  string `json:"user_email,omitempty"`
}

func (r SummarizeRequest) Validate() error {
	return r.request().Validate()
}

func (r SummarizeRequest) request() GenerationRequest {
	return GenerationRequest{
		Kind:    models.OperationSummarize,
		Text:    r.Text,
		ModelID: r.Model,
		Length:  r.Length,
		Owner:   r.Owner,
	}
}

type SummarizeResponse struct {
	Summary              string                   `json:"summary"`
	OriginalTextAnalysis models.ComplexityProfile `json:"original_text_analysis"`
	SummaryTextAnalysis  models.ComplexityProfile `json:"summary_text_analysis"`
	OriginalWordCount    int                      `json:"original_word_count"`
	SummaryWordCount     int                      `json:"summary_word_count"`
	CompressionRate      float64                  `json:"compression_rate"`
	Model                string                   `json:"model"`
	Params               planner.Params           `json:"params"`
	HistorySaved         bool                     `json:"history_saved"`
}

// ParaphraseRequest leaves Creativity nil to get DefaultCreativity.
type ParaphraseRequest struct {
	Text       string   `json:"text"`
	Model      string   `json:"model_name"`
	Length     string   `json:"length"`
	Creativity *float64 `json:"creativity,omitempty"`
	Owner      string   `json:"user_email,omitempty"`
}

func (r ParaphraseRequest) Validate() error {
	return r.request().Validate()
}

func (r ParaphraseRequest) request() GenerationRequest {
	creativity := DefaultCreativity
	if r.Creativity != nil {
		creativity = *r.Creativity
	}
	return GenerationRequest{
		Kind:       models.OperationParaphrase,
		Text:       r.Text,
		ModelID:    r.Model,
		Length:     r.Length,
		Creativity: creativity,
		Owner:      r.Owner,
	}
}

type ParaphraseResponse struct {
	OriginalTextAnalysis models.ComplexityProfile `json:"original_text_analysis"`
	ParaphrasedResults   []Candidate              `json:"paraphrased_results"`
	Sentiment            SentimentResponse        `json:"sentiment"`
	Model                string                   `json:"model"`
	Params               planner.Params           `json:"params"`
	HistorySaved         bool                     `json:"history_saved"`
}

// SentimentRequest asks for the lexicon reading and, with InDepth, a
// model-based label as well.
type SentimentRequest struct {
	Text    string `json:"text"`
	InDepth bool   `json:"in_depth,omitempty"`
	Model   string `json:"model_name,omitempty"`
}

func (r SentimentRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: text must not be empty", models.ErrInvalidRequest)
	}
	return nil
}

type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type SentimentResponse struct {
	evaluation.Polarity
	Label   string      `json:"label"`
	InDepth *LabelScore `json:"in_depth,omitempty"`
}

type InsightRequest struct {
	Text  string `json:"text"`
	Model string `json:"model_name,omitempty"`
}

func (r InsightRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: text must not be empty", models.ErrInvalidRequest)
	}
	return nil
}

type InsightResponse struct {
	Analysis    string `json:"analysis"`
	Suggestions string `json:"suggestions"`
}
