package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"textlab/internal/evaluation"
	"textlab/internal/llmservice"
	"textlab/internal/models"
	"textlab/internal/planner"
	"textlab/internal/readability"
)

var (
	jsonObjectRe     = regexp.MustCompile(`(?s)\{.*\}`)
	analysisHeadRe   = regexp.MustCompile(`(?i)^[\s\d.*#]*analysis:?[\s*]*`)
	trailingMarkerRe = regexp.MustCompile(`\n[ \t]*(?:\d+\.)?[ \t]*[*#]*[ \t]*\z`)

	// analysis prompts get one greedy answer without a length budget
	plannerDeterministic = planner.Params{NumCandidates: 1, Deterministic: true}
)

func (s *Service) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	res, err := s.Run(ctx, req.request())
	if err != nil {
		return nil, err
	}
	summary := res.Candidates[0]
	originalWords := models.CountWords(req.Text)
	summaryWords := models.CountWords(summary.Text)

	return &SummarizeResponse{
		Summary:              summary.Text,
		OriginalTextAnalysis: res.SourceComplexity,
		SummaryTextAnalysis:  summary.Complexity,
		OriginalWordCount:    originalWords,
		SummaryWordCount:     summaryWords,
		CompressionRate:      CompressionRate(originalWords, summaryWords),
		Model:                res.ModelID,
		Params:               res.Params,
		HistorySaved:         res.HistorySaved,
	}, nil
}

// CompressionRate is the percentage reduction in word count, rounded to
// one decimal. An empty original gives 0.
func CompressionRate(originalWords, summaryWords int) float64 {
	if originalWords <= 0 {
		return 0
	}
	rate := (1 - float64(summaryWords)/float64(originalWords)) * 100
	return math.Round(rate*10) / 10
}

func (s *Service) Paraphrase(ctx context.Context, req ParaphraseRequest) (*ParaphraseResponse, error) {
	res, err := s.Run(ctx, req.request())
	if err != nil {
		return nil, err
	}
	polarity := evaluation.Sentiment(req.Text)

	return &ParaphraseResponse{
		OriginalTextAnalysis: res.SourceComplexity,
		ParaphrasedResults:   res.Candidates,
		Sentiment:            SentimentResponse{Polarity: polarity, Label: polarity.Label()},
		Model:                res.ModelID,
		Params:               res.Params,
		HistorySaved:         res.HistorySaved,
	}, nil
}

// Sentiment scores text with the lexicon analyzer and, when asked, with
// the language model as well.
func (s *Service) Sentiment(ctx context.Context, req SentimentRequest) (*SentimentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	polarity := evaluation.Sentiment(req.Text)
	resp := &SentimentResponse{Polarity: polarity, Label: polarity.Label()}
	if !req.InDepth {
		return resp, nil
	}

	out, err := s.complete(ctx, req.Model, fmt.Sprintf(models.SentimentPromptTemplate, req.Text))
	if err != nil {
		return nil, err
	}
	ls, err := ParseLabelScore(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}
	resp.InDepth = ls
	return resp, nil
}

// ParseLabelScore reads the {"label", "score"} object from a model answer.
func ParseLabelScore(answer string) (*LabelScore, error) {
	raw := jsonObjectRe.FindString(answer)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in answer %q", answer)
	}
	var ls LabelScore
	if err := json.Unmarshal([]byte(raw), &ls); err != nil {
		return nil, fmt.Errorf("invalid sentiment answer: %w", err)
	}
	ls.Label = strings.ToLower(strings.TrimSpace(ls.Label))
	switch ls.Label {
	case evaluation.LabelPositive, evaluation.LabelNeutral, evaluation.LabelNegative:
	default:
		return nil, fmt.Errorf("unknown sentiment label %q", ls.Label)
	}
	ls.Score = math.Min(math.Max(ls.Score, 0), 1)
	return &ls, nil
}

// Insight asks the model for a qualitative analysis and improvement
// suggestions.
func (s *Service) Insight(ctx context.Context, req InsightRequest) (*InsightResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	out, err := s.complete(ctx, req.Model, fmt.Sprintf(models.InsightPromptTemplate, req.Text))
	if err != nil {
		return nil, err
	}
	analysis, suggestions := SplitInsight(out)
	return &InsightResponse{Analysis: analysis, Suggestions: suggestions}, nil
}

// SplitInsight separates an answer at the suggestions marker. Without the
// marker the whole answer is the analysis.
func SplitInsight(answer string) (analysis, suggestions string) {
	idx := strings.Index(answer, models.SuggestionsMarker)
	if idx < 0 {
		return cleanSection(analysisHeadRe.ReplaceAllString(answer, "")), ""
	}
	analysis = analysisHeadRe.ReplaceAllString(answer[:idx], "")
	return cleanSection(analysis), cleanSection(answer[idx+len(models.SuggestionsMarker):])
}

func cleanSection(s string) string {
	s = strings.TrimLeft(strings.TrimSpace(s), "*: \n")
	s = trailingMarkerRe.ReplaceAllString(s, "")
	return strings.TrimSpace(strings.TrimRight(s, "*# "))
}

// Readability reports whole-document metrics and the complexity profile.
func (s *Service) Readability(text string) readability.Report {
	return s.classifier.Report(text)
}

// complete runs a single deterministic generation for analysis prompts.
func (s *Service) complete(ctx context.Context, modelID, prompt string) (string, error) {
	gen, err := s.models.Get(ctx, s.modelID(modelID))
	if err != nil {
		return "", err
	}
	out, err := s.generate(ctx, gen, prompt, plannerDeterministic)
	if err != nil {
		return "", err
	}
	return llmservice.Clean(out[0]), nil
}
