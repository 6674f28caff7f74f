package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"textlab/internal/chromemdb"
	"textlab/internal/config"
	"textlab/internal/db"
	"textlab/internal/evaluation"
	"textlab/internal/llmservice"
	"textlab/internal/models"
	"textlab/internal/parser"
	"textlab/internal/planner"
	"textlab/internal/readability"
)

// HistoryStore saves finished operations.
type HistoryStore interface {
	AppendHistory(ctx context.Context, email, kind, original, result string) (*db.HistoryRecord, error)
}

// HistoryIndexer receives saved records for semantic search.
type HistoryIndexer interface {
	Add(ctx context.Context, entries ...chromemdb.Entry) error
}

// Service runs generation requests end to end: model resolution, length
// planning, generation with timeout and retry, analysis and history.
type Service struct {
	models     *llmservice.ModelCache
	classifier *readability.Classifier
	planner    *planner.Planner
	store      HistoryStore
	index      HistoryIndexer

	defaultModel string
	timeout      time.Duration
	retries      int
	chunkSize    int
	chunkOverlap int
	candidates   int
	beam         bool
}

type Option func(*Service)

func WithHistory(store HistoryStore) Option {
	return func(s *Service) { s.store = store }
}

func WithIndex(index HistoryIndexer) Option {
	return func(s *Service) { s.index = index }
}

func NewService(cfg *config.Config, cache *llmservice.ModelCache, classifier *readability.Classifier, opts ...Option) *Service {
	s := &Service{
		models:       cache,
		classifier:   classifier,
		planner:      planner.New(cfg.Planner.SummaryLengths),
		defaultModel: cfg.LLM.Model,
		timeout:      cfg.Generation.TimeoutDuration(),
		retries:      max(cfg.Generation.Retries, 0),
		chunkSize:    cfg.Generation.ChunkSize,
		chunkOverlap: cfg.Generation.ChunkOverlap,
		candidates:   max(cfg.Paraphrase.Candidates, 1),
		beam:         strings.EqualFold(cfg.Paraphrase.Mode, ModeBeam),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes a summarize or paraphrase request. Generation failures
// wrap models.ErrGeneration and return no partial result; history write
// failures only clear HistorySaved.
func (s *Service) Run(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	modelID := s.modelID(req.ModelID)

	gen, err := s.models.Get(ctx, modelID)
	if err != nil {
		return nil, err
	}

	var params planner.Params
	var texts []string
	switch req.Kind {
	case models.OperationSummarize:
		params = s.planner.Summary(req.Length)
		texts, err = s.summarize(ctx, gen, req.Text, params)
	case models.OperationParaphrase:
		params = s.planner.Paraphrase(req.Length, models.CountWords(req.Text), req.Creativity)
		params.NumCandidates = s.candidates
		params.Deterministic = s.beam
		texts, err = s.generate(ctx, gen, fmt.Sprintf(models.ParaphrasePromptTemplate, params.MinLength, params.MaxLength, req.Text), params)
	}
	if err != nil {
		return nil, err
	}

	result := &GenerationResult{
		Kind:       req.Kind,
		ModelID:    modelID,
		Candidates: make([]Candidate, len(texts)),
		Params:     params,
	}
	s.analyze(ctx, req.Text, texts, result)

	if req.Owner != "" {
		result.HistorySaved = s.saveHistory(ctx, req, texts)
	}

	log.Info().Str("kind", req.Kind).Str("model", modelID).Int("candidates", len(texts)).
		Bool("history_saved", result.HistorySaved).Msg("Generation finished")
	return result, nil
}

// analyze classifies the source and every candidate concurrently and
// scores each candidate against the source.
func (s *Service) analyze(ctx context.Context, source string, texts []string, result *GenerationResult) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	g.Go(func() error {
		result.SourceComplexity = s.classifier.Classify(source)
		return nil
	})
	for i, text := range texts {
		g.Go(func() error {
			result.Candidates[i] = Candidate{
				Text:       text,
				Complexity: s.classifier.Classify(text),
				Rouge:      evaluation.Rouge(source, text),
			}
			return nil
		})
	}
	_ = g.Wait()
}

// summarize condenses text; sources longer than the chunk size are
// summarized chunk by chunk first.
func (s *Service) summarize(ctx context.Context, gen llmservice.Generator, text string, params planner.Params) ([]string, error) {
	if s.chunkSize > 0 && len(text) > s.chunkSize {
		chunks := parser.Split(text, s.chunkSize, s.chunkOverlap)
		partial := s.planner.Summary(models.LengthMedium)
		log.Debug().Int("chunks", len(chunks)).Msg("Summarizing in chunks")

		parts := make([]string, 0, len(chunks))
		for _, c := range chunks {
			out, err := s.generate(ctx, gen, fmt.Sprintf(models.SummarizePromptTemplate, partial.MinLength, partial.MaxLength, c.Content), partial)
			if err != nil {
				return nil, err
			}
			parts = append(parts, out[0])
		}
		text = strings.Join(parts, "\n")
	}
	return s.generate(ctx, gen, fmt.Sprintf(models.SummarizePromptTemplate, params.MinLength, params.MaxLength, text), params)
}

// generate calls the model with a per-attempt timeout, retrying failed
// attempts while the caller's context is still live.
func (s *Service) generate(ctx context.Context, gen llmservice.Generator, prompt string, params planner.Params) ([]string, error) {
	opts := llmservice.GenerateOptions{
		MinLength:     params.MinLength,
		MaxLength:     params.MaxLength,
		NumCandidates: max(params.NumCandidates, 1),
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		Deterministic: params.Deterministic,
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			if ctx.Err() != nil {
				break
			}
			log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("Retrying generation")
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		out, err := gen.Generate(attemptCtx, prompt, opts)
		cancel()
		if err == nil && len(out) == 0 {
			err = errors.New("model returned no content")
		}
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		lastErr = fmt.Errorf("%w: %w", ctxErr, lastErr)
	}
	return nil, fmt.Errorf("%w: %w", models.ErrGeneration, lastErr)
}

func (s *Service) saveHistory(ctx context.Context, req GenerationRequest, texts []string) bool {
	if s.store == nil {
		log.Warn().Str("owner", req.Owner).Msg("History requested but no store configured")
		return false
	}
	result := strings.Join(texts, models.CandidateSeparator)
	rec, err := s.store.AppendHistory(ctx, req.Owner, req.Kind, req.Text, result)
	if err != nil {
		log.Error().Err(err).Str("owner", req.Owner).Str("kind", req.Kind).Msg("Failed to save history")
		return false
	}

	if s.index != nil {
		owner := req.Owner
		if rec.Owner != nil {
			owner = rec.Owner.Email
		}
		entry := chromemdb.Entry{
			ID:        strconv.FormatInt(rec.ID, 10),
			Owner:     owner,
			Operation: req.Kind,
			Original:  req.Text,
			Result:    result,
			Timestamp: rec.Timestamp,
		}
		if err := s.index.Add(ctx, entry); err != nil {
			log.Warn().Err(err).Int64("id", rec.ID).Msg("Failed to index history record")
		}
	}
	return true
}

func (s *Service) modelID(requested string) string {
	if id := strings.TrimSpace(requested); id != "" {
		return id
	}
	return s.defaultModel
}
