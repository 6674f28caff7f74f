// Package server exposes the analysis and generation operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"textlab/internal/chromemdb"
	"textlab/internal/db"
	"textlab/internal/helper"
	"textlab/internal/models"
	"textlab/internal/orchestrator"
	"textlab/internal/parser"
)

const (
	defaultSearchLimit = 5
	maxUploadBytes     = 32 << 20
	retryAfterSeconds  = "30"
)

// HistoryReader lists an owner's saved operations.
type HistoryReader interface {
	ListHistory(ctx context.Context, email string) ([]db.HistoryRecord, error)
}

// HistorySearcher runs semantic search over an owner's history.
type HistorySearcher interface {
	Search(ctx context.Context, owner, query string, limit int) ([]chromemdb.Hit, error)
}

type Server struct {
	svc          *orchestrator.Service
	history      HistoryReader
	search       HistorySearcher
	addr         string
	writeTimeout time.Duration
}

type Option func(*Server)

func WithHistory(h HistoryReader) Option {
	return func(s *Server) { s.history = h }
}

func WithSearch(h HistorySearcher) Option {
	return func(s *Server) { s.search = h }
}

// WithWriteTimeout bounds how long a handler may take to respond. It should
// cover the whole retry budget of a generation.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.writeTimeout = d }
}

func New(svc *orchestrator.Service, addr string, opts ...Option) *Server {
	s := &Server{svc: svc, addr: addr, writeTimeout: 5 * time.Minute}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API with request id, access log and CORS
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/summarize", s.handleSummarize)
	mux.HandleFunc("POST /api/paraphrase", s.handleParaphrase)
	mux.HandleFunc("POST /api/sentiment", s.handleSentiment)
	mux.HandleFunc("POST /api/readability", s.handleReadability)
	mux.HandleFunc("POST /api/insight", s.handleInsight)
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.HandleFunc("GET /api/history/{owner}", s.handleHistory)
	mux.HandleFunc("GET /api/history/{owner}/search", s.handleHistorySearch)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return requestID(accessLog(cors(mux)))
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.writeTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().Str("addr", s.addr).Msg("textlab server starting")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.SummarizeRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Summarize(r.Context(), req)
	respond(w, r, resp, err)
}

func (s *Server) handleParaphrase(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.ParaphraseRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Paraphrase(r.Context(), req)
	respond(w, r, resp, err)
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.SentimentRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Sentiment(r.Context(), req)
	respond(w, r, resp, err)
}

type readabilityRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleReadability(w http.ResponseWriter, r *http.Request) {
	var req readabilityRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, r, fmt.Errorf("%w: text must not be empty", models.ErrInvalidRequest))
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Readability(req.Text))
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.InsightRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Insight(r.Context(), req)
	respond(w, r, resp, err)
}

type extractResponse struct {
	Text      string `json:"text"`
	Format    string `json:"format"`
	WordCount int    `json:"word_count"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: multipart field \"file\": %w", models.ErrInvalidRequest, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: reading upload: %w", models.ErrInvalidRequest, err))
		return
	}
	doc, err := parser.ExtractBytes(header.Filename, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{
		Text:      doc.Text,
		Format:    doc.Format,
		WordCount: models.CountWords(doc.Text),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, fmt.Errorf("%w: history is disabled", models.ErrNotFound))
		return
	}
	records, err := s.history.ListHistory(r.Context(), r.PathValue("owner"))
	respond(w, r, records, err)
}

func (s *Server) handleHistorySearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, r, fmt.Errorf("%w: history search is disabled", models.ErrNotFound))
		return
	}
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, r, fmt.Errorf("%w: query parameter q is required", models.ErrInvalidRequest))
		return
	}
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, fmt.Errorf("%w: invalid limit %q", models.ErrInvalidRequest, v))
			return
		}
		limit = n
	}
	hits, err := s.search.Search(r.Context(), r.PathValue("owner"), query, limit)
	respond(w, r, hits, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed JSON body: %w", models.ErrInvalidRequest, err))
		return false
	}
	return true
}

func respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// StatusFor maps an error class to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidRequest), errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConnectivity), errors.Is(err, models.ErrModelLoad):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if errors.Is(err, models.ErrConnectivity) {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	ev := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = zerolog.Ctx(r.Context()).Error()
	}
	ev.Err(err).Int("status", status).Msg("Request failed")

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

// requestID tags every request with an id, taken from X-Request-ID when
// the client sent one, and attaches a logger carrying it to the context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			var err error
			if id, err = helper.GenerateUUID(); err != nil {
				log.Warn().Err(err).Msg("Failed to generate request id")
			}
		}
		w.Header().Set("X-Request-ID", id)

		logger := log.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
