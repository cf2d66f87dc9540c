package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/clerk/internal/feedback"
	"github.com/MikeSquared-Agency/clerk/internal/processor"
	"github.com/MikeSquared-Agency/clerk/internal/report"
)

// maxBodyBytes caps request bodies; contracts are plain text.
const maxBodyBytes = 2 << 20

// Workflows is the analysis surface the API exposes. *processor.Processor
// satisfies it.
type Workflows interface {
	Analyze(ctx context.Context, text string) (*processor.AnalysisResult, error)
	Negotiate(ctx context.Context, req processor.NegotiationRequest) (*processor.WorkflowResult, error)
	Mediate(ctx context.Context, req processor.MediationRequest) (*processor.WorkflowResult, error)
}

// Feedback is the feedback surface the API exposes. *feedback.Service
// satisfies it.
type Feedback interface {
	Submit(ctx context.Context, sub feedback.Submission) (feedback.Entry, error)
	List(ctx context.Context) ([]feedback.Entry, error)
	Stats(ctx context.Context) (feedback.Stats, error)
	Summary(ctx context.Context) (string, error)
	ExportJSON(ctx context.Context, w io.Writer) error
	ExportCSV(ctx context.Context, w io.Writer) error
	Clear(ctx context.Context) error
}

// Info describes the running agent on the status endpoint.
type Info struct {
	Provider string
	Model    string
	Storage  string
}

type Server struct {
	router   *chi.Mux
	port     int
	work     Workflows
	feedback Feedback
	info     Info
	logger   *slog.Logger
	now      func() time.Time
}

func NewServer(port int, work Workflows, fb Feedback, info Info, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		work:     work,
		feedback: fb,
		info:     info,
		logger:   logger,
		now:      time.Now,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/clerk/status", s.status)
		r.Post("/analyze", s.analyze)
		r.Post("/negotiate", s.negotiate)
		r.Post("/mediate", s.mediate)

		r.Route("/feedback", func(r chi.Router) {
			r.Post("/", s.submitFeedback)
			r.Get("/", s.listFeedback)
			r.Delete("/", s.clearFeedback)
			r.Get("/stats", s.feedbackStats)
			r.Get("/export", s.exportFeedback)
		})
	})

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":    "clerk",
		"status":   "ready",
		"provider": s.info.Provider,
		"model":    s.info.Model,
		"storage":  s.info.Storage,
	})
}

type analyzeRequest struct {
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.work.Analyze(r.Context(), req.Text)
	if err != nil {
		s.fail(w, r, "analyze", err)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, report.Analysis(req.Title, res, s.now()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) negotiate(w http.ResponseWriter, r *http.Request) {
	var req processor.NegotiationRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.work.Negotiate(r.Context(), req)
	if err != nil {
		s.fail(w, r, "negotiate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) mediate(w http.ResponseWriter, r *http.Request) {
	var req processor.MediationRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.work.Mediate(r.Context(), req)
	if err != nil {
		s.fail(w, r, "mediate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type feedbackRequest struct {
	Username   string `json:"username"`
	Rating     int    `json:"rating"`
	Comments   string `json:"comments"`
	AnalysisID string `json:"analysis_id,omitempty"`
}

func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decode(w, r, &req) {
		return
	}
	entry, err := s.feedback.Submit(r.Context(), feedback.Submission{
		Username:   req.Username,
		Rating:     req.Rating,
		Comments:   req.Comments,
		AnalysisID: req.AnalysisID,
		Source:     feedback.SourceAPI,
	})
	if err != nil {
		s.fail(w, r, "submit feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"id":        entry.ID.String(),
		"sentiment": entry.Sentiment,
	})
}

func (s *Server) listFeedback(w http.ResponseWriter, r *http.Request) {
	entries, err := s.feedback.List(r.Context())
	if err != nil {
		s.fail(w, r, "list feedback", err)
		return
	}
	if entries == nil {
		entries = []feedback.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) feedbackStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.feedback.Stats(r.Context())
	if err != nil {
		s.fail(w, r, "feedback stats", err)
		return
	}
	summary, err := s.feedback.Summary(r.Context())
	if err != nil {
		s.fail(w, r, "feedback summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":          stats.Count,
		"average_rating": stats.AverageRating,
		"summary":        summary,
	})
}

func (s *Server) exportFeedback(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	var export func(context.Context, io.Writer) error
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		export = s.feedback.ExportJSON
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		export = s.feedback.ExportCSV
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="feedback.%s"`, format))

	// Rendered before writing so a storage error still gets a 5xx.
	var buf bytes.Buffer
	if err := export(r.Context(), &buf); err != nil {
		w.Header().Del("Content-Disposition")
		s.fail(w, r, "export feedback", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) clearFeedback(w http.ResponseWriter, r *http.Request) {
	if err := s.feedback.Clear(r.Context()); err != nil {
		s.fail(w, r, "clear feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// fail maps workflow errors onto status codes and logs server-side ones.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed",
			"request_id", middleware.GetReqID(r.Context()),
			"status", status,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, processor.ErrInvalidInput), errors.Is(err, feedback.ErrInvalidFeedback):
		return http.StatusBadRequest
	case errors.Is(err, processor.ErrCapabilityUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
