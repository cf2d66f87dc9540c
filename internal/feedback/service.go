package feedback

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/clerk/internal/hermes"
	"github.com/MikeSquared-Agency/clerk/internal/memory"
)

const (
	anonymous      = "anonymous"
	maxCommentLen  = 4000
	maxUsernameLen = 120
)

// Service validates, stores and reports on user feedback. Stored feedback is
// also appended to the feedback memory collection so later analyses can
// draw on it.
type Service struct {
	repo   Repository
	mem    *memory.Client
	events Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, mem *memory.Client, events Publisher, logger *slog.Logger) *Service {
	if events == nil {
		events = hermes.Discard{}
	}
	return &Service{
		repo:   repo,
		mem:    mem,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates and stores one submission. Memory and event failures are
// logged; only a repository failure fails the call.
func (s *Service) Submit(ctx context.Context, sub Submission) (Entry, error) {
	if sub.Rating < 1 || sub.Rating > 5 {
		return Entry{}, fmt.Errorf("%w: rating must be between 1 and 5, got %d", ErrInvalidFeedback, sub.Rating)
	}
	comments := strings.TrimSpace(sub.Comments)
	if utf8.RuneCountInString(comments) > maxCommentLen {
		return Entry{}, fmt.Errorf("%w: comments longer than %d characters", ErrInvalidFeedback, maxCommentLen)
	}
	username := strings.TrimSpace(sub.Username)
	if username == "" {
		username = anonymous
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return Entry{}, fmt.Errorf("%w: username longer than %d characters", ErrInvalidFeedback, maxUsernameLen)
	}
	source := sub.Source
	if source == "" {
		source = SourceAPI
	}

	e := Entry{
		ID:         uuid.New(),
		Username:   username,
		Rating:     sub.Rating,
		Comments:   comments,
		Sentiment:  Label(comments),
		Source:     source,
		AnalysisID: sub.AnalysisID,
		CreatedAt:  s.now(),
	}

	if err := s.repo.InsertFeedback(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("store feedback: %w", err)
	}

	if comments != "" {
		meta := map[string]any{
			"username":  e.Username,
			"rating":    e.Rating,
			"sentiment": e.Sentiment,
			"timestamp": e.CreatedAt.Format(time.RFC3339),
		}
		if err := s.mem.Append(ctx, memory.CollectionFeedback, e.ID.String(), comments, meta); err != nil {
			s.logger.Warn("failed to append feedback to memory", "feedback_id", e.ID, "error", err)
		}
	}

	if err := s.events.Publish(hermes.SubjectFeedbackStored, hermes.FeedbackStored{
		FeedbackID: e.ID.String(),
		Username:   e.Username,
		Rating:     e.Rating,
		Sentiment:  e.Sentiment,
		Source:     e.Source,
	}); err != nil {
		s.logger.Warn("failed to publish feedback event", "feedback_id", e.ID, "error", err)
	}

	s.logger.Info("feedback stored", "feedback_id", e.ID, "rating", e.Rating, "sentiment", e.Sentiment, "source", e.Source)
	return e, nil
}

func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.ListFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return entries, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(entries), nil
}

func computeStats(entries []Entry) Stats {
	st := Stats{Count: len(entries)}
	if st.Count == 0 {
		return st
	}
	total := 0
	for _, e := range entries {
		total += e.Rating
	}
	st.AverageRating = float64(total) / float64(st.Count)
	return st
}

// Summary renders a plain text digest of all feedback.
func (s *Service) Summary(ctx context.Context) (string, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	return summarize(entries), nil
}

func summarize(entries []Entry) string {
	if len(entries) == 0 {
		return "No feedback available."
	}
	st := computeStats(entries)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total Feedbacks: %d\nAverage Rating: %.2f\n\nComments:\n", st.Count, st.AverageRating)
	for _, e := range entries {
		if e.Comments == "" {
			continue
		}
		fmt.Fprintf(&sb, "- %s\n", e.Comments)
	}
	return sb.String()
}

// ExportJSON writes every entry as an indented JSON array.
func (s *Service) ExportJSON(ctx context.Context, w io.Writer) error {
	entries, err := s.List(ctx)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	return nil
}

var csvHeader = []string{"id", "username", "rating", "comments", "sentiment", "source", "analysis_id", "timestamp"}

// ExportCSV writes every entry as CSV with a header row.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	entries, err := s.List(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		rec := []string{
			e.ID.String(),
			e.Username,
			strconv.Itoa(e.Rating),
			e.Comments,
			e.Sentiment,
			e.Source,
			e.AnalysisID,
			e.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.ClearFeedback(ctx); err != nil {
		return fmt.Errorf("clear feedback: %w", err)
	}
	s.logger.Info("feedback cleared")
	return nil
}
