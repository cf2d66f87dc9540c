package feedback

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MikeSquared-Agency/clerk/internal/slack"
)

// maxPending bounds how many posted analyses the loop remembers.
const maxPending = 1000

// SummaryPoster posts analysis digests to a review channel.
type SummaryPoster interface {
	PostAnalysisSummary(ctx context.Context, s slack.AnalysisSummary) (string, error)
	PostThread(ctx context.Context, threadTS, text string) error
}

// ReviewLoop posts each analysis to Slack and turns reviewer reactions on
// those posts into feedback entries.
type ReviewLoop struct {
	poster SummaryPoster
	svc    *Service
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]string // message ts -> analysis id
	order   []string
}

func NewReviewLoop(poster SummaryPoster, svc *Service, logger *slog.Logger) *ReviewLoop {
	return &ReviewLoop{
		poster:  poster,
		svc:     svc,
		logger:  logger,
		pending: make(map[string]string),
	}
}

// NotifyAnalysis posts the summary and remembers the message for reactions.
func (r *ReviewLoop) NotifyAnalysis(ctx context.Context, s slack.AnalysisSummary) error {
	ts, err := r.poster.PostAnalysisSummary(ctx, s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[ts]; !ok {
		r.order = append(r.order, ts)
	}
	r.pending[ts] = s.AnalysisID
	for len(r.order) > maxPending {
		delete(r.pending, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

// HandleReaction processes a raw reaction event. Reactions to messages the
// loop did not post, and reactions that carry no verdict, are ignored.
func (r *ReviewLoop) HandleReaction(ctx context.Context, data []byte) {
	evt, err := slack.ParseReactionEvent(data)
	if err != nil {
		r.logger.Warn("failed to parse reaction event", "error", err)
		return
	}

	r.mu.Lock()
	analysisID, ok := r.pending[evt.MessageTS]
	r.mu.Unlock()
	if !ok {
		return
	}

	var rating int
	switch slack.ParseReaction(evt.Reaction) {
	case slack.VerdictHelpful:
		rating = 5
	case slack.VerdictNotHelpful:
		rating = 1
	default:
		r.logger.Debug("ignoring reaction", "reaction", evt.Reaction, "ts", evt.MessageTS)
		return
	}

	entry, err := r.svc.Submit(ctx, Submission{
		Username:   "slack:" + evt.UserID,
		Rating:     rating,
		AnalysisID: analysisID,
		Source:     SourceSlack,
	})
	if err != nil {
		r.logger.Error("failed to record slack feedback", "analysis_id", analysisID, "error", err)
		return
	}

	if err := r.poster.PostThread(ctx, evt.MessageTS, "Feedback recorded, thanks."); err != nil {
		r.logger.Warn("failed to acknowledge reaction", "feedback_id", entry.ID, "error", err)
	}
}
