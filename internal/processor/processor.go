package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/clerk/internal/clause"
	"github.com/MikeSquared-Agency/clerk/internal/hermes"
	"github.com/MikeSquared-Agency/clerk/internal/llm"
	"github.com/MikeSquared-Agency/clerk/internal/memory"
	"github.com/MikeSquared-Agency/clerk/internal/normalize"
	"github.com/MikeSquared-Agency/clerk/internal/prompt"
	"github.com/MikeSquared-Agency/clerk/internal/slack"
	"github.com/MikeSquared-Agency/clerk/internal/store"
)

var (
	// ErrInvalidInput reports an empty document or a missing required field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCapabilityUnavailable reports a model that failed after all retries.
	ErrCapabilityUnavailable = llm.ErrCapabilityUnavailable
)

// Invoker sends one completion request with retries.
type Invoker interface {
	Invoke(ctx context.Context, req llm.Request) (string, error)
}

// HistoryWriter persists finished analyses.
type HistoryWriter interface {
	WriteAnalysis(ctx context.Context, a store.AnalysisRow) error
}

// Publisher emits completion events.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier forwards analysis digests to human reviewers.
type Notifier interface {
	NotifyAnalysis(ctx context.Context, s slack.AnalysisSummary) error
}

type Options struct {
	MinClauseLength int
	TopK            int
	Workers         int
	// Timeout bounds a whole Analyze, Negotiate or Mediate call. Zero
	// leaves the caller's context in charge.
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int

	AnalysisCollections    []string
	NegotiationCollections []string

	// SideEffectTimeout bounds history writes, events and notifications,
	// which run after the caller's context may already be done.
	SideEffectTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinClauseLength:        clause.DefaultMinLength,
		TopK:                   4,
		Workers:                4,
		Timeout:                2 * time.Minute,
		Temperature:            0.3,
		MaxTokens:              1500,
		AnalysisCollections:    []string{memory.CollectionLaw, memory.CollectionFeedback, memory.CollectionClauses},
		NegotiationCollections: []string{memory.CollectionNegotiations},
		SideEffectTimeout:      10 * time.Second,
	}
}

// Processor runs the analysis, negotiation and mediation workflows. It holds
// no per-request state and is safe for concurrent use.
type Processor struct {
	builder    *prompt.Builder
	mem        *memory.Client
	invoker    Invoker
	normalizer *normalize.Normalizer
	opts       Options
	logger     *slog.Logger

	history  HistoryWriter
	events   Publisher
	notifier Notifier

	now   func() time.Time
	newID func() uuid.UUID
}

func New(builder *prompt.Builder, mem *memory.Client, inv Invoker, norm *normalize.Normalizer, opts Options, logger *slog.Logger) *Processor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = 10 * time.Second
	}
	return &Processor{
		builder:    builder,
		mem:        mem,
		invoker:    inv,
		normalizer: norm,
		opts:       opts,
		logger:     logger,
		events:     hermes.Discard{},
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.New,
	}
}

// SetHistory enables persisting each analysis.
func (p *Processor) SetHistory(h HistoryWriter) { p.history = h }

// SetPublisher enables completion events.
func (p *Processor) SetPublisher(pub Publisher) {
	if pub == nil {
		pub = hermes.Discard{}
	}
	p.events = pub
}

// SetNotifier enables posting analysis digests for review.
func (p *Processor) SetNotifier(n Notifier) { p.notifier = n }

func (p *Processor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.Timeout)
}

func (p *Processor) request(msgs []llm.Message, kind normalize.Kind) llm.Request {
	return llm.Request{
		Messages:    msgs,
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
		SchemaName:  kind.String(),
		Schema:      kind.Schema(),
	}
}

// sideEffectContext detaches from the request so a cancelled caller does not
// abort bookkeeping for work that already finished.
func (p *Processor) sideEffectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.opts.SideEffectTimeout)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
