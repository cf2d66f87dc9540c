package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/clerk/internal/clause"
	"github.com/MikeSquared-Agency/clerk/internal/hermes"
	"github.com/MikeSquared-Agency/clerk/internal/memory"
	"github.com/MikeSquared-Agency/clerk/internal/normalize"
	"github.com/MikeSquared-Agency/clerk/internal/prompt"
	"github.com/MikeSquared-Agency/clerk/internal/slack"
	"github.com/MikeSquared-Agency/clerk/internal/store"
)

// ClauseAnalysis is the outcome for one clause. Analysis is never nil.
type ClauseAnalysis struct {
	Clause   clause.Clause     `json:"clause"`
	Analysis normalize.Outcome `json:"analysis"`
	Sources  []memory.Fragment `json:"sources"`
}

type AnalysisResult struct {
	ID        uuid.UUID        `json:"id"`
	Document  string           `json:"-"`
	Clauses   []ClauseAnalysis `json:"clauses"`
	Partial   bool             `json:"partial"`
	CreatedAt time.Time        `json:"created_at"`
}

// Unparsed counts clauses without a record.
func (r *AnalysisResult) Unparsed() int {
	n := 0
	for _, c := range r.Clauses {
		if !normalize.IsParsed(c.Analysis) {
			n++
		}
	}
	return n
}

// Analyze segments text into clauses and analyzes each one on a bounded
// worker pool. Results are in document order. Clauses still pending when
// the deadline passes are reported as timed out, and clauses whose model
// call failed are reported as capability_unavailable. The call fails only
// when the input is empty or every clause hit an unavailable model.
func (p *Processor) Analyze(ctx context.Context, text string) (*AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document text is empty", ErrInvalidInput)
	}
	start := time.Now()

	runCtx, cancel := p.withTimeout(ctx)
	defer cancel()

	clauses := clause.Segment(text, p.opts.MinClauseLength)
	results := make([]ClauseAnalysis, len(clauses))
	errs := make([]error, len(clauses))
	for i, c := range clauses {
		results[i] = ClauseAnalysis{
			Clause:   c,
			Analysis: normalize.Unparsed{Reason: normalize.ReasonTimeout},
			Sources:  []memory.Fragment{},
		}
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, c := range clauses {
		if runCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i], errs[i] = p.analyzeClause(runCtx, c)
			return nil
		})
	}
	_ = g.Wait()

	res := &AnalysisResult{
		ID:        p.newID(),
		Document:  text,
		Clauses:   results,
		CreatedAt: p.now(),
	}
	unparsed := res.Unparsed()
	res.Partial = unparsed > 0

	if err := allUnavailable(results, errs); err != nil {
		p.logger.Error("analysis failed, model unavailable for every clause",
			"clauses", len(results), "error", err)
		return nil, fmt.Errorf("analyze %d clause(s): %w", len(results), err)
	}

	p.logger.Info("analysis completed",
		"analysis_id", res.ID,
		"clauses", len(results),
		"unparsed", unparsed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	p.afterAnalysis(ctx, res, time.Since(start))
	return res, nil
}

func (p *Processor) analyzeClause(ctx context.Context, c clause.Clause) (ClauseAnalysis, error) {
	frags := p.mem.QueryAll(ctx, p.opts.AnalysisCollections, c.Text, p.opts.TopK)
	if frags == nil {
		frags = []memory.Fragment{}
	}
	out := ClauseAnalysis{Clause: c, Sources: frags}

	msgs := p.builder.Build(prompt.Analysis, prompt.Inputs{Clause: c.Text}, frags)
	raw, err := p.invoker.Invoke(ctx, p.request(msgs, normalize.KindAnalysis))
	if err != nil {
		reason := normalize.ReasonCapabilityUnavailable
		if ctx.Err() != nil || isContextErr(err) {
			reason = normalize.ReasonTimeout
		}
		p.logger.Warn("clause analysis failed", "clause", c.Index, "reason", reason, "error", err)
		out.Analysis = normalize.Unparsed{Reason: reason, Detail: err.Error()}
		return out, err
	}

	out.Analysis = p.normalizer.Normalize(ctx, raw, normalize.KindAnalysis)
	if u, ok := out.Analysis.(normalize.Unparsed); ok {
		p.logger.Warn("clause output not normalized", "clause", c.Index, "reason", u.Reason)
	}
	return out, nil
}

// allUnavailable returns the last model error when every clause failed with
// capability_unavailable, and nil otherwise.
func allUnavailable(results []ClauseAnalysis, errs []error) error {
	if len(results) == 0 {
		return nil
	}
	var last error
	for i, r := range results {
		u, ok := r.Analysis.(normalize.Unparsed)
		if !ok || u.Reason != normalize.ReasonCapabilityUnavailable {
			return nil
		}
		last = errs[i]
	}
	if last == nil {
		return ErrCapabilityUnavailable
	}
	return last
}

// afterAnalysis runs best-effort bookkeeping. Failures are logged only.
func (p *Processor) afterAnalysis(ctx context.Context, res *AnalysisResult, elapsed time.Duration) {
	sctx, cancel := p.sideEffectContext(ctx)
	defer cancel()

	if p.history != nil {
		if err := p.history.WriteAnalysis(sctx, historyRow(res)); err != nil {
			p.logger.Error("failed to persist analysis", "analysis_id", res.ID, "error", err)
		}
	}

	for _, c := range res.Clauses {
		parsed, ok := c.Analysis.(normalize.Parsed)
		if !ok {
			continue
		}
		rec, ok := parsed.Record.(normalize.Analysis)
		if !ok || rec.Issue == "" {
			continue
		}
		meta := map[string]any{
			"analysis_id": res.ID.String(),
			"issue":       rec.Issue,
		}
		if rec.Revision != "" {
			meta["revision"] = rec.Revision
		}
		id := res.ID.String() + "-" + strconv.Itoa(c.Clause.Index)
		if err := p.mem.Append(sctx, memory.CollectionClauses, id, c.Clause.Text, meta); err != nil {
			p.logger.Warn("failed to remember reviewed clause", "analysis_id", res.ID, "clause", c.Clause.Index, "error", err)
		}
	}

	if err := p.events.Publish(hermes.SubjectAnalysisCompleted, hermes.AnalysisCompleted{
		AnalysisID: res.ID.String(),
		Clauses:    len(res.Clauses),
		Unparsed:   res.Unparsed(),
		Partial:    res.Partial,
		DurationMS: elapsed.Milliseconds(),
	}); err != nil {
		p.logger.Warn("failed to publish analysis event", "analysis_id", res.ID, "error", err)
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyAnalysis(sctx, summarize(res)); err != nil {
			p.logger.Warn("failed to notify reviewers", "analysis_id", res.ID, "error", err)
		}
	}
}

func historyRow(res *AnalysisResult) store.AnalysisRow {
	row := store.AnalysisRow{
		ID:        res.ID,
		Document:  res.Document,
		Partial:   res.Partial,
		Unparsed:  res.Unparsed(),
		CreatedAt: res.CreatedAt,
		Clauses:   make([]store.ClauseRow, 0, len(res.Clauses)),
	}
	for _, c := range res.Clauses {
		cr := store.ClauseRow{Index: c.Clause.Index, Text: c.Clause.Text}
		switch o := c.Analysis.(type) {
		case normalize.Parsed:
			cr.Parsed = true
		case normalize.Unparsed:
			cr.Reason = string(o.Reason)
		}
		data, err := json.Marshal(c.Analysis)
		if err != nil {
			data = []byte(`{}`)
		}
		cr.Outcome = data
		row.Clauses = append(row.Clauses, cr)
	}
	return row
}

func summarize(res *AnalysisResult) slack.AnalysisSummary {
	s := slack.AnalysisSummary{
		AnalysisID: res.ID.String(),
		Clauses:    len(res.Clauses),
		Unparsed:   res.Unparsed(),
		Partial:    res.Partial,
	}
	for _, c := range res.Clauses {
		parsed, ok := c.Analysis.(normalize.Parsed)
		if !ok {
			continue
		}
		if rec, ok := parsed.Record.(normalize.Analysis); ok && rec.Issue != "" {
			s.Highlights = append(s.Highlights, slack.Highlight{Index: c.Clause.Index, Issue: rec.Issue})
		}
	}
	return s
}
