package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/clerk/internal/hermes"
	"github.com/MikeSquared-Agency/clerk/internal/memory"
	"github.com/MikeSquared-Agency/clerk/internal/normalize"
	"github.com/MikeSquared-Agency/clerk/internal/prompt"
)

type NegotiationRequest struct {
	Clause   string `json:"clause"`
	Position string `json:"position"`
	Turns    int    `json:"turns,omitempty"`
}

type MediationRequest struct {
	PartyA string `json:"a"`
	PartyB string `json:"b"`
}

// WorkflowResult is the outcome of a negotiation or mediation run.
type WorkflowResult struct {
	ID       uuid.UUID
	Workflow string
	Outcome  normalize.Outcome
	Sources  []memory.Fragment
}

// MarshalJSON renders the record under "result" when parsed, and the raw
// model text with the failure reason otherwise.
func (r WorkflowResult) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":       r.ID,
		"workflow": r.Workflow,
	}
	sources := r.Sources
	if sources == nil {
		sources = []memory.Fragment{}
	}
	out["sources"] = sources

	switch o := r.Outcome.(type) {
	case normalize.Parsed:
		out["parsed"] = true
		out["result"] = o
		out["strategy"] = o.Strategy
	case normalize.Unparsed:
		out["parsed"] = false
		out["result"] = o.Raw
		out["error"] = o.Reason
	}
	return json.Marshal(out)
}

// Negotiate simulates a negotiation over one clause against the
// counterparty's position.
func (p *Processor) Negotiate(ctx context.Context, req NegotiationRequest) (*WorkflowResult, error) {
	if strings.TrimSpace(req.Clause) == "" {
		return nil, fmt.Errorf("%w: clause is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Position) == "" {
		return nil, fmt.Errorf("%w: position is required", ErrInvalidInput)
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	frags := p.mem.QueryAll(ctx, p.opts.NegotiationCollections, req.Clause, p.opts.TopK)
	in := prompt.Inputs{Clause: req.Clause, Position: req.Position, Turns: prompt.ClampTurns(req.Turns)}
	return p.runWorkflow(ctx, prompt.Negotiation, normalize.KindNegotiation, in, frags)
}

// Mediate produces a neutral assessment of two parties' positions.
func (p *Processor) Mediate(ctx context.Context, req MediationRequest) (*WorkflowResult, error) {
	if strings.TrimSpace(req.PartyA) == "" || strings.TrimSpace(req.PartyB) == "" {
		return nil, fmt.Errorf("%w: both party positions are required", ErrInvalidInput)
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	in := prompt.Inputs{PartyA: req.PartyA, PartyB: req.PartyB}
	return p.runWorkflow(ctx, prompt.Mediation, normalize.KindMediation, in, nil)
}

func (p *Processor) runWorkflow(ctx context.Context, task prompt.Task, kind normalize.Kind, in prompt.Inputs, frags []memory.Fragment) (*WorkflowResult, error) {
	msgs := p.builder.Build(task, in, frags)
	raw, err := p.invoker.Invoke(ctx, p.request(msgs, kind))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", task, err)
	}

	res := &WorkflowResult{
		ID:       p.newID(),
		Workflow: task.String(),
		Outcome:  p.normalizer.Normalize(ctx, raw, kind),
		Sources:  frags,
	}

	evt := hermes.WorkflowCompleted{ID: res.ID.String(), Workflow: res.Workflow}
	if parsed, ok := res.Outcome.(normalize.Parsed); ok {
		evt.Parsed = true
		evt.Strategy = string(parsed.Strategy)
	}
	subject := hermes.SubjectNegotiationComplete
	if task == prompt.Mediation {
		subject = hermes.SubjectMediationComplete
	}
	if err := p.events.Publish(subject, evt); err != nil {
		p.logger.Warn("failed to publish workflow event", "workflow", res.Workflow, "error", err)
	}

	p.logger.Info("workflow completed", "workflow", res.Workflow, "id", res.ID, "parsed", evt.Parsed)
	return res, nil
}
