// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/MikeSquared-Agency/clerk/internal/llm"
)

// Reply is one scripted provider answer.
type Reply struct {
	Text string
	Err  error
}

// Provider answers requests with a fixed script, or with Func when set.
// It records every request it sees and is safe for concurrent use.
type Provider struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.Request

	// Func, when non-nil, takes precedence over the script.
	Func func(ctx context.Context, req llm.Request) (string, error)
}

// New returns a Provider that plays replies in order and then fails.
func New(replies ...Reply) *Provider {
	return &Provider{replies: replies}
}

func (p *Provider) Model() string { return "scripted" }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	fn := p.Func
	var r *Reply
	if fn == nil && len(p.replies) > 0 {
		r = &p.replies[0]
		p.replies = p.replies[1:]
	}
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if r == nil {
		return "", errors.New("script exhausted")
	}
	return r.Text, r.Err
}

// Calls returns the number of requests received.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns a copy of the requests received.
func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}
