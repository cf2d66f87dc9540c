package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/clerk/internal/llm"
)

// Repairer asks a model to rewrite malformed output as strict JSON.
type Repairer interface {
	Repair(ctx context.Context, raw string, kind Kind) (string, error)
}

const repairPrompt = `Convert the text below into STRICT JSON with exactly these keys: %s.
Use this JSON schema:
%s

Return ONLY the JSON object. No explanations, no markdown fences.

Text:
%s`

// ModelRepairer makes a single, unretried provider call per repair.
type ModelRepairer struct {
	provider  llm.Provider
	maxTokens int
}

func NewModelRepairer(provider llm.Provider, maxTokens int) *ModelRepairer {
	return &ModelRepairer{provider: provider, maxTokens: maxTokens}
}

func (r *ModelRepairer) Repair(ctx context.Context, raw string, kind Kind) (string, error) {
	req := llm.Request{
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf(repairPrompt, strings.Join(kind.Fields(), ", "), kind.SchemaJSON(), raw),
		}},
		Temperature: 0,
		MaxTokens:   r.maxTokens,
		SchemaName:  kind.String(),
		Schema:      kind.Schema(),
	}
	text, err := r.provider.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("repair call: %w", err)
	}
	return text, nil
}
