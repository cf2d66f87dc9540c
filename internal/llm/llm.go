package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Roles used in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrCapabilityUnavailable is returned once every attempt to reach the model
// provider has failed.
var ErrCapabilityUnavailable = errors.New("model capability unavailable")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call. Schema, when set, is a JSON schema hint
// that providers supporting structured output pass through.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	SchemaName  string    `json:"schema_name,omitempty"`
	Schema      any       `json:"schema,omitempty"`
}

// Provider is a text-generation backend.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// InvocationError reports a call that failed after all retry attempts.
type InvocationError struct {
	Attempts int
	Last     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("model invocation failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *InvocationError) Unwrap() []error {
	return []error{ErrCapabilityUnavailable, e.Last}
}

// SplitSystem separates system messages, joined with blank lines, from the
// conversational turns. Providers with a dedicated system field use it.
func SplitSystem(msgs []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// GenerateSchema reflects a JSON schema for v. Additional properties are
// allowed so models may return fields beyond the declared ones.
func GenerateSchema(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}
