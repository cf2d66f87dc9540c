package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/clerk/internal/llm"
	"github.com/MikeSquared-Agency/clerk/internal/memory"
)

type Task int

const (
	Analysis Task = iota
	Negotiation
	Mediation
)

func (t Task) String() string {
	switch t {
	case Analysis:
		return "analysis"
	case Negotiation:
		return "negotiation"
	case Mediation:
		return "mediation"
	default:
		return fmt.Sprintf("task(%d)", int(t))
	}
}

const (
	DefaultTurns = 4
	MinTurns     = 2
	MaxTurns     = 10
)

// ClampTurns maps a requested negotiation length into the supported range.
// Zero selects DefaultTurns.
func ClampTurns(n int) int {
	switch {
	case n == 0:
		return DefaultTurns
	case n < MinTurns:
		return MinTurns
	case n > MaxTurns:
		return MaxTurns
	}
	return n
}

// Inputs carries the task-specific user content.
type Inputs struct {
	Clause   string
	Position string
	Turns    int
	PartyA   string
	PartyB   string
}

// Jurisdiction is the legal system the model is asked to apply.
type Jurisdiction struct {
	Name     string
	Statutes []string
}

// Kenya is the default jurisdiction.
var Kenya = Jurisdiction{
	Name: "Kenya",
	Statutes: []string{
		"Employment Act (Kenya)",
		"Data Protection Act 2019",
		"Companies Act 2015",
		"Arbitration Act (Kenya) and ADR principles",
	},
}

// JurisdictionFor returns the built-in statute list for a known name, or a
// jurisdiction with no statute list otherwise.
func JurisdictionFor(name string) Jurisdiction {
	if name == "" || strings.EqualFold(name, Kenya.Name) {
		return Kenya
	}
	return Jurisdiction{Name: name}
}

// Builder assembles the message sequence for a task. It holds no mutable
// state and the same inputs always produce the same messages.
type Builder struct {
	jurisdiction Jurisdiction
}

func New(j Jurisdiction) *Builder {
	return &Builder{jurisdiction: j}
}

// Build returns system instruction, worked example, the user request and,
// when fragments is non-empty, a trailing context message.
func (b *Builder) Build(task Task, in Inputs, fragments []memory.Fragment) []llm.Message {
	exampleIn, exampleOut := example(task)

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: b.System(task)},
		{Role: llm.RoleUser, Content: exampleIn},
		{Role: llm.RoleAssistant, Content: exampleOut},
		{Role: llm.RoleUser, Content: userContent(task, in)},
	}
	if len(fragments) > 0 {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: contextBlock(fragments)})
	}
	return msgs
}

// System returns the system instruction for task.
func (b *Builder) System(task Task) string {
	var role string
	switch task {
	case Negotiation:
		role = negotiationRole
	case Mediation:
		role = mediationRole
	default:
		role = analysisRole
	}

	var sb strings.Builder
	sb.WriteString(role)
	sb.WriteString("\n\n")
	sb.WriteString(b.lawContext())
	sb.WriteString("\n\n")
	sb.WriteString(reasoningPolicy)
	sb.WriteString("\n\n")
	sb.WriteString(outputPolicy)
	return sb.String()
}

func (b *Builder) lawContext() string {
	if len(b.jurisdiction.Statutes) == 0 {
		return fmt.Sprintf("Interpret every clause under the law of %s.", b.jurisdiction.Name)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Interpret every clause under the law of %s, including:", b.jurisdiction.Name)
	for _, s := range b.jurisdiction.Statutes {
		sb.WriteString("\n- ")
		sb.WriteString(s)
	}
	return sb.String()
}

func example(task Task) (string, string) {
	switch task {
	case Negotiation:
		return negotiationExampleInput, negotiationExampleOutput
	case Mediation:
		return mediationExampleInput, mediationExampleOutput
	default:
		return analysisExampleInput, analysisExampleOutput
	}
}

func userContent(task Task, in Inputs) string {
	switch task {
	case Negotiation:
		return fmt.Sprintf("CLAUSE:\n%s\n\nCOUNTERPARTY POSITION:\n%s\n\nTURNS:\n%d",
			in.Clause, in.Position, ClampTurns(in.Turns))
	case Mediation:
		return fmt.Sprintf("PARTY A:\n%s\n\nPARTY B:\n%s", in.PartyA, in.PartyB)
	default:
		return "CLAUSE TO ANALYSE:\n" + in.Clause
	}
}

func contextBlock(fragments []memory.Fragment) string {
	var sb strings.Builder
	sb.WriteString("PRIOR RELATED CONTEXT (supportive, not authoritative; rely on the clause itself first):")
	for i, f := range fragments {
		fmt.Fprintf(&sb, "\n\n[%d] %s", i+1, strings.TrimSpace(f.Text))
		if meta := formatMetadata(f.Metadata); meta != "" {
			sb.WriteString("\n    ")
			sb.WriteString(meta)
		}
	}
	return sb.String()
}

func formatMetadata(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
