// Package report renders analysis and workflow results as Markdown.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/clerk/internal/normalize"
	"github.com/MikeSquared-Agency/clerk/internal/processor"
)

const (
	previewLimit = 800
	clauseLimit  = 550
	titleLimit   = 80
)

// Analysis renders a full analysis report: title, generation time, a
// preview of the contract, then one section per clause.
func Analysis(title string, res *processor.AnalysisResult, generated time.Time) string {
	var sb strings.Builder

	if title == "" {
		title = "Contract analysis"
	}
	fmt.Fprintf(&sb, "# %s\n\n", truncate(title, titleLimit))
	fmt.Fprintf(&sb, "_Generated: %s UTC_\n\n", generated.UTC().Format(time.RFC3339))

	if res.Partial {
		fmt.Fprintf(&sb, "> %d of %d clauses have no structured result.\n\n", res.Unparsed(), len(res.Clauses))
	}

	sb.WriteString("## Contract preview\n\n")
	sb.WriteString(flatten(truncate(res.Document, previewLimit)))
	sb.WriteString("\n\n")

	if len(res.Clauses) == 0 {
		sb.WriteString("_No clauses long enough to analyze._\n")
		return sb.String()
	}

	for _, c := range res.Clauses {
		fmt.Fprintf(&sb, "## Clause %d\n\n", c.Clause.Index)
		sb.WriteString("> ")
		sb.WriteString(flatten(truncate(c.Clause.Text, clauseLimit)))
		sb.WriteString("\n\n")
		writeOutcome(&sb, c.Analysis)

		if len(c.Sources) > 0 {
			ids := make([]string, len(c.Sources))
			for i, f := range c.Sources {
				ids[i] = fmt.Sprintf("`%s`", f.ID)
			}
			fmt.Fprintf(&sb, "_Context: %s_\n\n", strings.Join(ids, ", "))
		}
	}
	return sb.String()
}

// Workflow renders a negotiation or mediation result.
func Workflow(res *processor.WorkflowResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", titleCase(res.Workflow))
	writeOutcome(&sb, res.Outcome)
	return sb.String()
}

func writeOutcome(sb *strings.Builder, o normalize.Outcome) {
	switch o := o.(type) {
	case normalize.Parsed:
		switch r := o.Record.(type) {
		case normalize.Analysis:
			writeAnalysis(sb, r)
		case normalize.Negotiation:
			writeNegotiation(sb, r)
		case normalize.Mediation:
			writeMediation(sb, r)
		}
	case normalize.Unparsed:
		fmt.Fprintf(sb, "_No structured result (%s)._\n\n", o.Reason)
		if strings.TrimSpace(o.Raw) != "" {
			sb.WriteString("```\n")
			sb.WriteString(strings.TrimSpace(o.Raw))
			sb.WriteString("\n```\n\n")
		}
	}
}

func writeAnalysis(sb *strings.Builder, r normalize.Analysis) {
	field(sb, "Summary", r.Issue)
	list(sb, "Risks", r.Risks)
	field(sb, "Suggested revision", r.Revision)
	field(sb, "Rationale", r.Rationale)
	list(sb, "Legal references", r.LegalRefs)
}

func writeNegotiation(sb *strings.Builder, r normalize.Negotiation) {
	if len(r.Dialogue) > 0 {
		sb.WriteString("**Dialogue**\n\n")
		for _, t := range r.Dialogue {
			fmt.Fprintf(sb, "- **Party %s:** %s\n", t.Party, t.Text)
		}
		sb.WriteString("\n")
	}
	field(sb, "Proposed revision", r.ProposedRevision)
	list(sb, "Trade-offs", r.Tradeoffs)
	field(sb, "Justification", r.Justification)
	list(sb, "Legal references", r.LegalRefs)
}

func writeMediation(sb *strings.Builder, r normalize.Mediation) {
	field(sb, "Neutral summary", r.NeutralSummary)
	list(sb, "Interests of party A", r.InterestsPartyA)
	list(sb, "Interests of party B", r.InterestsPartyB)
	field(sb, "Evaluation", r.Evaluation)
	field(sb, "Compromise", r.Compromise)
}

func field(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "**%s:** %s\n\n", label, value)
}

func list(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "**%s**\n\n", label)
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
	sb.WriteString("\n")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
