package report

import (
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/clerk/internal/clause"
	"github.com/MikeSquared-Agency/clerk/internal/memory"
	"github.com/MikeSquared-Agency/clerk/internal/normalize"
	"github.com/MikeSquared-Agency/clerk/internal/processor"
)

var generated = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

func TestAnalysis(t *testing.T) {
	res := &processor.AnalysisResult{
		Document: "1. Payment due in 3 days.\n2. Confidentiality applies for 5 years.",
		Partial:  true,
		Clauses: []processor.ClauseAnalysis{
			{
				Clause: clause.Clause{Index: 1, Text: "Payment due in 3 days."},
				Analysis: normalize.Parsed{Record: normalize.Analysis{
					Issue:     "Very short payment window",
					Risks:     []string{"cash flow strain"},
					Revision:  "Payment due within 30 days.",
					LegalRefs: []string{"Law of Contract Act"},
				}},
				Sources: []memory.Fragment{{ID: "law-1"}},
			},
			{
				Clause:   clause.Clause{Index: 2, Text: "Confidentiality applies for 5 years."},
				Analysis: normalize.Unparsed{Raw: "Looks reasonable.", Reason: normalize.ReasonSchemaMismatch},
			},
		},
	}

	md := Analysis("Supply agreement", res, generated)

	checks := []string{
		"# Supply agreement",
		"_Generated: 2026-04-01T09:30:00Z UTC_",
		"1 of 2 clauses have no structured result",
		"1. Payment due in 3 days. 2. Confidentiality applies for 5 years.",
		"## Clause 1",
		"**Summary:** Very short payment window",
		"- cash flow strain",
		"**Suggested revision:** Payment due within 30 days.",
		"_Context: `law-1`_",
		"## Clause 2",
		"_No structured result (schema_mismatch)._",
		"```\nLooks reasonable.\n```",
	}
	for _, c := range checks {
		if !strings.Contains(md, c) {
			t.Errorf("report missing %q:\n%s", c, md)
		}
	}
}

func TestAnalysis_TruncatesPreviewAndClauses(t *testing.T) {
	long := strings.Repeat("word ", 400)
	res := &processor.AnalysisResult{
		Document: long,
		Clauses: []processor.ClauseAnalysis{{
			Clause:   clause.Clause{Index: 1, Text: long},
			Analysis: normalize.Unparsed{Reason: normalize.ReasonTimeout},
		}},
	}

	md := Analysis("", res, generated)

	if !strings.HasPrefix(md, "# Contract analysis\n") {
		t.Errorf("default title missing:\n%s", md[:40])
	}
	if strings.Contains(md, long[:900]) {
		t.Error("preview not truncated to 800 characters")
	}
	if !strings.Contains(md, "…") {
		t.Error("expected ellipsis on truncated text")
	}
	if strings.Contains(md, "```") {
		t.Error("empty raw output should not render a code block")
	}
}

func TestAnalysis_NoClauses(t *testing.T) {
	md := Analysis("Short", &processor.AnalysisResult{Document: "tiny"}, generated)

	if !strings.Contains(md, "No clauses long enough to analyze") {
		t.Errorf("unexpected report:\n%s", md)
	}
}

func TestWorkflow(t *testing.T) {
	res := &processor.WorkflowResult{
		Workflow: "negotiation",
		Outcome: normalize.Parsed{Record: normalize.Negotiation{
			Dialogue:         []normalize.Turn{{Party: "A", Text: "30 days"}, {Party: "B", Text: "14 days"}},
			ProposedRevision: "21 days",
			Tradeoffs:        []string{"early payment discount"},
		}},
	}

	md := Workflow(res)

	for _, c := range []string{"# Negotiation", "- **Party A:** 30 days", "**Proposed revision:** 21 days", "- early payment discount"} {
		if !strings.Contains(md, c) {
			t.Errorf("missing %q:\n%s", c, md)
		}
	}

	med := Workflow(&processor.WorkflowResult{
		Workflow: "mediation",
		Outcome:  normalize.Parsed{Record: normalize.Mediation{NeutralSummary: "n", InterestsPartyB: []string{"speed"}, Compromise: "c"}},
	})
	for _, c := range []string{"# Mediation", "**Neutral summary:** n", "**Interests of party B**", "**Compromise:** c"} {
		if !strings.Contains(med, c) {
			t.Errorf("missing %q:\n%s", c, med)
		}
	}
}
