package prompt

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/clerk/internal/llm"
	"github.com/MikeSquared-Agency/clerk/internal/memory"
)

func TestBuild_AnalysisShape(t *testing.T) {
	b := New(Kenya)
	msgs := b.Build(Analysis, Inputs{Clause: "The tenant pays rent on the 5th."}, nil)

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages without context, got %d", len(msgs))
	}
	wantRoles := []string{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleUser}
	for i, m := range msgs {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d role = %s, want %s", i, m.Role, wantRoles[i])
		}
	}
	if !strings.Contains(msgs[0].Content, "Data Protection Act 2019") {
		t.Error("system prompt missing statute list")
	}
	if !strings.HasSuffix(msgs[3].Content, "The tenant pays rent on the 5th.") {
		t.Errorf("user message = %q", msgs[3].Content)
	}
}

func TestBuild_ExamplesAreValidJSON(t *testing.T) {
	b := New(Kenya)
	for _, task := range []Task{Analysis, Negotiation, Mediation} {
		msgs := b.Build(task, Inputs{}, nil)
		var v map[string]any
		if err := json.Unmarshal([]byte(msgs[2].Content), &v); err != nil {
			t.Errorf("%s example output is not JSON: %v", task, err)
		}
	}
}

func TestBuild_AppendsContextLast(t *testing.T) {
	b := New(Kenya)
	frags := []memory.Fragment{
		{ID: "ea-35", Text: "Termination requires notice.", Metadata: map[string]any{"title": "Employment Act", "section_no": "35"}, Score: 0.1},
		{ID: "fb-2", Text: "Users liked concise revisions.", Score: 0.3},
	}
	msgs := b.Build(Analysis, Inputs{Clause: "x"}, frags)

	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages with context, got %d", len(msgs))
	}
	last := msgs[4]
	if last.Role != llm.RoleUser {
		t.Errorf("context role = %s", last.Role)
	}
	if !strings.HasPrefix(last.Content, "PRIOR RELATED CONTEXT") {
		t.Errorf("context header missing: %q", last.Content)
	}
	first := strings.Index(last.Content, "Termination requires notice.")
	second := strings.Index(last.Content, "Users liked concise revisions.")
	if first < 0 || second < 0 || first > second {
		t.Errorf("fragments out of order: %q", last.Content)
	}
	if !strings.Contains(last.Content, "(section_no=35, title=Employment Act)") {
		t.Errorf("metadata not rendered in sorted order: %q", last.Content)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := New(Kenya)
	in := Inputs{Clause: "c", Position: "p", Turns: 3}
	frags := []memory.Fragment{{Text: "t", Metadata: map[string]any{"b": 1, "a": 2, "c": 3}}}

	first := b.Build(Negotiation, in, frags)
	for i := 0; i < 20; i++ {
		if !reflect.DeepEqual(first, b.Build(Negotiation, in, frags)) {
			t.Fatal("build is not deterministic")
		}
	}
}

func TestBuild_NegotiationTurns(t *testing.T) {
	b := New(Kenya)
	msgs := b.Build(Negotiation, Inputs{Clause: "c", Position: "p"}, nil)
	if !strings.HasSuffix(msgs[3].Content, "TURNS:\n4") {
		t.Errorf("expected default of 4 turns, got %q", msgs[3].Content)
	}
}

func TestBuild_MediationContent(t *testing.T) {
	b := New(Kenya)
	msgs := b.Build(Mediation, Inputs{PartyA: "unpaid wages", PartyB: "no approval"}, nil)
	if msgs[3].Content != "PARTY A:\nunpaid wages\n\nPARTY B:\nno approval" {
		t.Errorf("unexpected mediation content %q", msgs[3].Content)
	}
	if !strings.Contains(msgs[0].Content, "neutral mediator") {
		t.Error("mediation system prompt missing role")
	}
}

func TestClampTurns(t *testing.T) {
	cases := map[int]int{0: 4, 1: 2, -3: 2, 2: 2, 7: 7, 10: 10, 50: 10}
	for in, want := range cases {
		if got := ClampTurns(in); got != want {
			t.Errorf("ClampTurns(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestJurisdictionFor(t *testing.T) {
	if got := JurisdictionFor("kenya"); len(got.Statutes) == 0 {
		t.Error("expected built-in statutes for kenya")
	}
	b := New(JurisdictionFor("Uganda"))
	if !strings.Contains(b.System(Analysis), "under the law of Uganda.") {
		t.Error("expected generic jurisdiction line")
	}
}
