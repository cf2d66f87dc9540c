package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingRepairer struct {
	reply string
	err   error
	calls int
	kinds []Kind
}

func (r *countingRepairer) Repair(_ context.Context, _ string, kind Kind) (string, error) {
	r.calls++
	r.kinds = append(r.kinds, kind)
	return r.reply, r.err
}

func TestNormalize_DirectParse(t *testing.T) {
	n := New(nil, discardLogger())
	out := n.Normalize(context.Background(), `{"issue":"x","revision":"y"}`, KindAnalysis)

	p, ok := out.(Parsed)
	require.True(t, ok, "expected Parsed, got %#v", out)
	assert.Equal(t, StrategyDirect, p.Strategy)
	assert.Equal(t, Analysis{Issue: "x", Revision: "y"}, p.Record)
}

func TestNormalize_ProseWrappedUsesSubstring(t *testing.T) {
	rep := &countingRepairer{}
	n := New(rep, discardLogger())
	out := n.Normalize(context.Background(), `Sure! Here's the JSON: {"issue":"x","revision":"y"}`, KindAnalysis)

	p, ok := out.(Parsed)
	require.True(t, ok)
	assert.Equal(t, StrategySubstring, p.Strategy)
	assert.Equal(t, Analysis{Issue: "x", Revision: "y"}, p.Record)
	assert.Zero(t, rep.calls)
}

func TestNormalize_FencedEqualsBare(t *testing.T) {
	n := New(nil, discardLogger())
	bare := `{"neutral_summary":"s","interests_party_a":["pay"],"compromise":"half"}`

	for _, fenced := range []string{
		"```json\n" + bare + "\n```",
		"```\n" + bare + "\n```",
		"  ```JSON\n" + bare + "\n```  \n",
		"```json " + bare + "```",
	} {
		want := n.Normalize(context.Background(), bare, KindMediation).(Parsed)
		got, ok := n.Normalize(context.Background(), fenced, KindMediation).(Parsed)
		require.True(t, ok, "fenced input not parsed: %q", fenced)
		assert.Equal(t, StrategyFence, got.Strategy)
		if diff := cmp.Diff(want.Record, got.Record); diff != "" {
			t.Errorf("fenced record differs (-bare +fenced):\n%s", diff)
		}
	}
}

func TestNormalize_ProseCallsRepairOnceThenGivesUp(t *testing.T) {
	rep := &countingRepairer{reply: "I am sorry, I cannot help with that."}
	n := New(rep, discardLogger())
	raw := "The clause looks fine to me, no changes needed."

	out := n.Normalize(context.Background(), raw, KindAnalysis)

	u, ok := out.(Unparsed)
	require.True(t, ok)
	assert.Equal(t, raw, u.Raw)
	assert.Equal(t, ReasonSchemaMismatch, u.Reason)
	assert.Equal(t, 1, rep.calls)
	assert.Equal(t, []Kind{KindAnalysis}, rep.kinds)
}

func TestNormalize_RepairSucceeds(t *testing.T) {
	rep := &countingRepairer{reply: `{"proposed_revision":"14 days","justification":"balance"}`}
	n := New(rep, discardLogger())

	out := n.Normalize(context.Background(), "Party A wants 3 days, B wants 30; settle on 14.", KindNegotiation)

	p, ok := out.(Parsed)
	require.True(t, ok)
	assert.Equal(t, StrategyRepair, p.Strategy)
	assert.Equal(t, Negotiation{ProposedRevision: "14 days", Justification: "balance"}, p.Record)
	assert.Equal(t, 1, rep.calls)
}

func TestNormalize_RepairReplyIsOnlyParsedDirectly(t *testing.T) {
	rep := &countingRepairer{reply: "```json\n{\"issue\":\"x\"}\n```"}
	n := New(rep, discardLogger())

	out := n.Normalize(context.Background(), "no json here", KindAnalysis)
	assert.IsType(t, Unparsed{}, out)
	assert.Equal(t, 1, rep.calls)
}

func TestNormalize_RepairErrorIsUnparsed(t *testing.T) {
	rep := &countingRepairer{err: errors.New("provider down")}
	n := New(rep, discardLogger())

	out := n.Normalize(context.Background(), "prose", KindMediation)
	u, ok := out.(Unparsed)
	require.True(t, ok)
	assert.Equal(t, ReasonSchemaMismatch, u.Reason)
	assert.Contains(t, u.Detail, "provider down")
}

type blockingRepairer struct{}

func (blockingRepairer) Repair(ctx context.Context, _ string, _ Kind) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestNormalize_RepairDeadlineIsTimeout(t *testing.T) {
	n := New(blockingRepairer{}, discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := n.Normalize(ctx, "the model answered in prose", KindAnalysis)
	u, ok := out.(Unparsed)
	require.True(t, ok)
	assert.Equal(t, ReasonTimeout, u.Reason)
	assert.Equal(t, "the model answered in prose", u.Raw)
}

func TestNormalize_EmptyInputSkipsRepair(t *testing.T) {
	rep := &countingRepairer{}
	n := New(rep, discardLogger())

	out := n.Normalize(context.Background(), "   ", KindAnalysis)
	assert.IsType(t, Unparsed{}, out)
	assert.Zero(t, rep.calls)
}

func TestNormalize_UnrecognizedObjectIsMismatch(t *testing.T) {
	n := New(nil, discardLogger())
	for _, raw := range []string{`{}`, `{"error":"cannot answer"}`, `"issue"`, `null`, `42`} {
		out := n.Normalize(context.Background(), raw, KindAnalysis)
		assert.IsType(t, Unparsed{}, out, "input %q", raw)
	}
}

func TestNormalize_NeverPanics(t *testing.T) {
	n := New(&countingRepairer{reply: "{"}, discardLogger())
	inputs := []string{
		"", "{", "}", "}{", "{{{{", "```", "``````", "```json", `{"issue":`, `{"issue": "x"} trailing {`,
		"\x00\xff", `{"risk": {"nested": [1, 2, {"deep": null}]}}`, `{"dialogue": 42}`,
	}
	for _, kind := range []Kind{KindAnalysis, KindNegotiation, KindMediation} {
		for _, raw := range inputs {
			assert.NotPanics(t, func() {
				out := n.Normalize(context.Background(), raw, kind)
				assert.NotNil(t, out)
			}, "input %q", raw)
		}
	}
}

func TestNormalize_SynonymPriority(t *testing.T) {
	n := New(nil, discardLogger())
	raw := `{"suggested_revision":"loser","revision":"winner","clause_summary":"summary wins when issue absent","issues":["a","b"]}`

	p := n.Normalize(context.Background(), raw, KindAnalysis).(Parsed)
	r := p.Record.(Analysis)

	assert.Equal(t, "winner", r.Revision)
	assert.Equal(t, "summary wins when issue absent", r.Issue)
	assert.Equal(t, []string{"a", "b"}, r.Risks)
	assert.Equal(t, map[string]any{"suggested_revision": "loser"}, r.Extra)
}

func TestNormalize_KeysMatchIgnoringCaseAndSeparators(t *testing.T) {
	n := New(nil, discardLogger())
	raw := `{"Neutral Summary":"s","Interests-Party-A":["x"],"Proposed_Compromise":"c"}`

	p := n.Normalize(context.Background(), raw, KindMediation).(Parsed)
	assert.Equal(t, Mediation{NeutralSummary: "s", InterestsPartyA: []string{"x"}, Compromise: "c"}, p.Record)
}

func TestNormalize_UnknownKeysPreserved(t *testing.T) {
	n := New(nil, discardLogger())
	raw := `{"issue":"x","compliance_notes":["needs fair process"],"confidence":0.8}`

	r := n.Normalize(context.Background(), raw, KindAnalysis).(Parsed).Record.(Analysis)
	assert.Equal(t, []any{"needs fair process"}, r.Extra["compliance_notes"])
	assert.Equal(t, json.Number("0.8"), r.Extra["confidence"])
}

func TestNormalize_CaseVariantOfFieldSurvivesMarshal(t *testing.T) {
	n := New(nil, discardLogger())
	raw := `{"Revision":"upper","revision":"lower","issue":"x"}`

	r := n.Normalize(context.Background(), raw, KindAnalysis).(Parsed).Record.(Analysis)
	assert.Equal(t, "upper", r.Revision)
	assert.Equal(t, map[string]any{"revision_alt": "lower"}, r.Extra)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	var obj map[string]any
	require.NoError(t, json.Unmarshal(b, &obj))
	assert.Equal(t, "upper", obj["revision"])
	assert.Equal(t, "lower", obj["revision_alt"])

	again := n.Normalize(context.Background(), string(b), KindAnalysis).(Parsed).Record
	if diff := cmp.Diff(Record(r), again); diff != "" {
		t.Errorf("reparse mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshal_ExtraNamedLikeFieldIsNotOverwritten(t *testing.T) {
	rec := Mediation{
		Compromise: "split the overtime",
		Extra:      map[string]any{"compromise": "older draft", "compromise_alt": "kept"},
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(b, &obj))
	assert.Equal(t, map[string]any{
		"compromise":      "split the overtime",
		"compromise_alt":  "kept",
		"compromise_alt2": "older draft",
	}, obj)
}

func TestNormalize_Coercions(t *testing.T) {
	n := New(nil, discardLogger())
	raw := `{"issue":["first","second"],"risk":"single risk","legal_refs":"Employment Act s.35","rationale":12}`

	r := n.Normalize(context.Background(), raw, KindAnalysis).(Parsed).Record.(Analysis)
	assert.Equal(t, "first; second", r.Issue)
	assert.Equal(t, []string{"single risk"}, r.Risks)
	assert.Equal(t, []string{"Employment Act s.35"}, r.LegalRefs)
	assert.Equal(t, "12", r.Rationale)
}

func TestNormalize_DialogueForms(t *testing.T) {
	n := New(nil, discardLogger())
	want := []Turn{
		{Party: "A", Text: "We prefer 3 days."},
		{Party: "B", Text: "We need 30 days."},
		{Party: "A", Text: "14 days then."},
	}

	cases := map[string]string{
		"objects":     `{"dialogue":[{"party":"A","text":"We prefer 3 days."},{"speaker":"Party B","message":"We need 30 days."},{"party":"a","text":"14 days then."}]}`,
		"turn lines":  `{"negotiation":["Turn 1 - Party A: We prefer 3 days.","Turn 2 - Party B: We need 30 days.","Turn 3 - Party A: 14 days then."]}`,
		"alternating": `{"dialogue":["We prefer 3 days.","We need 30 days.","14 days then."]}`,
		"one string":  `{"dialogue":"Party A: We prefer 3 days.\nParty B: We need 30 days.\nParty A: 14 days then."}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			r := n.Normalize(context.Background(), raw, KindNegotiation).(Parsed).Record.(Negotiation)
			if diff := cmp.Diff(want, r.Dialogue); diff != "" {
				t.Errorf("dialogue mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_RoundTripIsIdempotent(t *testing.T) {
	n := New(nil, discardLogger())
	records := []Record{
		Analysis{
			Issue:     "No notice period.",
			Risks:     []string{"Unfair dismissal", "Litigation"},
			Revision:  "One month's notice.",
			Rationale: "Fair process.",
			LegalRefs: []string{"Employment Act s.35"},
			Extra:     map[string]any{"compliance_notes": "review"},
		},
		Negotiation{
			Dialogue:         []Turn{{Party: "A", Text: "3 days"}, {Party: "B", Text: "30 days"}},
			ProposedRevision: "14 days",
			Tradeoffs:        []string{"A waits longer"},
			Justification:    "Midpoint.",
		},
		Mediation{
			NeutralSummary:  "Overtime dispute.",
			InterestsPartyA: []string{"Pay"},
			InterestsPartyB: []string{"Budget"},
			Evaluation:      "Both valid.",
			Compromise:      "Split.",
		},
	}

	for _, rec := range records {
		b, err := json.Marshal(rec)
		require.NoError(t, err)

		out := n.Normalize(context.Background(), string(b), rec.Kind())
		p, ok := out.(Parsed)
		require.True(t, ok, "record %T did not reparse: %s", rec, b)
		if diff := cmp.Diff(rec, p.Record); diff != "" {
			t.Errorf("%T round trip mismatch (-want +got):\n%s", rec, diff)
		}
	}
}

func TestOutcomeJSON(t *testing.T) {
	b, err := json.Marshal(Unparsed{Raw: "oops", Reason: ReasonTimeout})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"timeout","raw_output":"oops"}`, string(b))

	b, err = json.Marshal(Parsed{Record: Analysis{Issue: "x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"issue":"x"}`, string(b))
}

func TestKindFields(t *testing.T) {
	assert.Equal(t, []string{"issue", "risk", "revision", "rationale", "legal_refs"}, KindAnalysis.Fields())
	assert.Equal(t, []string{"neutral_summary", "interests_party_a", "interests_party_b", "evaluation", "compromise"}, KindMediation.Fields())
	assert.Contains(t, KindNegotiation.SchemaJSON(), "proposed_revision")
}
