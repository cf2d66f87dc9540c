package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind selects the record schema a response is normalized into.
type Kind int

const (
	KindAnalysis Kind = iota
	KindNegotiation
	KindMediation
)

func (k Kind) String() string {
	switch k {
	case KindAnalysis:
		return "analysis"
	case KindNegotiation:
		return "negotiation"
	case KindMediation:
		return "mediation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Fields returns the canonical keys of the schema in declaration order.
func (k Kind) Fields() []string {
	specs := fieldSpecs[k]
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.synonyms[0]
	}
	return names
}

// Record is a normalized model response.
type Record interface {
	Kind() Kind
}

type Analysis struct {
	Issue     string
	Risks     []string
	Revision  string
	Rationale string
	LegalRefs []string
	Extra     map[string]any
}

type Turn struct {
	Party string `json:"party"`
	Text  string `json:"text"`
}

type Negotiation struct {
	Dialogue         []Turn
	ProposedRevision string
	Tradeoffs        []string
	Justification    string
	LegalRefs        []string
	Extra            map[string]any
}

type Mediation struct {
	NeutralSummary  string
	InterestsPartyA []string
	InterestsPartyB []string
	Evaluation      string
	Compromise      string
	Extra           map[string]any
}

func (Analysis) Kind() Kind    { return KindAnalysis }
func (Negotiation) Kind() Kind { return KindNegotiation }
func (Mediation) Kind() Kind   { return KindMediation }

// fieldSpec lists the accepted keys for one record field. The first synonym
// is the canonical key; earlier synonyms win when several are present.
type fieldSpec struct {
	synonyms []string
}

var legalRefs = fieldSpec{[]string{"legal_refs", "legal_references", "references", "statutes", "legal_grounding"}}

var fieldSpecs = map[Kind][]fieldSpec{
	KindAnalysis: {
		{[]string{"issue", "clause_summary", "summary", "main_issue"}},
		{[]string{"risk", "risks", "issues", "concerns"}},
		{[]string{"revision", "suggested_revision", "revised_clause", "recommendation", "proposed_revision"}},
		{[]string{"rationale", "reasoning", "justification", "explanation"}},
		legalRefs,
	},
	KindNegotiation: {
		{[]string{"dialogue", "negotiation", "negotiation_dialogue", "conversation"}},
		{[]string{"proposed_revision", "mutually_beneficial_revision", "revised_clause", "revision", "suggested_revision"}},
		{[]string{"tradeoffs", "trade_offs", "concessions"}},
		{[]string{"justification", "win_win_justification", "rationale"}},
		legalRefs,
	},
	KindMediation: {
		{[]string{"neutral_summary", "summary"}},
		{[]string{"interests_party_a", "party_a_interests"}},
		{[]string{"interests_party_b", "party_b_interests"}},
		{[]string{"evaluation", "objective_evaluation", "assessment"}},
		{[]string{"compromise", "proposed_compromise", "fair_compromise", "resolution"}},
	},
}

// decode maps a parsed JSON object onto the record for kind. It reports
// false when none of the schema's keys are present.
func decode(kind Kind, obj map[string]any) (Record, bool) {
	p := newPicker(obj)
	specs := fieldSpecs[kind]

	switch kind {
	case KindNegotiation:
		var r Negotiation
		if v, ok := p.pick(specs[0]); ok {
			r.Dialogue = toDialogue(v)
		}
		if v, ok := p.pick(specs[1]); ok {
			r.ProposedRevision = toString(v)
		}
		if v, ok := p.pick(specs[2]); ok {
			r.Tradeoffs = toList(v)
		}
		if v, ok := p.pick(specs[3]); ok {
			r.Justification = toString(v)
		}
		if v, ok := p.pick(specs[4]); ok {
			r.LegalRefs = toList(v)
		}
		r.Extra = p.extra(kind)
		return r, p.matched > 0

	case KindMediation:
		var r Mediation
		if v, ok := p.pick(specs[0]); ok {
			r.NeutralSummary = toString(v)
		}
		if v, ok := p.pick(specs[1]); ok {
			r.InterestsPartyA = toList(v)
		}
		if v, ok := p.pick(specs[2]); ok {
			r.InterestsPartyB = toList(v)
		}
		if v, ok := p.pick(specs[3]); ok {
			r.Evaluation = toString(v)
		}
		if v, ok := p.pick(specs[4]); ok {
			r.Compromise = toString(v)
		}
		r.Extra = p.extra(kind)
		return r, p.matched > 0

	default:
		var r Analysis
		if v, ok := p.pick(specs[0]); ok {
			r.Issue = toString(v)
		}
		if v, ok := p.pick(specs[1]); ok {
			r.Risks = toList(v)
		}
		if v, ok := p.pick(specs[2]); ok {
			r.Revision = toString(v)
		}
		if v, ok := p.pick(specs[3]); ok {
			r.Rationale = toString(v)
		}
		if v, ok := p.pick(specs[4]); ok {
			r.LegalRefs = toList(v)
		}
		r.Extra = p.extra(kind)
		return r, p.matched > 0
	}
}

// picker resolves synonyms against an object whose keys may differ in case
// or separators, and remembers which keys were consumed.
type picker struct {
	obj     map[string]any
	byNorm  map[string]string
	used    map[string]bool
	matched int
}

func newPicker(obj map[string]any) *picker {
	byNorm := make(map[string]string, len(obj))
	for _, k := range sortedKeys(obj) {
		n := normalizeKey(k)
		if _, dup := byNorm[n]; !dup {
			byNorm[n] = k
		}
	}
	return &picker{obj: obj, byNorm: byNorm, used: make(map[string]bool)}
}

func (p *picker) pick(spec fieldSpec) (any, bool) {
	for _, syn := range spec.synonyms {
		key, ok := p.byNorm[syn]
		if !ok || p.used[key] {
			continue
		}
		v := p.obj[key]
		if v == nil {
			continue
		}
		p.used[key] = true
		p.matched++
		return v, true
	}
	return nil, false
}

// extra returns the keys no field consumed.
func (p *picker) extra(kind Kind) map[string]any {
	var left map[string]any
	for k, v := range p.obj {
		if p.used[k] {
			continue
		}
		if left == nil {
			left = make(map[string]any)
		}
		left[k] = v
	}
	if left == nil {
		return nil
	}
	return withExtra(left, kind)
}

func (r Analysis) MarshalJSON() ([]byte, error) {
	m := withExtra(r.Extra, KindAnalysis)
	putString(m, "issue", r.Issue)
	putList(m, "risk", r.Risks)
	putString(m, "revision", r.Revision)
	putString(m, "rationale", r.Rationale)
	putList(m, "legal_refs", r.LegalRefs)
	return json.Marshal(m)
}

func (r Negotiation) MarshalJSON() ([]byte, error) {
	m := withExtra(r.Extra, KindNegotiation)
	if len(r.Dialogue) > 0 {
		m["dialogue"] = r.Dialogue
	}
	putString(m, "proposed_revision", r.ProposedRevision)
	putList(m, "tradeoffs", r.Tradeoffs)
	putString(m, "justification", r.Justification)
	putList(m, "legal_refs", r.LegalRefs)
	return json.Marshal(m)
}

func (r Mediation) MarshalJSON() ([]byte, error) {
	m := withExtra(r.Extra, KindMediation)
	putString(m, "neutral_summary", r.NeutralSummary)
	putList(m, "interests_party_a", r.InterestsPartyA)
	putList(m, "interests_party_b", r.InterestsPartyB)
	putString(m, "evaluation", r.Evaluation)
	putString(m, "compromise", r.Compromise)
	return json.Marshal(m)
}

// withExtra copies extra into a fresh map. A key that matches one of the
// kind's canonical field names, ignoring case and separators, moves to the
// first free "<key>_alt", "<key>_alt2", ... so a field can never overwrite it
// or be read back from it.
func withExtra(extra map[string]any, kind Kind) map[string]any {
	m := make(map[string]any, len(extra)+5)
	reserved := make(map[string]bool)
	for _, f := range kind.Fields() {
		reserved[f] = true
	}

	var moved []string
	for k, v := range extra {
		if reserved[normalizeKey(k)] {
			moved = append(moved, k)
			continue
		}
		m[k] = v
	}
	sort.Strings(moved)
	for _, k := range moved {
		alt := k + "_alt"
		for i := 2; ; i++ {
			if _, taken := m[alt]; !taken {
				break
			}
			alt = fmt.Sprintf("%s_alt%d", k, i)
		}
		m[alt] = extra[k]
	}
	return m
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func putList(m map[string]any, key string, v []string) {
	if len(v) > 0 {
		m[key] = v
	}
}
