package normalize

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/MikeSquared-Agency/clerk/internal/llm"
)

type analysisShape struct {
	Issue     string   `json:"issue,omitempty" jsonschema:"description=Main problem with the clause or none"`
	Risk      []string `json:"risk,omitempty" jsonschema:"description=Concrete risks and ambiguities"`
	Revision  string   `json:"revision,omitempty" jsonschema:"description=Suggested replacement wording"`
	Rationale string   `json:"rationale,omitempty" jsonschema:"description=Why the revision is better"`
	LegalRefs []string `json:"legal_refs,omitempty" jsonschema:"description=Statutes or sections relied on"`
}

type negotiationShape struct {
	Dialogue         []Turn   `json:"dialogue,omitempty" jsonschema:"description=Alternating turns between party A and party B"`
	ProposedRevision string   `json:"proposed_revision,omitempty" jsonschema:"description=Mutually beneficial clause wording"`
	Tradeoffs        []string `json:"tradeoffs,omitempty" jsonschema:"description=Concessions made by each side"`
	Justification    string   `json:"justification,omitempty" jsonschema:"description=Why the revision benefits both parties"`
	LegalRefs        []string `json:"legal_refs,omitempty" jsonschema:"description=Statutes or sections relied on"`
}

type mediationShape struct {
	NeutralSummary  string   `json:"neutral_summary,omitempty" jsonschema:"description=Balanced description of the dispute"`
	InterestsPartyA []string `json:"interests_party_a,omitempty" jsonschema:"description=Underlying interests of party A"`
	InterestsPartyB []string `json:"interests_party_b,omitempty" jsonschema:"description=Underlying interests of party B"`
	Evaluation      string   `json:"evaluation,omitempty" jsonschema:"description=Objective assessment of both positions"`
	Compromise      string   `json:"compromise,omitempty" jsonschema:"description=Proposed resolution"`
}

var schemas = map[Kind]*jsonschema.Schema{
	KindAnalysis:    llm.GenerateSchema(&analysisShape{}),
	KindNegotiation: llm.GenerateSchema(&negotiationShape{}),
	KindMediation:   llm.GenerateSchema(&mediationShape{}),
}

// Schema returns the JSON schema hint for kind.
func (k Kind) Schema() *jsonschema.Schema {
	return schemas[k]
}

// SchemaJSON returns the schema hint as indented JSON text.
func (k Kind) SchemaJSON() string {
	b, err := json.MarshalIndent(schemas[k], "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
