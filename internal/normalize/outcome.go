package normalize

import "encoding/json"

// Strategy names the step of the normalization chain that produced a record.
type Strategy string

const (
	StrategyDirect    Strategy = "direct"
	StrategyFence     Strategy = "fence_strip"
	StrategySubstring Strategy = "substring"
	StrategyRepair    Strategy = "repair"
)

// Reason explains why no record could be produced.
type Reason string

const (
	ReasonSchemaMismatch        Reason = "schema_mismatch"
	ReasonTimeout               Reason = "timeout"
	ReasonCapabilityUnavailable Reason = "capability_unavailable"
)

// Outcome is the result of normalizing one model response. It is either
// Parsed or Unparsed; callers type-switch on it.
type Outcome interface {
	isOutcome()
}

type Parsed struct {
	Record   Record
	Strategy Strategy
}

// Unparsed keeps the raw model text so callers can show it unchanged.
type Unparsed struct {
	Raw    string
	Reason Reason
	Detail string
}

func (Parsed) isOutcome()   {}
func (Unparsed) isOutcome() {}

// MarshalJSON renders the record itself.
func (p Parsed) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Record)
}

func (u Unparsed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error     Reason `json:"error"`
		RawOutput string `json:"raw_output"`
		Detail    string `json:"detail,omitempty"`
	}{u.Reason, u.Raw, u.Detail})
}

// IsParsed reports whether o carries a record.
func IsParsed(o Outcome) bool {
	_, ok := o.(Parsed)
	return ok
}
