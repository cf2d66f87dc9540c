package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Normalizer coerces free-form model output into records. It never fails:
// every input yields a Parsed or an Unparsed outcome.
type Normalizer struct {
	repairer Repairer
	logger   *slog.Logger
}

// New returns a Normalizer. A nil repairer disables the repair step.
func New(repairer Repairer, logger *slog.Logger) *Normalizer {
	return &Normalizer{repairer: repairer, logger: logger}
}

// Normalize tries, in order: a direct parse, a parse after stripping code
// fences, a parse of the first "{" to last "}" span, and one model repair
// call. The first success wins.
func (n *Normalizer) Normalize(ctx context.Context, raw string, kind Kind) Outcome {
	if r, ok := parseObject(raw, kind); ok {
		return Parsed{Record: r, Strategy: StrategyDirect}
	}
	if stripped, ok := stripFences(raw); ok {
		if r, ok := parseObject(stripped, kind); ok {
			return Parsed{Record: r, Strategy: StrategyFence}
		}
	}
	if sub, ok := braceSpan(raw); ok {
		if r, ok := parseObject(sub, kind); ok {
			return Parsed{Record: r, Strategy: StrategySubstring}
		}
	}

	if n.repairer == nil || strings.TrimSpace(raw) == "" {
		return Unparsed{Raw: raw, Reason: ReasonSchemaMismatch}
	}

	repaired, err := n.repairer.Repair(ctx, raw, kind)
	if err != nil {
		reason := ReasonSchemaMismatch
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			reason = ReasonTimeout
		}
		n.logger.Warn("json repair failed", "kind", kind.String(), "reason", reason, "error", err)
		return Unparsed{Raw: raw, Reason: reason, Detail: "repair failed: " + err.Error()}
	}
	if r, ok := parseObject(repaired, kind); ok {
		n.logger.Debug("model output repaired", "kind", kind.String())
		return Parsed{Record: r, Strategy: StrategyRepair}
	}
	return Unparsed{Raw: raw, Reason: ReasonSchemaMismatch}
}

// parseObject decodes text as exactly one JSON object carrying at least one
// key of the schema.
func parseObject(text string, kind Kind) (Record, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return decode(kind, obj)
}

// stripFences removes a leading ``` line (optionally tagged, e.g. ```json)
// and a trailing ``` fence.
func stripFences(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s), true
}

func braceSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
