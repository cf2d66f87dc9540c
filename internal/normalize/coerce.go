package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toString flattens any JSON value into text. Lists are joined with "; ".
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool, float64:
		return fmt.Sprint(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := toString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// toList turns any JSON value into a list of strings. A single scalar
// becomes a one-element list.
func toList(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		var out []string
		for _, item := range x {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := toString(x); s != "" {
			return []string{s}
		}
		return nil
	}
}

var turnLine = regexp.MustCompile(`(?i)^\s*(?:turn\s*\d+\s*[-:.)]\s*)?(party\s*[ab]|user|counterparty)\s*[:\-]\s*(.*)$`)

// toDialogue accepts a list of {party, text} objects, a list of lines such
// as "Turn 1 - Party A: ...", or one multi-line string.
func toDialogue(v any) []Turn {
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case string:
		for _, line := range strings.Split(x, "\n") {
			if strings.TrimSpace(line) != "" {
				items = append(items, line)
			}
		}
	default:
		return nil
	}

	var turns []Turn
	for _, item := range items {
		var party, text string
		switch it := item.(type) {
		case map[string]any:
			p := newPicker(it)
			if pv, ok := p.pick(fieldSpec{[]string{"party", "speaker", "role", "name"}}); ok {
				party = toString(pv)
			}
			if tv, ok := p.pick(fieldSpec{[]string{"text", "message", "content", "utterance", "says"}}); ok {
				text = toString(tv)
			}
		case string:
			if m := turnLine.FindStringSubmatch(it); m != nil {
				party, text = m[1], strings.TrimSpace(m[2])
			} else {
				text = strings.TrimSpace(it)
			}
		default:
			text = toString(it)
		}
		if text == "" {
			continue
		}
		turns = append(turns, Turn{Party: normalizeParty(party, len(turns)), Text: text})
	}
	return turns
}

// normalizeParty maps speaker labels onto "A" or "B". Unrecognised labels
// follow the alternation A, B, A, ... by position.
func normalizeParty(label string, position int) string {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.TrimPrefix(l, "party")
	l = strings.Trim(l, " _-")
	switch l {
	case "a", "user", "1":
		return "A"
	case "b", "counterparty", "counter_party", "2":
		return "B"
	}
	if position%2 == 0 {
		return "A"
	}
	return "B"
}
