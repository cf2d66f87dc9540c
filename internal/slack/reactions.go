package slack

import (
	"encoding/json"
	"fmt"
)

// ReactionEvent is the structure received from slack-forwarder via NATS.
type ReactionEvent struct {
	Reaction  string `json:"reaction"`
	UserID    string `json:"user_id"`
	Channel   string `json:"channel"`
	MessageTS string `json:"message_ts"`
}

// Verdict is a reviewer's judgement of a posted analysis.
type Verdict string

const (
	VerdictHelpful    Verdict = "helpful"
	VerdictNotHelpful Verdict = "not_helpful"
	VerdictSkipped    Verdict = "skipped"
	VerdictUnknown    Verdict = "unknown"
)

// ParseReaction converts a Slack reaction emoji name to a verdict.
func ParseReaction(reaction string) Verdict {
	switch reaction {
	case "+1", "thumbsup", "white_check_mark":
		return VerdictHelpful
	case "-1", "thumbsdown", "x":
		return VerdictNotHelpful
	case "shrug":
		return VerdictSkipped
	default:
		return VerdictUnknown
	}
}

// ParseReactionEvent parses a slack-forwarder NATS payload into a ReactionEvent.
func ParseReactionEvent(data []byte) (*ReactionEvent, error) {
	var wrapper struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse reaction wrapper: %w", err)
	}

	evt := &ReactionEvent{
		Reaction:  wrapper.Metadata["text"],
		UserID:    wrapper.Metadata["user_id"],
		Channel:   wrapper.Metadata["channel_id"],
		MessageTS: wrapper.Metadata["message_ts"],
	}

	// Strip surrounding colons.
	if len(evt.Reaction) > 2 && evt.Reaction[0] == ':' && evt.Reaction[len(evt.Reaction)-1] == ':' {
		evt.Reaction = evt.Reaction[1 : len(evt.Reaction)-1]
	}

	return evt, nil
}
