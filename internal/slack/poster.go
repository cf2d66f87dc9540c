package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// maxHighlights caps how many clause issues one summary lists.
const maxHighlights = 8

// AnalysisSummary is the review digest posted after an analysis.
type AnalysisSummary struct {
	AnalysisID string
	Clauses    int
	Unparsed   int
	Partial    bool
	Highlights []Highlight
}

// Highlight is the headline issue found in one clause.
type Highlight struct {
	Index int
	Issue string
}

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostAnalysisSummary posts an analysis digest for human review.
// Returns the message timestamp (ts) used to match later reactions.
func (p *Poster) PostAnalysisSummary(ctx context.Context, s AnalysisSummary) (string, error) {
	text := formatAnalysisMessage(s)

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "React: :+1: helpful | :-1: not helpful | :shrug: skip",
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	p.logger.Info("posted analysis to slack", "ts", ts, "analysis_id", s.AnalysisID)
	return ts, nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	_, err := p.post(ctx, map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatAnalysisMessage(s AnalysisSummary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Contract analysis* `%s`\n", s.AnalysisID)
	fmt.Fprintf(&sb, "*Clauses:* %d", s.Clauses)
	if s.Unparsed > 0 {
		fmt.Fprintf(&sb, " (%d without a structured result)", s.Unparsed)
	}
	sb.WriteString("\n\n")

	if len(s.Highlights) == 0 {
		sb.WriteString("_No issues identified._")
		return sb.String()
	}

	sb.WriteString("*Issues:*\n")
	for i, h := range s.Highlights {
		if i == maxHighlights {
			fmt.Fprintf(&sb, "_...and %d more_\n", len(s.Highlights)-maxHighlights)
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", h.Index, h.Issue)
	}
	return sb.String()
}
