package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectRegistered          = "clerk.agent.registered"
	SubjectAnalysisCompleted   = "clerk.analysis.completed"
	SubjectNegotiationComplete = "clerk.negotiation.completed"
	SubjectMediationComplete   = "clerk.mediation.completed"
	SubjectFeedbackStored      = "clerk.feedback.stored"
	SubjectSlackReaction       = "swarm.slack.reaction"
)

// AnalysisCompleted is published after a document has been analyzed.
type AnalysisCompleted struct {
	AnalysisID string `json:"analysis_id"`
	Clauses    int    `json:"clauses"`
	Unparsed   int    `json:"unparsed"`
	Partial    bool   `json:"partial"`
	DurationMS int64  `json:"duration_ms"`
}

// WorkflowCompleted is published after a negotiation or mediation run.
type WorkflowCompleted struct {
	ID       string `json:"id"`
	Workflow string `json:"workflow"`
	Parsed   bool   `json:"parsed"`
	Strategy string `json:"strategy,omitempty"`
}

// FeedbackStored is published when a user rates an analysis.
type FeedbackStored struct {
	FeedbackID string `json:"feedback_id"`
	Username   string `json:"username"`
	Rating     int    `json:"rating"`
	Sentiment  string `json:"sentiment"`
	Source     string `json:"source"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("clerk"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}

// Discard is a publisher used when NATS is not configured.
type Discard struct{}

func (Discard) Publish(string, any) error { return nil }
