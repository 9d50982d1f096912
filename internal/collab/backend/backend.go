// Package backend delivers persona-action events to the Solace backend
// analytics endpoint. The response body is ignored; only the status code
// decides the delivery outcome.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/logging"
	"github.com/solacehub/solace-sense/internal/window"
)

// Config wires the collaborator to the backend endpoint.
type Config struct {
	URL      string
	APIToken string
	Enabled  bool
	Timeout  time.Duration
}

// Collaborator posts fired events as JSON to the backend logging endpoint.
type Collaborator struct {
	baseURL    string
	apiToken   string
	enabled    bool
	httpClient *http.Client
	log        zerolog.Logger
}

func New(cfg Config) *Collaborator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Collaborator{
		baseURL:    cfg.URL,
		apiToken:   cfg.APIToken,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: timeout},
		log:        logging.WithComponent("collab.backend"),
	}
}

// actionRecord is the wire format the analytics endpoint expects.
type actionRecord struct {
	ID        string                        `json:"id"`
	Action    string                        `json:"action"`
	Priority  string                        `json:"priority"`
	Persona   string                        `json:"persona"`
	Metric    string                        `json:"metric"`
	Rule      string                        `json:"rule"`
	Value     float64                       `json:"value"`
	Threshold float64                       `json:"threshold"`
	FiredAt   time.Time                     `json:"fired_at"`
	Snapshot  map[string]window.MetricState `json:"snapshot"`
}

func (c *Collaborator) Start(ctx context.Context) error {
	c.log.Info().Str("url", c.baseURL).Msg("backend collaborator ready")
	return nil
}

func (c *Collaborator) Stop() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Collaborator) Name() string { return "backend" }

func (c *Collaborator) IsEnabled() bool { return c.enabled }

// Deliver posts one event. Non-2xx responses count as failures.
func (c *Collaborator) Deliver(ctx context.Context, e dispatch.Event) error {
	rec := actionRecord{
		ID:        e.ID,
		Action:    string(e.Action),
		Priority:  string(e.Priority),
		Persona:   e.Persona,
		Metric:    e.Metric.String(),
		Rule:      e.Rule,
		Value:     e.Value,
		Threshold: e.Threshold,
		FiredAt:   e.FiredAt,
		Snapshot:  e.Snapshot.MetricsByName(),
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal action record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/persona/actions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Solace-Sense/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}
