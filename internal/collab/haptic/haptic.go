// Package haptic bridges persona actions to the local device haptic
// driver: each action maps to an intensity and duration so the driver
// receives a complete pulse command.
package haptic

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
	"github.com/solacehub/solace-sense/internal/rules"
)

// Pattern is one haptic pulse: intensity in [0, 1] and duration.
type Pattern struct {
	Intensity  float64 `json:"intensity"`
	DurationMS int     `json:"duration_ms"`
}

var patterns = map[rules.ActionID]Pattern{
	rules.ActionConcernedCare:  {Intensity: 0.9, DurationMS: 600},
	rules.ActionGentleAlert:    {Intensity: 0.6, DurationMS: 300},
	rules.ActionCalmPresence:   {Intensity: 0.3, DurationMS: 1200},
	rules.ActionCheckIn:        {Intensity: 0.5, DurationMS: 250},
	rules.ActionRestReminder:   {Intensity: 0.4, DurationMS: 400},
	rules.ActionMotivation:     {Intensity: 0.7, DurationMS: 350},
	rules.ActionEnergize:       {Intensity: 0.8, DurationMS: 200},
	rules.ActionWindDown:       {Intensity: 0.2, DurationMS: 900},
	rules.ActionCelebrate:      {Intensity: 1.0, DurationMS: 150},
	rules.ActionProximityGreet: {Intensity: 0.5, DurationMS: 120},
}

var defaultPattern = Pattern{Intensity: 0.5, DurationMS: 300}

// PatternFor returns the pulse for an action, falling back to a neutral
// pattern for actions introduced via config.
func PatternFor(action rules.ActionID) Pattern {
	if p, ok := patterns[action]; ok {
		return p
	}
	return defaultPattern
}

// Config wires the collaborator to the device bridge.
type Config struct {
	URL     string
	Enabled bool
	Timeout time.Duration
}

// Collaborator posts pulse commands to the device haptic bridge.
type Collaborator struct {
	baseURL    string
	enabled    bool
	httpClient *http.Client
	log        zerolog.Logger
}

func New(cfg Config) *Collaborator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Collaborator{
		baseURL:    cfg.URL,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: timeout},
		log:        logging.WithComponent("collab.haptic"),
	}
}

// pulseRequest is the device bridge wire format.
type pulseRequest struct {
	Action     string  `json:"action"`
	Intensity  float64 `json:"intensity"`
	DurationMS int     `json:"duration_ms"`
}

func (c *Collaborator) Start(ctx context.Context) error {
	c.log.Info().Str("url", c.baseURL).Msg("haptic collaborator ready")
	return nil
}

func (c *Collaborator) Stop() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Collaborator) Name() string { return "haptic" }

func (c *Collaborator) IsEnabled() bool { return c.enabled }

func (c *Collaborator) Deliver(ctx context.Context, e dispatch.Event) error {
	p := PatternFor(e.Action)
	body, err := json.Marshal(pulseRequest{
		Action:     string(e.Action),
		Intensity:  p.Intensity,
		DurationMS: p.DurationMS,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal pulse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pulse", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("haptic request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("haptic bridge returned status %d", resp.StatusCode)
	}
	return nil
}
