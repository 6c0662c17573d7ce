package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"video-autopilot/domain/model"
	"video-autopilot/infrastructure/logger"
)

// ScriptClient calls the external content generation service.
type ScriptClient struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

func NewScriptClient(host, apiKey string, timeout time.Duration) *ScriptClient {
	return &ScriptClient{
		host:       host,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Theme       string   `json:"theme"`
	AvoidTitles []string `json:"avoid_titles,omitempty"`
}

// Generate requests a fresh script for the theme. Titles in avoid were
// already rejected this cycle and the service is asked to steer away from
// them.
func (c *ScriptClient) Generate(ctx context.Context, theme string, avoid []string) (*model.GeneratedContent, error) {
	payload, err := json.Marshal(generateRequest{Theme: theme, AvoidTitles: avoid})
	if err != nil {
		return nil, model.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/v1/scripts", bytes.NewReader(payload))
	if err != nil {
		return nil, model.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.Transient(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, model.Transient(fmt.Errorf("generator returned %d", resp.StatusCode))
	default:
		return nil, model.Permanent(fmt.Errorf("generator returned %d", resp.StatusCode))
	}

	content := &model.GeneratedContent{}
	if err := json.NewDecoder(resp.Body).Decode(content); err != nil {
		return nil, model.Transient(err)
	}
	if content.Title == "" || content.Body == "" {
		return nil, model.Transient(fmt.Errorf("generator returned incomplete content"))
	}

	logger.GetLogger().WithField("title", content.Title).Info("Script generated")
	return content, nil
}
