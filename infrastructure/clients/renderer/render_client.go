package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"

	"video-autopilot/domain/model"
	"video-autopilot/infrastructure/logger"
)

// RenderClient drives the external video rendering service: submit a job,
// then poll until the artifact is ready. Rendering is slow, so the overall
// deadline comes from the caller's context, not the per-request timeout.
type RenderClient struct {
	host         string
	pollInterval time.Duration
	httpClient   *http.Client
}

func NewRenderClient(host string, requestTimeout, pollInterval time.Duration) *RenderClient {
	return &RenderClient{
		host:         host,
		pollInterval: pollInterval,
		httpClient:   &http.Client{Timeout: requestTimeout},
	}
}

type submitRequest struct {
	Body string `json:"body"`
}

type jobResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	ArtifactURL string `json:"artifact_url"`
	Error       string `json:"error"`
}

type pollOptions struct {
	Format      string `url:"format,omitempty"`
	WaitSeconds int    `url:"wait_seconds,omitempty"`
}

// Render submits the script body and polls until the job finishes, returning
// the artifact handle.
func (c *RenderClient) Render(ctx context.Context, body string) (string, error) {
	job, err := c.submit(ctx, body)
	if err != nil {
		return "", err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", model.Transient(ctx.Err())
		case <-ticker.C:
			job, err = c.poll(ctx, job.JobID)
			if err != nil {
				return "", err
			}
			switch job.Status {
			case "done":
				logger.GetLogger().WithField("jobId", job.JobID).Info("Render finished")
				return job.ArtifactURL, nil
			case "failed":
				return "", model.Permanent(fmt.Errorf("render job %s failed: %s", job.JobID, job.Error))
			}
		}
	}
}

func (c *RenderClient) submit(ctx context.Context, body string) (*jobResponse, error) {
	payload, err := json.Marshal(submitRequest{Body: body})
	if err != nil {
		return nil, model.Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/v1/renders", bytes.NewReader(payload))
	if err != nil {
		return nil, model.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *RenderClient) poll(ctx context.Context, jobID string) (*jobResponse, error) {
	opts, err := query.Values(pollOptions{Format: "mp4"})
	if err != nil {
		return nil, model.Permanent(err)
	}
	url := fmt.Sprintf("%s/v1/renders/%s?%s", c.host, jobID, opts.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.Permanent(err)
	}
	return c.do(req)
}

func (c *RenderClient) do(req *http.Request) (*jobResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.Transient(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, model.Transient(fmt.Errorf("renderer returned %d", resp.StatusCode))
	default:
		return nil, model.Permanent(fmt.Errorf("renderer returned %d", resp.StatusCode))
	}

	job := &jobResponse{}
	if err := json.NewDecoder(resp.Body).Decode(job); err != nil {
		return nil, model.Transient(err)
	}
	return job, nil
}
