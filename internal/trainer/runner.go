package trainer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RunnerClient drives a training run on an external runner process over
// HTTP. The runner owns the GPU-side work; this client submits the
// prepared batches and waits for the final artifacts. Cancellation is
// the caller's context; the request itself carries no timeout because
// a run can legitimately take hours.
type RunnerClient struct {
	baseURL string
	client  *http.Client
}

// NewRunnerClient returns a client for a runner at baseURL, for
// example "http://127.0.0.1:8090".
func NewRunnerClient(baseURL string) *RunnerClient {
	return &RunnerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Run implements Loop by delegating the whole run to the runner.
func (c *RunnerClient) Run(ctx context.Context, spec TrainSpec) (Artifacts, error) {
	if c.baseURL == "" {
		return Artifacts{}, fmt.Errorf("runner base URL is not configured")
	}

	body, err := json.Marshal(spec)
	if err != nil {
		return Artifacts{}, fmt.Errorf("cannot encode train spec: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/finetune", bytes.NewReader(body))
	if err != nil {
		return Artifacts{}, fmt.Errorf("cannot create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Artifacts{}, fmt.Errorf("cannot reach runner: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Artifacts{}, fmt.Errorf("cannot read runner response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Artifacts{}, fmt.Errorf("runner returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var artifacts Artifacts
	if err := json.Unmarshal(data, &artifacts); err != nil {
		return Artifacts{}, fmt.Errorf("cannot decode runner response: %w", err)
	}
	return artifacts, nil
}
