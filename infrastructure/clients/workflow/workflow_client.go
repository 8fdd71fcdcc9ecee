package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"social-ops/domain/dto"
	"social-ops/domain/repository"
	"social-ops/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

// Client talks to the n8n workflow engine that performs the actual platform
// uploads.
type Client struct {
	baseURL      string
	apiKey       string
	workflowName string
	httpClient   *http.Client
}

func NewWorkflowClient(baseURL, apiKey, workflowName string) repository.IWorkflow {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		workflowName: workflowName,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// DispatchPublish hands the task to the engine via its webhook trigger. The
// engine reports per-platform results back through the publish callback.
func (c *Client) DispatchPublish(ctx context.Context, payload *dto.DispatchPayload) error {
	if c.baseURL == "" {
		return fmt.Errorf("workflow engine not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/webhook/%s", c.baseURL, c.workflowName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while dispatching publish workflow.")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		logger.GetLogger().
			WithField("status", resp.StatusCode).
			WithField("body", string(raw)).
			Error("Workflow engine rejected dispatch.")
		return fmt.Errorf("workflow dispatch failed with status %d", resp.StatusCode)
	}

	logger.GetLogger().WithField("taskId", payload.TaskID).Info("Publish workflow dispatched")
	return nil
}

// ListExecutions reads the engine's execution log through its REST API.
func (c *Client) ListExecutions(ctx context.Context, opts repository.ExecutionListOptions) ([]repository.WorkflowExecution, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("workflow engine not configured")
	}
	values, err := query.Values(opts)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/executions", c.baseURL)
	if encoded := values.Encode(); encoded != "" {
		url += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-N8N-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("listing executions failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []repository.WorkflowExecution `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode execution list: %w", err)
	}
	return parsed.Data, nil
}
