package repository

import (
	"context"

	"social-ops/domain/dto"
)

// WorkflowExecution is one entry of the engine's execution log.
type WorkflowExecution struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status"`
	StartedAt  string `json:"startedAt"`
	StoppedAt  string `json:"stoppedAt,omitempty"`
}

// ExecutionListOptions filters the execution-log query.
type ExecutionListOptions struct {
	WorkflowID string `url:"workflowId,omitempty"`
	Status     string `url:"status,omitempty"`
	Limit      int    `url:"limit,omitempty"`
}

// IWorkflow is the external workflow engine: it performs the actual platform
// uploads and reports completion through the publish callback.
type IWorkflow interface {
	DispatchPublish(ctx context.Context, payload *dto.DispatchPayload) error
	ListExecutions(ctx context.Context, opts ExecutionListOptions) ([]WorkflowExecution, error)
}
