package repository

import (
	"context"

	"social-ops/domain/model"
)

// StatusReducer folds the latest record per platform into an aggregate
// task status.
type StatusReducer func(platforms []model.Platform, latest map[model.Platform]*model.PublishRecord) model.TaskStatus

// IPublishTask defines persistence for publish tasks and their children.
type IPublishTask interface {
	CreateTask(ctx context.Context, t *model.PublishTask) error
	// GetTask loads the task with its platform contents and account links.
	GetTask(ctx context.Context, id string) (*model.PublishTask, error)
	ListTasks(ctx context.Context, createdBy string, limit, offset int) ([]*model.PublishTask, error)
	UpdateTask(ctx context.Context, t *model.PublishTask) error
	UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) error
	DeleteTask(ctx context.Context, id string) error

	// ReconcilePlatforms deletes platform contents for removed platforms and
	// creates empty ones for added platforms.
	ReconcilePlatforms(ctx context.Context, taskID string, platforms []model.Platform) error
	UpsertPlatformContent(ctx context.Context, c *model.PlatformContent) error
	ListPlatformContents(ctx context.Context, taskID string) ([]*model.PlatformContent, error)

	AppendRecord(ctx context.Context, r *model.PublishRecord) error
	// AppendRecordReduce appends r and recomputes the task status in one
	// transaction, holding a row lock on the task so concurrent callbacks
	// serialize. Returns the status before and after the fold.
	AppendRecordReduce(ctx context.Context, r *model.PublishRecord, reduce StatusReducer) (previous, next model.TaskStatus, err error)
	// LatestRecords returns the most recent record per platform for a task.
	LatestRecords(ctx context.Context, taskID string) (map[model.Platform]*model.PublishRecord, error)
	ListRecords(ctx context.Context, taskID string) ([]*model.PublishRecord, error)

	LinkAccount(ctx context.Context, l *model.TaskAccount) error
	ListTaskAccounts(ctx context.Context, taskID string) ([]*model.TaskAccount, error)
}
