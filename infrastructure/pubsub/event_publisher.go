package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"

	"social-ops/infrastructure/logger"
)

// TaskStatusEvent is the message fanned out whenever a publish task changes
// aggregate status.
type TaskStatusEvent struct {
	TaskID     string    `json:"task_id"`
	Status     string    `json:"status"`
	Platform   string    `json:"platform,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ITaskEventPublisher interface {
	PublishStatusChange(ctx context.Context, event TaskStatusEvent) error
}

// TaskEventPublisher emits task status events to a Pub/Sub topic. A nil
// client disables publishing.
type TaskEventPublisher struct {
	client *pubsub.Client
	topic  string
}

func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

func NewTaskEventPublisher(client *pubsub.Client, topicName string) ITaskEventPublisher {
	return &TaskEventPublisher{client: client, topic: topicName}
}

func (p *TaskEventPublisher) PublishStatusChange(ctx context.Context, event TaskStatusEvent) error {
	if p.client == nil || p.topic == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := p.client.Topic(p.topic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topic).Info("Topic doesn't exist - creating it")
		if _, err := p.client.CreateTopic(ctx, p.topic); err != nil {
			return err
		}
	}

	serverId, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return err
	}

	logger.GetLogger().
		WithField("server ID", serverId).
		WithField("taskId", event.TaskID).
		Info("Task status event published")
	return nil
}
