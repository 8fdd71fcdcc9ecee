package servicebus

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"social-ops/infrastructure/logger"
)

type ITaskEventSender interface {
	SendStatusChange(ctx context.Context, message []byte) error
}

// TaskEventSender forwards task status events to an Azure Service Bus queue
// for downstream consumers. A nil client disables sending.
type TaskEventSender struct {
	client *azservicebus.Client
	queue  string
}

func NewServiceBus(_ context.Context, namespace string) (*azservicebus.Client, error) {
	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, credential, nil)
}

func NewTaskEventSender(client *azservicebus.Client, queue string) ITaskEventSender {
	return &TaskEventSender{client: client, queue: queue}
}

func (s *TaskEventSender) SendStatusChange(ctx context.Context, message []byte) error {
	if s.client == nil || s.queue == "" {
		return nil
	}
	sender, err := s.client.NewSender(s.queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, ctx)

	sbMessage := &azservicebus.Message{Body: message}
	if err := sender.SendMessage(ctx, sbMessage, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
