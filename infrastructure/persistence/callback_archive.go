package persistence

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ICallbackArchive stores raw workflow callback payloads for audit.
type ICallbackArchive interface {
	Archive(ctx context.Context, taskID, platform string, payload []byte) error
}

// CallbackArchive is a Mongo-backed archive. A nil client disables archiving.
type CallbackArchive struct {
	client *mongo.Client
	dbName string
}

func NewCallbackArchive(client *mongo.Client, dbName string) ICallbackArchive {
	if dbName == "" {
		dbName = "social_ops"
	}
	return &CallbackArchive{client: client, dbName: dbName}
}

func (a *CallbackArchive) Archive(ctx context.Context, taskID, platform string, payload []byte) error {
	if a.client == nil {
		return nil
	}
	coll := a.client.Database(a.dbName).Collection("publish_callbacks")
	_, err := coll.InsertOne(ctx, bson.M{
		"task_id":     taskID,
		"platform":    platform,
		"payload":     string(payload),
		"received_at": time.Now().UTC(),
	})
	return err
}
