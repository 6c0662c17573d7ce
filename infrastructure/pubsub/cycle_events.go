package pubsub

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"

	"video-autopilot/domain/model"
	"video-autopilot/infrastructure/logger"
)

// NewPubSub connects to Google Cloud Pub/Sub for the given project.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

type ICycleEvents interface {
	PublishCycle(ctx context.Context, audit *model.CycleAudit) (string, error)
}

// CycleEvents publishes cycle outcomes so downstream consumers (analytics,
// alerting) can react without polling the database. The client may be nil
// when Pub/Sub is unavailable; publishing then becomes a no-op.
type CycleEvents struct {
	PubSubClient *pubsub.Client
	TopicName    string
}

func NewCycleEvents(pubSubClient *pubsub.Client, topicName string) ICycleEvents {
	return &CycleEvents{
		PubSubClient: pubSubClient,
		TopicName:    topicName,
	}
}

func (e *CycleEvents) PublishCycle(ctx context.Context, audit *model.CycleAudit) (string, error) {
	if e.PubSubClient == nil {
		logger.GetLogger().Debug("PubSub client is nil - skipping cycle event")
		return "", nil
	}

	payload, err := json.Marshal(audit)
	if err != nil {
		return "", err
	}

	topic := e.PubSubClient.Topic(e.TopicName)

	exists, err := topic.Exists(ctx)
	if err != nil {
		return "", err
	}
	if !exists {
		logger.GetLogger().WithField("topic", e.TopicName).Info("Topic doesn't exist - creating it")
		if _, err = e.PubSubClient.CreateTopic(ctx, e.TopicName); err != nil {
			return "", err
		}
	}

	serverId, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return "", err
	}

	logger.GetLogger().WithField("server ID", serverId).Info("Cycle event published")
	return serverId, nil
}
