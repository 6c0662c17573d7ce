package servicebus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"video-autopilot/infrastructure/logger"
)

// NewServiceBus connects to the Azure Service Bus namespace using the default
// credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, credential, nil)
}

// PauseAlert is the message sent to operators when a channel leaves the
// active state or stays paused past the alert window.
type PauseAlert struct {
	ChannelID string    `json:"channel_id"`
	State     string    `json:"state"`
	Reason    string    `json:"reason"`
	RaisedAt  time.Time `json:"raised_at"`
}

type IAlertBus interface {
	SendPauseAlert(ctx context.Context, alert *PauseAlert) error
}

// AlertBus delivers pause alerts to the operator queue. The client may be
// nil when Service Bus is unavailable; alerts then go to the log only.
type AlertBus struct {
	AzservicebusClient *azservicebus.Client
	QueueName          string
}

func NewAlertBus(azServiceBusClient *azservicebus.Client, queueName string) IAlertBus {
	return &AlertBus{AzservicebusClient: azServiceBusClient, QueueName: queueName}
}

func (b *AlertBus) SendPauseAlert(ctx context.Context, alert *PauseAlert) error {
	if b.AzservicebusClient == nil {
		logger.GetLogger().
			WithField("channelId", alert.ChannelID).
			WithField("state", alert.State).
			Warn("Service Bus client is nil - pause alert logged only")
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	sender, err := b.AzservicebusClient.NewSender(b.QueueName, nil)
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

	sbMessage := &azservicebus.Message{Body: payload}
	if err = sender.SendMessage(ctx, sbMessage, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}

	return nil
}
