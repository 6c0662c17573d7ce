package servicebus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"video-autopilot/infrastructure/servicebus"
)

// Service Bus is optional at startup; a nil client must degrade to logging.
func TestAlertBus_NilClient(t *testing.T) {
	alertBus := servicebus.NewAlertBus(nil, "fleet-alerts")
	assert.NotNil(t, alertBus)

	err := alertBus.SendPauseAlert(context.Background(), &servicebus.PauseAlert{
		ChannelID: "ch-1",
		State:     "paused_auth",
		Reason:    "token refresh failed after 5 attempts",
		RaisedAt:  time.Now().UTC(),
	})
	assert.NoError(t, err)
}
