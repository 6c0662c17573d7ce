package pubsub_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"video-autopilot/domain/model"
	"video-autopilot/infrastructure/pubsub"
)

// Pub/Sub is optional at startup; a nil client must publish as a no-op.
func TestCycleEvents_NilClient(t *testing.T) {
	cycleEvents := pubsub.NewCycleEvents(nil, "cycle-events")
	assert.NotNil(t, cycleEvents)

	serverId, err := cycleEvents.PublishCycle(context.Background(), &model.CycleAudit{
		CycleID:   "cycle-1",
		ChannelID: "ch-1",
		Status:    "published",
	})
	assert.NoError(t, err)
	assert.Empty(t, serverId)
}
