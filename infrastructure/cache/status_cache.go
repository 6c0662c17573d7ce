package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"video-autopilot/domain/dto"
	"video-autopilot/infrastructure/logger"
)

const healthKey = "fleet:health"

// StatusCache keeps the latest fleet health snapshot in Redis so the ops API
// can serve it without walking every repository on each request. The client
// may be nil when Redis is unavailable; the cache then degrades to a miss.
type StatusCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewStatusCache(redisClient *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{redisClient: redisClient, ttl: ttl}
}

func (c *StatusCache) SetHealth(ctx context.Context, health *dto.FleetHealth) {
	if c.redisClient == nil {
		return
	}
	payload, err := json.Marshal(health)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while marshaling fleet health")
		return
	}
	if err := c.redisClient.Set(ctx, healthKey, payload, c.ttl).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while caching fleet health")
	}
}

// GetHealth returns the cached snapshot, or nil on a miss or when Redis is
// not configured.
func (c *StatusCache) GetHealth(ctx context.Context) *dto.FleetHealth {
	if c.redisClient == nil {
		return nil
	}
	payload, err := c.redisClient.Get(ctx, healthKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.GetLogger().WithField("error", err).Error("Error while reading cached fleet health")
		}
		return nil
	}
	health := &dto.FleetHealth{}
	if err := json.Unmarshal(payload, health); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while unmarshaling cached fleet health")
		return nil
	}
	return health
}
