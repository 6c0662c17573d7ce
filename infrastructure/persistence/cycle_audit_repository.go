package persistence

import (
	"context"

	"video-autopilot/domain/model"
	"video-autopilot/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CycleAuditRepository records publish cycle outcomes in Mongo. The client
// may be nil when Mongo is unavailable; all operations then become no-ops so
// the fleet keeps running without the audit trail.
type CycleAuditRepository struct {
	mongoDb *mongo.Client
}

func NewCycleAuditRepository(client *mongo.Client) *CycleAuditRepository {
	return &CycleAuditRepository{mongoDb: client}
}

func (r *CycleAuditRepository) collection() *mongo.Collection {
	return r.mongoDb.Database("video_autopilot").Collection("cycle_audits")
}

func (r *CycleAuditRepository) Record(ctx context.Context, audit *model.CycleAudit) error {
	if r.mongoDb == nil {
		logger.GetLogger().Debug("Mongo client is nil - skipping cycle audit")
		return nil
	}
	_, err := r.collection().InsertOne(ctx, audit)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while recording cycle audit")
	}
	return err
}

func (r *CycleAuditRepository) RecentByChannel(ctx context.Context, channelID string, limit int) ([]*model.CycleAudit, error) {
	if r.mongoDb == nil {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "finished_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.collection().Find(ctx, bson.D{{Key: "channel_id", Value: channelID}}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := cursor.Close(ctx); cerr != nil {
			logger.GetLogger().WithField("error", cerr).Error("Error while closing cursor")
		}
	}()

	var audits []*model.CycleAudit
	for cursor.Next(ctx) {
		var a model.CycleAudit
		if err := cursor.Decode(&a); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding cycle audit")
			continue
		}
		audits = append(audits, &a)
	}
	return audits, cursor.Err()
}
