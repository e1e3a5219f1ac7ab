package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gatehouse-dev/gatehouse/internal/models"
)

// AuditStore records authentication events in MongoDB.
type AuditStore struct {
	col *mongo.Collection
}

func NewAuditStore(db *mongo.Database) *AuditStore {
	return &AuditStore{col: db.Collection("auth_events")}
}

func (s *AuditStore) Record(ctx context.Context, ev *models.AuthEvent) error {
	ev.CreatedAt = time.Now()
	if _, err := s.col.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

// ListRecent returns the newest events first, up to limit.
func (s *AuditStore) ListRecent(ctx context.Context, limit int64) ([]models.AuthEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []models.AuthEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
