package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crmadmin/access-core/internal/core/domain"
)

const collectionAuthEvents = "auth_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewAuditRepository(db *mongo.Database, timeout time.Duration) *AuditRepository {
	return &AuditRepository{coll: db.Collection(collectionAuthEvents), timeout: timeoutOr(timeout)}
}

// InsertEvent persists an auth event to the auth_events audit collection.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := bson.M{
		"type":        string(event.Type),
		"email":       event.Email,
		"timestamp":   event.Timestamp.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if event.ID != "" {
		doc["_id"] = event.ID
	}
	if event.UserID != "" {
		doc["user_id"] = event.UserID
	}
	if event.Section != "" {
		doc["section"] = string(event.Section)
		doc["action"] = string(event.Action)
	}
	if event.Reason != "" {
		doc["reason"] = event.Reason
	}
	if event.RemoteIP != "" {
		doc["remote_ip"] = event.RemoteIP
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// EnsureIndexes creates lookup indexes on the auth_events collection.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("auth_events indexes: %w", err)
	}
	return nil
}
