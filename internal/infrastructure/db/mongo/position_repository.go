package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crmadmin/access-core/internal/core/domain"
)

const collectionPositions = "positions"

// PositionRepository implements ports.PositionRepository using MongoDB.
type PositionRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewPositionRepository(db *mongo.Database, timeout time.Duration) *PositionRepository {
	return &PositionRepository{coll: db.Collection(collectionPositions), timeout: timeoutOr(timeout)}
}

type mongoPosition struct {
	ID          string                     `bson:"_id"`
	Name        string                     `bson:"name"`
	Level       int                        `bson:"level"`
	Permissions map[string]map[string]bool `bson:"permissions"`
}

func toMongoPosition(p *domain.Position) mongoPosition {
	perms := make(map[string]map[string]bool, len(p.Permissions))
	for section, actions := range p.Permissions {
		m := make(map[string]bool, len(actions))
		for a, ok := range actions {
			m[string(a)] = ok
		}
		perms[string(section)] = m
	}
	return mongoPosition{ID: p.ID, Name: p.Name, Level: p.Level, Permissions: perms}
}

func (mp mongoPosition) toDomain() *domain.Position {
	p := &domain.Position{
		ID:          mp.ID,
		Name:        mp.Name,
		Level:       mp.Level,
		Permissions: make(domain.Permissions, len(mp.Permissions)),
	}
	for section, actions := range mp.Permissions {
		m := make(map[domain.Action]bool, len(actions))
		for a, ok := range actions {
			m[domain.Action(a)] = ok
		}
		p.Permissions[domain.Section(section)] = m
	}
	p.Normalize()
	return p
}

func (r *PositionRepository) FindByID(ctx context.Context, id string) (*domain.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var mp mongoPosition
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("find position: %w", err)
	}
	return mp.toDomain(), nil
}

// List returns every position ordered by descending level.
func (r *PositionRepository) List(ctx context.Context) ([]*domain.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "level", Value: -1}, {Key: "name", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoPosition
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	out := make([]*domain.Position, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *PositionRepository) Upsert(ctx context.Context, p *domain.Position) error {
	if p.ID == "" {
		return fmt.Errorf("upsert position: empty id")
	}
	p.Normalize()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, toMongoPosition(p), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}
