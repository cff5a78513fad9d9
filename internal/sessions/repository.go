package sessions

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository provides session persistence keyed by session id.
// Get returns (nil, nil) for unknown or expired sessions.
type Repository interface {
	Get(ctx context.Context, id string) (*Session, error)
	Set(ctx context.Context, s *Session) error
	Destroy(ctx context.Context, id string) error
}

// Pinger is implemented by repositories backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes lets MongoDB reap sessions once expiresAt has passed.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	// the TTL monitor runs once a minute, so expiry is checked here too
	if s.Expired(time.Now().UTC()) {
		_ = r.Destroy(ctx, id)
		return nil, nil
	}
	return &s, nil
}

func (r *MongoRepository) Set(ctx context.Context, s *Session) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.ID}, s, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepository) Destroy(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}
