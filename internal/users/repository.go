package users

import (
	"context"
	"time"

	"github.com/gogotex/siteauth/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Record is the directory entry for an account that has signed in at least once.
type Record struct {
	models.User  `bson:",inline"`
	FirstLoginAt time.Time `bson:"firstLoginAt" json:"firstLoginAt"`
	LastLoginAt  time.Time `bson:"lastLoginAt" json:"lastLoginAt"`
	LoginCount   int64     `bson:"loginCount" json:"loginCount"`
}

// UserRepository defines persistence operations for users
type UserRepository interface {
	UpsertLogin(ctx context.Context, u *models.User, at time.Time) (*Record, error)
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

// EnsureIndexes makes sub unique so concurrent first logins collapse into one record.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sub", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoUserRepository) UpsertLogin(ctx context.Context, u *models.User, at time.Time) (*Record, error) {
	filter := bson.M{"sub": u.Sub}
	update := bson.M{
		"$set": bson.M{
			"name":          u.Name,
			"email":         u.Email,
			"emailVerified": u.EmailVerified,
			"picture":       u.Picture,
			"hd":            u.HD,
			"lastLoginAt":   at,
		},
		"$setOnInsert": bson.M{"firstLoginAt": at},
		"$inc":         bson.M{"loginCount": 1},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var rec Record
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
