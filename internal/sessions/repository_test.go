package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func sessionDoc(id string, expiresAt time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "user", Value: bson.D{{Key: "sub", Value: "u1"}, {Key: "email", Value: "a@b.test"}, {Key: "emailVerified", Value: true}}},
		{Key: "createdAt", Value: expiresAt.Add(-24 * time.Hour)},
		{Key: "expiresAt", Value: expiresAt},
	}
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get returns stored session", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			sessionDoc("s1", time.Now().UTC().Add(time.Hour))))

		s, err := repo.Get(ctx, "s1")
		require.NoError(mt, err)
		require.NotNil(mt, s)
		require.Equal(mt, "s1", s.ID)
		require.NotNil(mt, s.User)
		require.Equal(mt, "u1", s.User.Sub)
		require.True(mt, s.User.EmailVerified)
		require.Equal(mt, "find", mt.GetStartedEvent().CommandName)
	})

	mt.Run("get unknown id", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		s, err := repo.Get(ctx, "nope")
		require.NoError(mt, err)
		require.Nil(mt, s)
	})

	mt.Run("get expired session deletes it", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, sessionDoc("old", time.Now().UTC().Add(-time.Minute))),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		s, err := repo.Get(ctx, "old")
		require.NoError(mt, err)
		require.Nil(mt, s)
		require.Equal(mt, "find", mt.GetStartedEvent().CommandName)
		require.Equal(mt, "delete", mt.GetStartedEvent().CommandName)
	})

	mt.Run("get surfaces server errors", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not authorized",
		}))

		_, err := repo.Get(ctx, "s1")
		require.Error(mt, err)
	})

	mt.Run("set upserts", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))

		now := time.Now().UTC()
		require.NoError(mt, repo.Set(ctx, &Session{ID: "s1", State: "st", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
		require.Equal(mt, "update", mt.GetStartedEvent().CommandName)
	})

	mt.Run("destroy", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, repo.Destroy(ctx, "s1"))
		require.Equal(mt, "delete", mt.GetStartedEvent().CommandName)
	})

	mt.Run("set surfaces write errors", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		require.Error(mt, repo.Set(ctx, &Session{ID: "s1"}))
	})
}
