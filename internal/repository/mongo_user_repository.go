package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/example/face-auth/internal/face"
)

// mongoUser mirrors the fields of the shared users collection this service touches.
type mongoUser struct {
	ID         primitive.ObjectID `bson:"_id"`
	Role       string             `bson:"role"`
	HasFaceID  bool               `bson:"hasFaceId"`
	FaceVector []float64          `bson:"faceVector,omitempty"`
}

// MongoUserRepository reads and updates face data on documents of a users
// collection shared with the account service.
type MongoUserRepository struct {
	coll *mongo.Collection
	retryPolicy
}

// ConnectMongo opens a client and pings the primary.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// NewMongoUserRepository wraps a users collection.
func NewMongoUserRepository(coll *mongo.Collection, logger *zap.Logger) *MongoUserRepository {
	return &MongoUserRepository{coll: coll, retryPolicy: defaultRetryPolicy(logger.Named("mongo_user_repository"))}
}

// FindUser loads a user by ObjectID hex.
func (r *MongoUserRepository) FindUser(ctx context.Context, userID string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	var doc mongoUser
	err = r.executeWithRetry(ctx, "repository.mongo_find_user", "", func() error {
		return r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toUser(), nil
}

// SaveFaceVector sets faceVector and hasFaceId with a single $set. A re-registration
// that writes an identical vector still counts as success.
func (r *MongoUserRepository) SaveFaceVector(ctx context.Context, userID string, vec face.FeatureVector) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrInvalidUserID
	}
	values := make([]float64, len(vec))
	for i, v := range vec {
		values[i] = float64(v)
	}
	return r.executeWithRetry(ctx, "repository.mongo_save_face_vector", "", func() error {
		res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
			"faceVector": values,
			"hasFaceId":  true,
		}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (d mongoUser) toUser() *User {
	u := &User{ID: d.ID.Hex(), Role: d.Role, HasFaceID: d.HasFaceID}
	if len(d.FaceVector) > 0 {
		u.FaceVector = make(Vector, len(d.FaceVector))
		for i, v := range d.FaceVector {
			u.FaceVector[i] = float32(v)
		}
	}
	return u
}
