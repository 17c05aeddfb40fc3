package mongo

import (
	"context"
	"errors"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/logger"
	"mealcoach/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const inviteCodeCollectionName = "invite_codes"

// mongoInviteCodeRepository implements repository.InviteCodeRepository.
type mongoInviteCodeRepository struct {
	collection *mongo.Collection
}

// NewMongoInviteCodeRepository creates a new InviteCode repository backed by MongoDB.
func NewMongoInviteCodeRepository(db *mongo.Database) repository.InviteCodeRepository {
	return &mongoInviteCodeRepository{
		collection: db.Collection(inviteCodeCollectionName),
	}
}

// Create inserts a freshly issued code.
func (r *mongoInviteCodeRepository) Create(ctx context.Context, code *domain.InviteCode) (primitive.ObjectID, error) {
	if code.ConnectionID == primitive.NilObjectID || code.Code == "" {
		return primitive.NilObjectID, errors.New("invite code requires connectionId and code")
	}

	code.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, code)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted invite code ID")
	}
	return insertedID, nil
}

// GetUnconsumed returns the connection's live code. Expired-but-unconsumed
// docs are still returned; the verifier checks expiresAt itself.
func (r *mongoInviteCodeRepository) GetUnconsumed(ctx context.Context, connectionID primitive.ObjectID) (*domain.InviteCode, error) {
	var code domain.InviteCode
	filter := bson.M{"connectionId": connectionID, "consumedAt": nil}

	err := r.collection.FindOne(ctx, filter).Decode(&code)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &code, nil
}

// DeleteUnconsumed removes the connection's live code, if any. Called before
// issuing a replacement so at most one unconsumed code exists per connection.
func (r *mongoInviteCodeRepository) DeleteUnconsumed(ctx context.Context, connectionID primitive.ObjectID) error {
	filter := bson.M{"connectionId": connectionID, "consumedAt": nil}
	_, err := r.collection.DeleteMany(ctx, filter)
	return err
}

// Consume marks the matching live code as used. The consumedAt == nil filter
// makes the write the compare-and-swap: only one of two racing verification
// attempts can match.
func (r *mongoInviteCodeRepository) Consume(ctx context.Context, connectionID primitive.ObjectID, code string, consumedAt time.Time) error {
	filter := bson.M{"connectionId": connectionID, "code": code, "consumedAt": nil}
	update := bson.M{"$set": bson.M{"consumedAt": consumedAt}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrStaleStatus
	}
	return nil
}

// EnsureInviteCodeIndexes creates necessary indexes for the invite_codes collection.
func EnsureInviteCodeIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One live code per connection. Consumed docs fall out of the
			// partial index and stay behind for audit.
			Keys: bson.D{{Key: "connectionId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"consumedAt": bson.M{"$type": "null"}}),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create invite code indexes", zap.Error(err))
	}
}
