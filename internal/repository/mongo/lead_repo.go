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

const leadCollectionName = "coaching_leads"

// mongoLeadRepository implements repository.LeadRepository.
type mongoLeadRepository struct {
	collection *mongo.Collection
}

// NewMongoLeadRepository creates a new CoachingLead repository backed by MongoDB.
func NewMongoLeadRepository(db *mongo.Database) repository.LeadRepository {
	return &mongoLeadRepository{
		collection: db.Collection(leadCollectionName),
	}
}

// Create inserts a new coaching lead.
func (r *mongoLeadRepository) Create(ctx context.Context, lead *domain.CoachingLead) (primitive.ObjectID, error) {
	if lead.UserID == primitive.NilObjectID || lead.Goal == "" {
		return primitive.NilObjectID, errors.New("lead requires userId and goal")
	}

	lead.ID = primitive.NewObjectID()
	lead.CreatedAt = time.Now().UTC()
	if lead.Status == "" {
		lead.Status = domain.LeadNew
	}

	result, err := r.collection.InsertOne(ctx, lead)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted lead ID")
	}
	return insertedID, nil
}

// CountByUserSince counts the user's leads created at or after the cutoff.
// A range query rather than a stored next-eligible timestamp, so it tolerates
// clock skew to the resolution of the query.
func (r *mongoLeadRepository) CountByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	filter := bson.M{"userId": userID, "createdAt": bson.M{"$gte": since}}
	return r.collection.CountDocuments(ctx, filter)
}

// UpdateStatus sets the back-office processing status of a lead.
func (r *mongoLeadRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.LeadStatus) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List retrieves all leads, newest first.
func (r *mongoLeadRepository) List(ctx context.Context) ([]domain.CoachingLead, error) {
	var leads []domain.CoachingLead
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &leads); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return leads, nil
}

// EnsureLeadIndexes creates necessary indexes for the coaching_leads collection.
func EnsureLeadIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Throttle lookups count by (userId, createdAt).
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create lead indexes", zap.Error(err))
	}
}
