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

const reminderCollectionName = "reminder_requests"

// mongoReminderRepository implements repository.ReminderRepository.
type mongoReminderRepository struct {
	collection *mongo.Collection
}

// NewMongoReminderRepository creates a new Reminder repository backed by MongoDB.
func NewMongoReminderRepository(db *mongo.Database) repository.ReminderRepository {
	return &mongoReminderRepository{
		collection: db.Collection(reminderCollectionName),
	}
}

// Create inserts a new reminder request.
func (r *mongoReminderRepository) Create(ctx context.Context, reminder *domain.ReminderRequest) (primitive.ObjectID, error) {
	if reminder.CoachID == primitive.NilObjectID || reminder.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("reminder requires coachId and clientId")
	}
	if !reminder.Kind.Valid() {
		return primitive.NilObjectID, errors.New("unknown reminder kind")
	}

	reminder.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now
	if reminder.Status == "" {
		reminder.Status = domain.ReminderPending
	}

	result, err := r.collection.InsertOne(ctx, reminder)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted reminder ID")
	}
	return insertedID, nil
}

// GetByID retrieves a reminder by its ID.
func (r *mongoReminderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ReminderRequest, error) {
	var reminder domain.ReminderRequest
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&reminder)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &reminder, nil
}

// Complete moves a single reminder from pending to completed.
func (r *mongoReminderRepository) Complete(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id, "status": domain.ReminderPending}
	update := bson.M{"$set": bson.M{
		"status":    domain.ReminderCompleted,
		"updatedAt": time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrStaleStatus
	}
	return nil
}

// CompletePendingByKind completes every pending reminder of the kind for the
// client in one write.
func (r *mongoReminderRepository) CompletePendingByKind(ctx context.Context, clientID primitive.ObjectID, kind domain.ReminderKind) error {
	filter := bson.M{"clientId": clientID, "kind": kind, "status": domain.ReminderPending}
	update := bson.M{"$set": bson.M{
		"status":    domain.ReminderCompleted,
		"updatedAt": time.Now().UTC(),
	}}

	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// ListByCoach retrieves reminders sent by the coach, newest first.
func (r *mongoReminderRepository) ListByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.ReminderRequest, error) {
	return r.find(ctx, bson.M{"coachId": coachID})
}

// ListByClient retrieves reminders addressed to the client, newest first.
func (r *mongoReminderRepository) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ReminderRequest, error) {
	return r.find(ctx, bson.M{"clientId": clientID})
}

func (r *mongoReminderRepository) find(ctx context.Context, filter bson.M) ([]domain.ReminderRequest, error) {
	var reminders []domain.ReminderRequest
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &reminders); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}

// EnsureReminderIndexes creates necessary indexes for the reminder_requests collection.
func EnsureReminderIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// The logging flow completes by (clientId, kind, status).
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "kind", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create reminder indexes", zap.Error(err))
	}
}
