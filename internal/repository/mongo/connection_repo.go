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

const connectionCollectionName = "connections"

// mongoConnectionRepository implements repository.ConnectionRepository.
// Status mutations filter on the expected pre-state so the write itself is
// the compare-and-swap; there is no in-process locking.
type mongoConnectionRepository struct {
	collection *mongo.Collection
}

// NewMongoConnectionRepository creates a new Connection repository backed by MongoDB.
func NewMongoConnectionRepository(db *mongo.Database) repository.ConnectionRepository {
	return &mongoConnectionRepository{
		collection: db.Collection(connectionCollectionName),
	}
}

// Create inserts a new connection row. The partial unique index on
// (coachId, clientId) over non-terminal statuses backs the one-live-connection
// invariant; a duplicate insert surfaces as ErrConflict.
func (r *mongoConnectionRepository) Create(ctx context.Context, conn *domain.Connection) (primitive.ObjectID, error) {
	if conn.CoachID == primitive.NilObjectID || conn.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("connection requires coachId and clientId")
	}

	conn.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	conn.CreatedAt = now
	conn.UpdatedAt = now
	if conn.Status == "" {
		conn.Status = domain.StatusPendingRequest
	}

	result, err := r.collection.InsertOne(ctx, conn)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted connection ID")
	}
	return insertedID, nil
}

// GetByID retrieves a connection by its ID.
func (r *mongoConnectionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Connection, error) {
	var conn domain.Connection
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&conn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindNonTerminal returns the pair's live connection, if any.
func (r *mongoConnectionRepository) FindNonTerminal(ctx context.Context, coachID, clientID primitive.ObjectID) (*domain.Connection, error) {
	var conn domain.Connection
	filter := bson.M{
		"coachId":  coachID,
		"clientId": clientID,
		"status":   bson.M{"$in": domain.NonTerminalStatuses()},
	}

	err := r.collection.FindOne(ctx, filter).Decode(&conn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindActive returns the pair's connection only if it is currently active.
func (r *mongoConnectionRepository) FindActive(ctx context.Context, coachID, clientID primitive.ObjectID) (*domain.Connection, error) {
	var conn domain.Connection
	filter := bson.M{
		"coachId":  coachID,
		"clientId": clientID,
		"status":   domain.StatusActive,
	}

	err := r.collection.FindOne(ctx, filter).Decode(&conn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// TransitionStatus performs the conditional status write. MatchedCount == 0
// means the row either does not exist or is no longer in an expected status;
// callers re-read to tell the two apart.
func (r *mongoConnectionRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, to domain.ConnectionStatus, from ...domain.ConnectionStatus) error {
	if len(from) == 0 {
		return errors.New("at least one expected pre-state is required")
	}

	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{
		"status":    to,
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

// Activate moves a connection from pending_code to active and stamps
// connectedAt in the same write.
func (r *mongoConnectionRepository) Activate(ctx context.Context, id primitive.ObjectID, connectedAt time.Time) error {
	filter := bson.M{"_id": id, "status": domain.StatusPendingCode}
	update := bson.M{"$set": bson.M{
		"status":      domain.StatusActive,
		"connectedAt": connectedAt,
		"updatedAt":   time.Now().UTC(),
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

// CountActiveByCoach counts the coach's active connections for the capacity ledger.
func (r *mongoConnectionRepository) CountActiveByCoach(ctx context.Context, coachID primitive.ObjectID) (int64, error) {
	filter := bson.M{"coachId": coachID, "status": domain.StatusActive}
	return r.collection.CountDocuments(ctx, filter)
}

// ListByCoach retrieves a coach's connections, optionally filtered by status.
func (r *mongoConnectionRepository) ListByCoach(ctx context.Context, coachID primitive.ObjectID, status domain.ConnectionStatus) ([]domain.Connection, error) {
	filter := bson.M{"coachId": coachID}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter)
}

// ListByClient retrieves all connections a client is party to.
func (r *mongoConnectionRepository) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.Connection, error) {
	return r.find(ctx, bson.M{"clientId": clientID})
}

func (r *mongoConnectionRepository) find(ctx context.Context, filter bson.M) ([]domain.Connection, error) {
	var conns []domain.Connection
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &conns); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return conns, nil
}

// EnsureConnectionIndexes creates necessary indexes for the connections collection.
func EnsureConnectionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Partial unique index: at most one non-terminal connection per
			// (coach, client) pair. Terminal rows stay behind as audit history
			// and do not collide.
			Keys: bson.D{{Key: "coachId", Value: 1}, {Key: "clientId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": domain.NonTerminalStatuses()},
				}),
		},
		{
			// Capacity counts and coach dashboards filter on (coachId, status).
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index(),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create connection indexes", zap.Error(err))
	}
}
