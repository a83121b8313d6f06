package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sloterrors "clipbook/internal/slots/errors"
	"clipbook/pkg/config"
	mongotx "clipbook/pkg/db/mongo"
	"clipbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Time_slots"
)

type SlotRepository interface {
	EnsureSlot(ctx context.Context, date time.Time, timeLabel string, status model.SlotStatus) (bool, error)
	FindByID(ctx context.Context, id string) (*model.TimeSlot, error)
	FindByDateTime(ctx context.Context, date time.Time, timeLabel string) (*model.TimeSlot, error)
	FindInRange(ctx context.Context, from, to time.Time) ([]*model.TimeSlot, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.TimeSlot, error)
	Count(ctx context.Context) (int64, error)
	UpdateStatusWhere(ctx context.Context, date time.Time, timeLabel string, current, next model.SlotStatus, booked bool) error
	SetStatusByID(ctx context.Context, id string, status model.SlotStatus, booked bool) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless the call is already part
// of a transaction; a SessionContext cannot be wrapped without breaking
// transaction semantics.
func (r *mongoSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// EnsureSlot inserts a slot for (date, timeLabel) if none exists. Returns
// whether a new record was created. A duplicate-key error from the unique
// (date, time) index counts as "already present", keeping concurrent seeding
// sweeps idempotent.
func (r *mongoSlotRepository) EnsureSlot(ctx context.Context, date time.Time, timeLabel string, status model.SlotStatus) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"date": date, "time": timeLabel})
	if err != nil {
		return false, fmt.Errorf("failed to check for existing slot: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	slot := &model.TimeSlot{
		Date:   date,
		Time:   timeLabel,
		Status: status,
		Booked: false,
	}
	if _, err := r.collection.InsertOne(ctx, slot); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create slot: %w", err)
	}
	return true, nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.TimeSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", sloterrors.ErrInvalidID, id)
	}

	var slot model.TimeSlot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sloterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) FindByDateTime(ctx context.Context, date time.Time, timeLabel string) (*model.TimeSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var slot model.TimeSlot
	err := r.collection.FindOne(ctx, bson.M{"date": date, "time": timeLabel}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sloterrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) FindInRange(ctx context.Context, from, to time.Time) ([]*model.TimeSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"date": bson.M{"$gte": from, "$lt": to}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots in range: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.TimeSlot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.TimeSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.TimeSlot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}

	return count, nil
}

// UpdateStatusWhere is the atomic check-and-flip: the slot transitions from
// current to next only if it is still in current. ErrStatusConflict means no
// document matched, so the slot is either missing or already transitioned.
func (r *mongoSlotRepository) UpdateStatusWhere(ctx context.Context, date time.Time, timeLabel string, current, next model.SlotStatus, booked bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"date": date, "time": timeLabel, "status": current}
	update := bson.M{"$set": bson.M{"status": next, "booked": booked}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update slot status: %w", err)
	}
	if result.MatchedCount == 0 {
		return sloterrors.ErrStatusConflict
	}

	return nil
}

func (r *mongoSlotRepository) SetStatusByID(ctx context.Context, id string, status model.SlotStatus, booked bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", sloterrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{"$set": bson.M{"status": status, "booked": booked}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set slot status: %w", err)
	}
	if result.MatchedCount == 0 {
		return sloterrors.ErrNotFound
	}

	return nil
}

func (r *mongoSlotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"date": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired slots: %w", err)
	}

	return result.DeletedCount, nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
