package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "dermsched/internal/slots/errors"
	"dermsched/pkg/config"
	mongotx "dermsched/pkg/db/mongo"
	"dermsched/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Availability_slots"
)

type SlotRepository interface {
	InsertMany(ctx context.Context, slots []*model.AvailabilitySlot) ([]string, error)
	FindByID(ctx context.Context, id string) (*model.AvailabilitySlot, error)
	FindByDermAndRange(ctx context.Context, dermatologistID string, start, end time.Time, status *model.SlotStatus) ([]*model.AvailabilitySlot, error)
	FindByIDs(ctx context.Context, dermatologistID string, ids []string) ([]*model.AvailabilitySlot, error)
	FindOverlapping(ctx context.Context, dermatologistID string, windowStart, windowEnd time.Time) ([]*model.AvailabilitySlot, error)
	DeleteByIDs(ctx context.Context, dermatologistID string, ids []string) (int64, error)
	Reserve(ctx context.Context, dermatologistID, appointmentID string, start, end time.Time) error
	Release(ctx context.Context, appointmentID string) (int64, error)
	MonthlySummary(ctx context.Context, dermatologistID string, monthStart, monthEnd time.Time) ([]model.DaySummary, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSlotRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// SessionContext cannot be wrapped without breaking transaction semantics, so
// inside a transaction the original context is returned with a no-op cancel.
func (r *mongoSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSlotRepository) InsertMany(ctx context.Context, slots []*model.AvailabilitySlot) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]interface{}, 0, len(slots))
	for _, slot := range slots {
		slot.CreatedAt = now
		docs = append(docs, slot)
	}

	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to insert slots: %w", err)
	}

	ids := make([]string, 0, len(result.InsertedIDs))
	for i, inserted := range result.InsertedIDs {
		if oid, ok := inserted.(primitive.ObjectID); ok {
			slots[i].ID = oid.Hex()
			ids = append(ids, oid.Hex())
		}
	}

	return ids, nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.AvailabilitySlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var slot model.AvailabilitySlot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) FindByDermAndRange(ctx context.Context, dermatologistID string, start, end time.Time, status *model.SlotStatus) ([]*model.AvailabilitySlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"dermatologist_id": dermatologistID,
		"start_time":       bson.M{"$gte": start, "$lt": end},
	}
	if status != nil {
		filter["status"] = *status
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.AvailabilitySlot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) FindByIDs(ctx context.Context, dermatologistID string, ids []string) ([]*model.AvailabilitySlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":              bson.M{"$in": objectIDs},
		"dermatologist_id": dermatologistID,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots by IDs: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.AvailabilitySlot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

// FindOverlapping returns every slot of the dermatologist that intersects
// the half-open window [windowStart, windowEnd).
func (r *mongoSlotRepository) FindOverlapping(ctx context.Context, dermatologistID string, windowStart, windowEnd time.Time) ([]*model.AvailabilitySlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"dermatologist_id": dermatologistID,
		"start_time":       bson.M{"$lt": windowEnd},
		"end_time":         bson.M{"$gt": windowStart},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.AvailabilitySlot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

// DeleteByIDs removes only AVAILABLE slots. Booked slots in the given set
// are left untouched; the service decides beforehand whether that is an
// error.
func (r *mongoSlotRepository) DeleteByIDs(ctx context.Context, dermatologistID string, ids []string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	filter := bson.M{
		"_id":              bson.M{"$in": objectIDs},
		"dermatologist_id": dermatologistID,
		"status":           model.SlotStatusAvailable,
	}

	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete slots: %w", err)
	}

	return result.DeletedCount, nil
}

// Reserve flips a single AVAILABLE slot with the exact time range to
// BOOKED. A zero match means the slot is gone, already booked, or the
// range does not line up with a slot boundary.
func (r *mongoSlotRepository) Reserve(ctx context.Context, dermatologistID, appointmentID string, start, end time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"dermatologist_id": dermatologistID,
		"start_time":       start,
		"end_time":         end,
		"status":           model.SlotStatusAvailable,
	}
	update := bson.M{
		"$set": bson.M{
			"status":         model.SlotStatusBooked,
			"appointment_id": appointmentID,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reserve slot: %w", err)
	}

	if result.MatchedCount == 0 {
		return slotserrors.ErrNotFound
	}

	return nil
}

// Release returns every slot held by the appointment to AVAILABLE.
func (r *mongoSlotRepository) Release(ctx context.Context, appointmentID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"appointment_id": appointmentID,
		"status":         model.SlotStatusBooked,
	}
	update := bson.M{
		"$set":   bson.M{"status": model.SlotStatusAvailable},
		"$unset": bson.M{"appointment_id": ""},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to release slots: %w", err)
	}

	return result.ModifiedCount, nil
}

// MonthlySummary groups the month's slots by calendar day and counts
// available and booked slots per day.
func (r *mongoSlotRepository) MonthlySummary(ctx context.Context, dermatologistID string, monthStart, monthEnd time.Time) ([]model.DaySummary, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"dermatologist_id": dermatologistID,
			"start_time":       bson.M{"$gte": monthStart, "$lt": monthEnd},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d",
				"date":   "$start_time",
			}},
			"available": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", model.SlotStatusAvailable}}, 1, 0,
			}}},
			"booked": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", model.SlotStatusBooked}}, 1, 0,
			}}},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate slot summary: %w", err)
	}
	defer cursor.Close(ctx)

	var days []model.DaySummary
	if err = cursor.All(ctx, &days); err != nil {
		return nil, fmt.Errorf("failed to decode slot summary: %w", err)
	}

	return days, nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, oid)
	}
	return objectIDs, nil
}
