package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	slotserrors "dermsched/internal/slots/errors"
	"dermsched/internal/slots/planner"
	"dermsched/internal/slots/repository"
	"dermsched/pkg/config"
	apperrors "dermsched/pkg/errors"
	"dermsched/pkg/kafka"
	"dermsched/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ServiceName = "slots"
)

// EventPublisher is the slice of the Kafka producer the service needs.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type SlotService interface {
	CreateBatch(ctx context.Context, dermatologistID string, req *model.CreateSlotsBatchRequest) (*model.CreateSlotsBatchResult, error)
	GetRange(ctx context.Context, dermatologistID string, start, end *time.Time, status *model.SlotStatus) ([]*model.AvailabilitySlot, error)
	GetSummary(ctx context.Context, dermatologistID string, month, year int) (*model.AvailabilitySummary, error)
	DeleteOne(ctx context.Context, dermatologistID, slotID string) error
	DeleteBatch(ctx context.Context, dermatologistID string, req *model.DeleteSlotsBatchRequest) (*model.DeleteSlotsBatchResult, error)
	Reserve(ctx context.Context, event *model.AppointmentEvent) error
	Release(ctx context.Context, appointmentID string) error
}

type slotService struct {
	repo      repository.SlotRepository
	lockRepo  repository.SlotLockRepository
	publisher EventPublisher
	cfg       *config.Config
	now       func() time.Time
}

func NewSlotService(
	repo repository.SlotRepository,
	lockRepo repository.SlotLockRepository,
	publisher EventPublisher,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		lockRepo:  lockRepo,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateBatch expands the request's blocks into slot-sized candidates and
// persists them all or not at all. Every candidate must start in the
// future and inside the advance window, and no candidate may overlap
// another candidate or an existing slot of the same practitioner.
func (s *slotService) CreateBatch(ctx context.Context, dermatologistID string, req *model.CreateSlotsBatchRequest) (*model.CreateSlotsBatchResult, error) {
	if dermatologistID == "" {
		return nil, apperrors.InvalidInput("Dermatologist ID cannot be empty")
	}
	if req == nil || len(req.Blocks) == 0 {
		return nil, apperrors.InvalidInput("At least one slot block is required")
	}

	candidates, err := s.expandBlocks(dermatologistID, req.Blocks)
	if err != nil {
		return nil, err
	}

	if err := s.checkTimeWindow(candidates); err != nil {
		return nil, err
	}
	if err := s.checkSelfOverlap(candidates); err != nil {
		return nil, err
	}

	lockID, err := s.acquireBatchLock(ctx, dermatologistID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseBatchLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot batch lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	var insertedIDs []string
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoExistingOverlap(sessCtx, dermatologistID, candidates); err != nil {
			return err
		}

		ids, err := s.repo.InsertMany(sessCtx, candidates)
		if err != nil {
			return apperrors.Internal("Failed to create slots", err)
		}
		insertedIDs = ids
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create slot batch", "dermatologist_id", dermatologistID, "error", err)
		return nil, err
	}

	s.publishBatchEvent(ctx, model.EventSlotBatchCreated, dermatologistID, insertedIDs)

	s.cfg.Log.Info("Slot batch created",
		"dermatologist_id", dermatologistID,
		"blocks", len(req.Blocks),
		"slots", len(insertedIDs),
	)

	return &model.CreateSlotsBatchResult{
		CreatedCount: len(insertedIDs),
		Message:      fmt.Sprintf("%d slots created", len(insertedIDs)),
	}, nil
}

func (s *slotService) expandBlocks(dermatologistID string, blocks []model.SlotBlock) ([]*model.AvailabilitySlot, error) {
	var candidates []*model.AvailabilitySlot

	for i, block := range blocks {
		if block.SlotDurationMinutes < s.cfg.MinSlotDurationMin {
			return nil, apperrors.Validation("Slot duration below minimum", map[string]any{
				"block":       i,
				"minimum_min": s.cfg.MinSlotDurationMin,
			})
		}
		if !block.EndTime.After(block.StartTime) {
			return nil, apperrors.Validation("Block end time must be after start time", map[string]any{
				"block": i,
			})
		}

		intervals := planner.PartitionBlock(block.StartTime, block.EndTime, block.SlotDurationMinutes)
		if len(intervals) == 0 {
			return nil, apperrors.Validation("Block is shorter than one slot", map[string]any{
				"block": i,
			})
		}

		for _, interval := range intervals {
			candidates = append(candidates, &model.AvailabilitySlot{
				DermatologistID: dermatologistID,
				StartTime:       interval.Start,
				EndTime:         interval.End,
				Status:          model.SlotStatusAvailable,
				Price:           block.Price,
			})
		}
	}

	return candidates, nil
}

func (s *slotService) checkTimeWindow(candidates []*model.AvailabilitySlot) error {
	now := s.now()
	horizon := now.AddDate(0, 0, s.cfg.MaxAdvanceDays)

	for _, slot := range candidates {
		if slot.StartTime.Before(now) {
			return apperrors.Validation("Slots cannot start in the past", map[string]any{
				"start_time": slot.StartTime.Format(time.RFC3339),
			})
		}
		if slot.StartTime.After(horizon) {
			return apperrors.Validation(
				fmt.Sprintf("Slots cannot start more than %d days ahead", s.cfg.MaxAdvanceDays),
				map[string]any{"start_time": slot.StartTime.Format(time.RFC3339)},
			)
		}
	}

	return nil
}

// checkSelfOverlap reports the first overlapping pair within the batch
// itself, in chronological order.
func (s *slotService) checkSelfOverlap(candidates []*model.AvailabilitySlot) error {
	if len(candidates) < 2 {
		return nil
	}

	sorted := make([]*model.AvailabilitySlot, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].StartTime.Before(sorted[b].StartTime)
	})

	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		if prev.EndTime.After(curr.StartTime) {
			return apperrors.Conflict(fmt.Sprintf(
				"Requested slots overlap each other (%s and %s)",
				prev.StartTime.Format(time.RFC3339),
				curr.StartTime.Format(time.RFC3339),
			))
		}
	}

	return nil
}

func (s *slotService) verifyNoExistingOverlap(ctx context.Context, dermatologistID string, candidates []*model.AvailabilitySlot) error {
	windowStart, windowEnd := candidates[0].StartTime, candidates[0].EndTime
	for _, slot := range candidates[1:] {
		if slot.StartTime.Before(windowStart) {
			windowStart = slot.StartTime
		}
		if slot.EndTime.After(windowEnd) {
			windowEnd = slot.EndTime
		}
	}

	existing, err := s.repo.FindOverlapping(ctx, dermatologistID, windowStart, windowEnd)
	if err != nil {
		return apperrors.Internal("Failed to check existing slots", err)
	}

	for _, e := range existing {
		for _, c := range candidates {
			if overlaps(e.StartTime, e.EndTime, c.StartTime, c.EndTime) {
				return apperrors.Conflict(fmt.Sprintf(
					"Slot overlaps an existing slot (%s - %s)",
					e.StartTime.Format(time.RFC3339),
					e.EndTime.Format(time.RFC3339),
				))
			}
		}
	}

	return nil
}

func overlaps(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && end1.After(start2)
}

// GetRange returns the practitioner's slots in [start, end), sorted by
// start time. Missing bounds default to the configured fetch window
// around now.
func (s *slotService) GetRange(ctx context.Context, dermatologistID string, start, end *time.Time, status *model.SlotStatus) ([]*model.AvailabilitySlot, error) {
	if dermatologistID == "" {
		return nil, apperrors.InvalidInput("Dermatologist ID cannot be empty")
	}

	now := s.now()
	from := now.AddDate(0, 0, -s.cfg.FetchWindowPastDays)
	to := now.AddDate(0, 0, s.cfg.FetchWindowFutureDays)
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}

	if !to.After(from) {
		return nil, apperrors.InvalidInput("End of range must be after its start")
	}

	slots, err := s.repo.FindByDermAndRange(ctx, dermatologistID, from, to, status)
	if err != nil {
		s.cfg.Log.Error("Failed to fetch slots", "dermatologist_id", dermatologistID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}

	return slots, nil
}

func (s *slotService) GetSummary(ctx context.Context, dermatologistID string, month, year int) (*model.AvailabilitySummary, error) {
	if dermatologistID == "" {
		return nil, apperrors.InvalidInput("Dermatologist ID cannot be empty")
	}
	if month < 1 || month > 12 {
		return nil, apperrors.InvalidInput("Month must be between 1 and 12")
	}
	if year < 1970 {
		return nil, apperrors.InvalidInput("Year is out of range")
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	days, err := s.repo.MonthlySummary(ctx, dermatologistID, monthStart, monthEnd)
	if err != nil {
		s.cfg.Log.Error("Failed to build slot summary", "dermatologist_id", dermatologistID, "error", err)
		return nil, apperrors.Internal("Failed to build slot summary", err)
	}

	return &model.AvailabilitySummary{
		Month: month,
		Year:  year,
		Days:  days,
	}, nil
}

func (s *slotService) DeleteOne(ctx context.Context, dermatologistID, slotID string) error {
	if dermatologistID == "" {
		return apperrors.InvalidInput("Dermatologist ID cannot be empty")
	}
	if slotID == "" {
		return apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Slot", slotID)
		}
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid slot ID format")
		}
		return apperrors.Internal("Failed to retrieve slot", err)
	}

	if slot.DermatologistID != dermatologistID {
		return apperrors.Forbidden("Slot belongs to another dermatologist")
	}
	if !slot.IsDeletable() {
		return apperrors.StaleState("Slot is booked and cannot be removed")
	}

	deleted, err := s.repo.DeleteByIDs(ctx, dermatologistID, []string{slotID})
	if err != nil {
		return apperrors.Internal("Failed to delete slot", err)
	}
	if deleted == 0 {
		// Booked between the read and the delete.
		return apperrors.StaleState("Slot is booked and cannot be removed")
	}

	s.publishBatchEvent(ctx, model.EventSlotBatchDeleted, dermatologistID, []string{slotID})

	s.cfg.Log.Info("Slot deleted", "dermatologist_id", dermatologistID, "slot_id", slotID)
	return nil
}

// DeleteBatch removes a set of the practitioner's slots. If any slot in
// the set is booked, nothing is removed.
func (s *slotService) DeleteBatch(ctx context.Context, dermatologistID string, req *model.DeleteSlotsBatchRequest) (*model.DeleteSlotsBatchResult, error) {
	if dermatologistID == "" {
		return nil, apperrors.InvalidInput("Dermatologist ID cannot be empty")
	}
	if req == nil || len(req.SlotIDs) == 0 {
		return nil, apperrors.InvalidInput("At least one slot ID is required")
	}

	lockID, err := s.acquireBatchLock(ctx, dermatologistID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseBatchLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot batch lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	var deletedCount int64
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		slots, err := s.repo.FindByIDs(sessCtx, dermatologistID, req.SlotIDs)
		if err != nil {
			if errors.Is(err, slotserrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid slot ID format")
			}
			return apperrors.Internal("Failed to retrieve slots", err)
		}

		if len(slots) != len(req.SlotIDs) {
			return apperrors.NotFound("One or more slots")
		}

		for _, slot := range slots {
			if !slot.IsDeletable() {
				return apperrors.StaleState(fmt.Sprintf(
					"Slot starting %s is booked; batch not removed",
					slot.StartTime.Format(time.RFC3339),
				))
			}
		}

		deletedCount, err = s.repo.DeleteByIDs(sessCtx, dermatologistID, req.SlotIDs)
		if err != nil {
			return apperrors.Internal("Failed to delete slots", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to delete slot batch", "dermatologist_id", dermatologistID, "error", err)
		return nil, err
	}

	s.publishBatchEvent(ctx, model.EventSlotBatchDeleted, dermatologistID, req.SlotIDs)

	s.cfg.Log.Info("Slot batch deleted",
		"dermatologist_id", dermatologistID,
		"deleted", deletedCount,
	)

	return &model.DeleteSlotsBatchResult{
		DeletedCount: int(deletedCount),
		Message:      fmt.Sprintf("%d slots deleted", deletedCount),
	}, nil
}

// Reserve marks the slot matching the appointment's exact time range as
// booked. Called from the appointment event consumer.
func (s *slotService) Reserve(ctx context.Context, event *model.AppointmentEvent) error {
	if event == nil || event.AppointmentID == "" || event.DermatologistID == "" {
		return apperrors.InvalidInput("Appointment event is missing identifiers")
	}

	err := s.repo.Reserve(ctx, event.DermatologistID, event.AppointmentID, event.StartTime, event.EndTime)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return apperrors.Conflict("No available slot matches the appointment time range")
		}
		return apperrors.Internal("Failed to reserve slot", err)
	}

	s.cfg.Log.Info("Slot reserved",
		"dermatologist_id", event.DermatologistID,
		"appointment_id", event.AppointmentID,
		"start_time", event.StartTime,
	)
	return nil
}

// Release frees every slot held by the appointment. Releasing an unknown
// appointment is a no-op so cancellation events can be replayed.
func (s *slotService) Release(ctx context.Context, appointmentID string) error {
	if appointmentID == "" {
		return apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	released, err := s.repo.Release(ctx, appointmentID)
	if err != nil {
		return apperrors.Internal("Failed to release slots", err)
	}

	s.cfg.Log.Info("Slots released", "appointment_id", appointmentID, "count", released)
	return nil
}

func (s *slotService) publishBatchEvent(ctx context.Context, eventType, dermatologistID string, slotIDs []string) {
	if s.publisher == nil {
		return
	}

	event := &model.SlotBatchEvent{
		DermatologistID: dermatologistID,
		SlotIDs:         slotIDs,
		Count:           len(slotIDs),
		OccurredAt:      s.now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(dermatologistID).
		WithValue(event).
		WithEventType(eventType).
		WithSource(ServiceName).
		Build()

	if err := s.publisher.Publish(ctx, msg); err != nil {
		// Slot state is already persisted; the event is best effort.
		s.cfg.Log.Warn("Failed to publish slot batch event",
			"event_type", eventType,
			"dermatologist_id", dermatologistID,
			"error", err,
		)
	}
}

// acquireBatchLock creates a per-practitioner advisory lock so concurrent
// batch mutations cannot interleave.
func (s *slotService) acquireBatchLock(ctx context.Context, dermatologistID string) (string, error) {
	lockID := fmt.Sprintf("slot_batch_lock_%s", dermatologistID)

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: s.now().Add(10 * time.Second),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("Another batch operation for this dermatologist is in progress. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire slot batch lock", err)
	}

	return lockID, nil
}

func (s *slotService) releaseBatchLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}
