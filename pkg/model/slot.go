package model

import (
	"time"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "AVAILABLE"
	SlotStatusBooked    SlotStatus = "BOOKED"
)

// AvailabilitySlot is the unit of bookability: one fixed-duration interval
// owned by a dermatologist. Slots are created in batches, transition to
// BOOKED when an appointment reserves them, and may only be deleted while
// AVAILABLE.
type AvailabilitySlot struct {
	ID              string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DermatologistID string     `json:"dermatologist_id" bson:"dermatologist_id" validate:"required"`
	StartTime       time.Time  `json:"start_time" bson:"start_time" validate:"required"`
	EndTime         time.Time  `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status          SlotStatus `json:"status" bson:"status" validate:"required,oneof=AVAILABLE BOOKED"`
	Price           *float64   `json:"price,omitempty" bson:"price,omitempty" validate:"omitempty,min=0"`
	AppointmentID   string     `json:"appointment_id,omitempty" bson:"appointment_id,omitempty" validate:"omitempty"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// IsDeletable reports whether the slot may still be cancelled by its owner.
func (s *AvailabilitySlot) IsDeletable() bool {
	return s.Status == SlotStatusAvailable
}

// Shift is a contiguous block of working time on one day, expressed as
// HH:mm times of day. Shifts have no identity of their own: they exist only
// as validated input to batch expansion.
type Shift struct {
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
}

// SlotBlock is one fully resolved interval to be persisted: absolute start
// and end timestamps plus the slot duration used to partition it. The slots
// service re-partitions each block, so a block may span a whole shift or a
// single slot.
type SlotBlock struct {
	StartTime           time.Time `json:"start_time" validate:"required"`
	EndTime             time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	SlotDurationMinutes int       `json:"slot_duration_minutes" validate:"required,min=5"`
	Price               *float64  `json:"price,omitempty" validate:"omitempty,min=0"`
}

type CreateSlotsBatchRequest struct {
	Blocks []SlotBlock `json:"blocks" validate:"required,min=1,dive"`
}

type CreateSlotsBatchResult struct {
	CreatedCount int    `json:"created_count"`
	Message      string `json:"message"`
}

type DeleteSlotsBatchRequest struct {
	SlotIDs []string `json:"slot_ids" validate:"required,min=1,dive,mongodb"`
}

type DeleteSlotsBatchResult struct {
	DeletedCount int    `json:"deleted_count"`
	Message      string `json:"message"`
}

// DaySummary aggregates one calendar day's slot counts.
type DaySummary struct {
	Date      string `json:"date" bson:"_id"`
	Available int    `json:"available" bson:"available"`
	Booked    int    `json:"booked" bson:"booked"`
}

// AvailabilitySummary is the month view: per-day counts for every day
// that has at least one slot.
type AvailabilitySummary struct {
	Month int          `json:"month"`
	Year  int          `json:"year"`
	Days  []DaySummary `json:"days"`
}
