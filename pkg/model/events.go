package model

import "time"

// Event types carried on the appointment stream. The booking system emits
// these; the slots service only observes them.
const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentCancelled = "appointment.cancelled"

	EventSlotBatchCreated = "slot.batch-created"
	EventSlotBatchDeleted = "slot.batch-deleted"
)

// Kafka topics. Each stream carries one event family; failed messages land
// on the matching DLQ topic.
const (
	TopicAppointments    = "derm.appointments"
	TopicAppointmentsDLQ = "derm.appointments.dlq"
	TopicSlots           = "derm.slots"
	TopicSlotsDLQ        = "derm.slots.dlq"
)

// AppointmentEvent describes a booking-side state change against one slot.
// Booked events carry the exact slot range so the reservation can verify it
// matches a whole slot; cancellations are resolved by appointment ID alone.
type AppointmentEvent struct {
	AppointmentID   string    `json:"appointment_id"`
	DermatologistID string    `json:"dermatologist_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
}

// SlotBatchEvent is published by the slots service after a successful bulk
// create or delete, for downstream consumers (search indexers, reminders).
type SlotBatchEvent struct {
	DermatologistID string    `json:"dermatologist_id"`
	SlotIDs         []string  `json:"slot_ids,omitempty"`
	Count           int       `json:"count"`
	OccurredAt      time.Time `json:"occurred_at"`
}
