package consumer

import (
	"context"
	"fmt"

	"dermsched/internal/slots/service"
	"dermsched/pkg/kafka"
	"dermsched/pkg/logger"
	"dermsched/pkg/model"
)

// AppointmentConsumer applies appointment lifecycle events to slot state:
// a booked appointment reserves the matching slot, a cancelled appointment
// releases it.
type AppointmentConsumer struct {
	service service.SlotService
	log     *logger.Logger
}

func NewAppointmentConsumer(service service.SlotService, log *logger.Logger) *AppointmentConsumer {
	return &AppointmentConsumer{
		service: service,
		log:     log,
	}
}

// Handle is the kafka.MessageHandler entry point. Unknown event types are
// acknowledged without processing so they never cycle through the DLQ.
func (c *AppointmentConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	eventType := msg.GetEventType()

	switch eventType {
	case model.EventAppointmentBooked:
		return c.handleBooked(ctx, msg)
	case model.EventAppointmentCancelled:
		return c.handleCancelled(ctx, msg)
	default:
		c.log.Warn("skipping unknown event type",
			"event_type", eventType,
			"event_id", msg.GetEventID(),
			"topic", msg.Topic)
		return nil
	}
}

func (c *AppointmentConsumer) handleBooked(ctx context.Context, msg kafka.Message) error {
	var event model.AppointmentEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("failed to decode appointment.booked event", err)
	}

	c.log.Info("processing appointment booked",
		"appointment_id", event.AppointmentID,
		"dermatologist_id", event.DermatologistID,
		"event_id", msg.GetEventID())

	if err := c.service.Reserve(ctx, &event); err != nil {
		return fmt.Errorf("failed to reserve slot for appointment %s: %w", event.AppointmentID, err)
	}
	return nil
}

func (c *AppointmentConsumer) handleCancelled(ctx context.Context, msg kafka.Message) error {
	var event model.AppointmentEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("failed to decode appointment.cancelled event", err)
	}

	c.log.Info("processing appointment cancelled",
		"appointment_id", event.AppointmentID,
		"event_id", msg.GetEventID())

	if err := c.service.Release(ctx, event.AppointmentID); err != nil {
		return fmt.Errorf("failed to release slots for appointment %s: %w", event.AppointmentID, err)
	}
	return nil
}
