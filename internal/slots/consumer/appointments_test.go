package consumer

import (
	"context"
	"testing"
	"time"

	"dermsched/pkg/kafka"
	"dermsched/pkg/logger"
	"dermsched/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSlotService struct {
	reservedEvents []*model.AppointmentEvent
	releasedIDs    []string
	reserveErr     error
	releaseErr     error
}

func (m *mockSlotService) Reserve(ctx context.Context, event *model.AppointmentEvent) error {
	m.reservedEvents = append(m.reservedEvents, event)
	return m.reserveErr
}

func (m *mockSlotService) Release(ctx context.Context, appointmentID string) error {
	m.releasedIDs = append(m.releasedIDs, appointmentID)
	return m.releaseErr
}

func (m *mockSlotService) CreateBatch(ctx context.Context, dermID string, req *model.CreateSlotsBatchRequest) (*model.CreateSlotsBatchResult, error) {
	return nil, nil
}

func (m *mockSlotService) GetRange(ctx context.Context, dermID string, start, end *time.Time, status *model.SlotStatus) ([]*model.AvailabilitySlot, error) {
	return nil, nil
}

func (m *mockSlotService) GetSummary(ctx context.Context, dermID string, month, year int) (*model.AvailabilitySummary, error) {
	return nil, nil
}

func (m *mockSlotService) DeleteOne(ctx context.Context, dermID, slotID string) error {
	return nil
}

func (m *mockSlotService) DeleteBatch(ctx context.Context, dermID string, req *model.DeleteSlotsBatchRequest) (*model.DeleteSlotsBatchResult, error) {
	return nil, nil
}

func bookedMessage(t *testing.T, event model.AppointmentEvent) kafka.Message {
	t.Helper()
	return kafka.NewMessage().
		WithKey(event.DermatologistID).
		WithValue(event).
		WithEventType(model.EventAppointmentBooked).
		Build()
}

func TestHandle_BookedReservesSlot(t *testing.T) {
	svc := &mockSlotService{}
	c := NewAppointmentConsumer(svc, logger.NewSilent())

	event := model.AppointmentEvent{
		AppointmentID:   "apt-1",
		DermatologistID: "derm-1",
		StartTime:       time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC),
	}

	err := c.Handle(context.Background(), bookedMessage(t, event))

	require.NoError(t, err)
	require.Len(t, svc.reservedEvents, 1)
	assert.Equal(t, "apt-1", svc.reservedEvents[0].AppointmentID)
	assert.Equal(t, event.StartTime, svc.reservedEvents[0].StartTime)
}

func TestHandle_CancelledReleasesSlots(t *testing.T) {
	svc := &mockSlotService{}
	c := NewAppointmentConsumer(svc, logger.NewSilent())

	msg := kafka.NewMessage().
		WithValue(model.AppointmentEvent{AppointmentID: "apt-1"}).
		WithEventType(model.EventAppointmentCancelled).
		Build()

	err := c.Handle(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, []string{"apt-1"}, svc.releasedIDs)
}

func TestHandle_UnknownEventTypeIsSkipped(t *testing.T) {
	svc := &mockSlotService{}
	c := NewAppointmentConsumer(svc, logger.NewSilent())

	msg := kafka.NewMessage().
		WithValue(map[string]string{"foo": "bar"}).
		WithEventType("appointment.rescheduled").
		Build()

	err := c.Handle(context.Background(), msg)

	require.NoError(t, err)
	assert.Empty(t, svc.reservedEvents)
	assert.Empty(t, svc.releasedIDs)
}

func TestHandle_MalformedPayloadFails(t *testing.T) {
	svc := &mockSlotService{}
	c := NewAppointmentConsumer(svc, logger.NewSilent())

	msg := kafka.NewMessage().
		WithRawValue([]byte("{not json")).
		WithEventType(model.EventAppointmentBooked).
		Build()

	err := c.Handle(context.Background(), msg)

	require.Error(t, err)
	assert.False(t, kafka.ShouldRetry(err, 0, 3))
	assert.Empty(t, svc.reservedEvents)
}

func TestHandle_ReserveFailurePropagates(t *testing.T) {
	svc := &mockSlotService{reserveErr: assert.AnError}
	c := NewAppointmentConsumer(svc, logger.NewSilent())

	event := model.AppointmentEvent{AppointmentID: "apt-1", DermatologistID: "derm-1"}
	err := c.Handle(context.Background(), bookedMessage(t, event))

	require.Error(t, err)
}
