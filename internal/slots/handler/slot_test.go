package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dermsched/pkg/client"
	apperrors "dermsched/pkg/errors"
	"dermsched/pkg/logger"
	"dermsched/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSlotService struct {
	createBatchFunc func(ctx context.Context, dermID string, req *model.CreateSlotsBatchRequest) (*model.CreateSlotsBatchResult, error)
	getRangeFunc    func(ctx context.Context, dermID string, start, end *time.Time, status *model.SlotStatus) ([]*model.AvailabilitySlot, error)
	getSummaryFunc  func(ctx context.Context, dermID string, month, year int) (*model.AvailabilitySummary, error)
	deleteOneFunc   func(ctx context.Context, dermID, slotID string) error
	deleteBatchFunc func(ctx context.Context, dermID string, req *model.DeleteSlotsBatchRequest) (*model.DeleteSlotsBatchResult, error)
}

func (m *mockSlotService) CreateBatch(ctx context.Context, dermID string, req *model.CreateSlotsBatchRequest) (*model.CreateSlotsBatchResult, error) {
	return m.createBatchFunc(ctx, dermID, req)
}

func (m *mockSlotService) GetRange(ctx context.Context, dermID string, start, end *time.Time, status *model.SlotStatus) ([]*model.AvailabilitySlot, error) {
	return m.getRangeFunc(ctx, dermID, start, end, status)
}

func (m *mockSlotService) GetSummary(ctx context.Context, dermID string, month, year int) (*model.AvailabilitySummary, error) {
	return m.getSummaryFunc(ctx, dermID, month, year)
}

func (m *mockSlotService) DeleteOne(ctx context.Context, dermID, slotID string) error {
	return m.deleteOneFunc(ctx, dermID, slotID)
}

func (m *mockSlotService) DeleteBatch(ctx context.Context, dermID string, req *model.DeleteSlotsBatchRequest) (*model.DeleteSlotsBatchResult, error) {
	return m.deleteBatchFunc(ctx, dermID, req)
}

func (m *mockSlotService) Reserve(ctx context.Context, event *model.AppointmentEvent) error {
	return nil
}

func (m *mockSlotService) Release(ctx context.Context, appointmentID string) error {
	return nil
}

func newTestRouter(svc *mockSlotService) *httprouter.Router {
	h := NewSlotHandler(svc, logger.NewSilent())
	router := httprouter.New()
	h.RegisterRoutes(router)
	return router
}

func TestCreateBatch_Success(t *testing.T) {
	svc := &mockSlotService{
		createBatchFunc: func(_ context.Context, dermID string, req *model.CreateSlotsBatchRequest) (*model.CreateSlotsBatchResult, error) {
			assert.Equal(t, "derm-1", dermID)
			return &model.CreateSlotsBatchResult{CreatedCount: 6}, nil
		},
	}
	router := newTestRouter(svc)

	body, _ := json.Marshal(model.CreateSlotsBatchRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots/batch", bytes.NewReader(body))
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data model.CreateSlotsBatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.Data.CreatedCount)
}

func TestCreateBatch_MissingIdentityHeader(t *testing.T) {
	router := newTestRouter(&mockSlotService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots/batch", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBatch_InvalidBody(t *testing.T) {
	router := newTestRouter(&mockSlotService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots/batch", bytes.NewReader([]byte("{not json")))
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBatch_ConflictMapsToStatus(t *testing.T) {
	svc := &mockSlotService{
		createBatchFunc: func(_ context.Context, _ string, _ *model.CreateSlotsBatchRequest) (*model.CreateSlotsBatchResult, error) {
			return nil, apperrors.Conflict("slots overlap with existing availability")
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots/batch", bytes.NewReader([]byte("{}")))
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetRange_ParsesQueryParameters(t *testing.T) {
	var gotStart, gotEnd *time.Time
	var gotStatus *model.SlotStatus
	svc := &mockSlotService{
		getRangeFunc: func(_ context.Context, _ string, start, end *time.Time, status *model.SlotStatus) ([]*model.AvailabilitySlot, error) {
			gotStart, gotEnd, gotStatus = start, end, status
			return []*model.AvailabilitySlot{}, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/slots?start=2025-06-01T00:00:00Z&end=2025-06-30T00:00:00Z&status=AVAILABLE", nil)
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotStart)
	require.NotNil(t, gotEnd)
	require.NotNil(t, gotStatus)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), gotStart.UTC())
	assert.Equal(t, model.SlotStatusAvailable, *gotStatus)
}

func TestGetRange_NoParamsPassesNil(t *testing.T) {
	svc := &mockSlotService{
		getRangeFunc: func(_ context.Context, _ string, start, end *time.Time, status *model.SlotStatus) ([]*model.AvailabilitySlot, error) {
			assert.Nil(t, start)
			assert.Nil(t, end)
			assert.Nil(t, status)
			return nil, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil)
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRange_RejectsBadTimestamp(t *testing.T) {
	router := newTestRouter(&mockSlotService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?start=june-first", nil)
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRange_RejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(&mockSlotService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?status=PENDING", nil)
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSummary_RequiresNumericMonthAndYear(t *testing.T) {
	router := newTestRouter(&mockSlotService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots/summary?month=june&year=2025", nil)
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSummary_Success(t *testing.T) {
	svc := &mockSlotService{
		getSummaryFunc: func(_ context.Context, _ string, month, year int) (*model.AvailabilitySummary, error) {
			assert.Equal(t, 6, month)
			assert.Equal(t, 2025, year)
			return &model.AvailabilitySummary{Month: month, Year: year}, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots/summary?month=6&year=2025", nil)
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteOne_NoContent(t *testing.T) {
	svc := &mockSlotService{
		deleteOneFunc: func(_ context.Context, dermID, slotID string) error {
			assert.Equal(t, "derm-1", dermID)
			assert.Equal(t, "abc123", slotID)
			return nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/slots/id/abc123", nil)
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteOne_BookedSlot(t *testing.T) {
	svc := &mockSlotService{
		deleteOneFunc: func(_ context.Context, _, _ string) error {
			return apperrors.StaleState("Cannot delete a booked slot")
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/slots/id/abc123", nil)
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteBatch_Success(t *testing.T) {
	svc := &mockSlotService{
		deleteBatchFunc: func(_ context.Context, _ string, req *model.DeleteSlotsBatchRequest) (*model.DeleteSlotsBatchResult, error) {
			assert.Equal(t, []string{"s1", "s2"}, req.SlotIDs)
			return &model.DeleteSlotsBatchResult{DeletedCount: 2}, nil
		},
	}
	router := newTestRouter(svc)

	body, _ := json.Marshal(model.DeleteSlotsBatchRequest{SlotIDs: []string{"s1", "s2"}})
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/slots/batch", bytes.NewReader(body))
	req.Header.Set(client.HeaderDermatologistID, "derm-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data model.DeleteSlotsBatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.DeletedCount)
}
