package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dermsched/internal/slots/service"
	"dermsched/pkg/client"
	apperrors "dermsched/pkg/errors"
	httputil "dermsched/pkg/http"
	"dermsched/pkg/logger"
	"dermsched/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

// dermatologistID reads the caller's identity header. Requests without it
// are rejected before any service call.
func (h *SlotHandler) dermatologistID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(client.HeaderDermatologistID)
	if id == "" {
		httputil.WriteError(w, apperrors.InvalidInput(
			fmt.Sprintf("Missing required header: %s", client.HeaderDermatologistID),
		))
		return "", false
	}
	return id, true
}

func (h *SlotHandler) CreateBatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dermID, ok := h.dermatologistID(w, r)
	if !ok {
		return
	}

	var req model.CreateSlotsBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	result, err := h.service.CreateBatch(r.Context(), dermID, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, result)
}

func (h *SlotHandler) GetRange(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dermID, ok := h.dermatologistID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()

	var start, end *time.Time
	if startStr := query.Get("start"); startStr != "" {
		parsed, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			httputil.WriteError(w, apperrors.InvalidInput("invalid start format, must be RFC3339"))
			return
		}
		start = &parsed
	}
	if endStr := query.Get("end"); endStr != "" {
		parsed, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			httputil.WriteError(w, apperrors.InvalidInput("invalid end format, must be RFC3339"))
			return
		}
		end = &parsed
	}

	var status *model.SlotStatus
	if statusStr := query.Get("status"); statusStr != "" {
		s := model.SlotStatus(statusStr)
		if s != model.SlotStatusAvailable && s != model.SlotStatusBooked {
			httputil.WriteError(w, apperrors.InvalidInput(
				fmt.Sprintf("invalid status: %s", statusStr),
			))
			return
		}
		status = &s
	}

	slots, err := h.service.GetRange(r.Context(), dermID, start, end, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, slots)
}

func (h *SlotHandler) GetSummary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dermID, ok := h.dermatologistID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()

	month, err := strconv.Atoi(query.Get("month"))
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("month query parameter is required and must be a number"))
		return
	}
	year, err := strconv.Atoi(query.Get("year"))
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("year query parameter is required and must be a number"))
		return
	}

	summary, err := h.service.GetSummary(r.Context(), dermID, month, year)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, summary)
}

func (h *SlotHandler) DeleteOne(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dermID, ok := h.dermatologistID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteOne(r.Context(), dermID, ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SlotHandler) DeleteBatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dermID, ok := h.dermatologistID(w, r)
	if !ok {
		return
	}

	var req model.DeleteSlotsBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	result, err := h.service.DeleteBatch(r.Context(), dermID, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/slots/batch", h.CreateBatch)
	router.GET("/api/v1/slots", h.GetRange)
	router.GET("/api/v1/slots/summary", h.GetSummary)
	router.DELETE("/api/v1/slots/batch", h.DeleteBatch)
	router.DELETE("/api/v1/slots/id/:id", h.DeleteOne)
}
