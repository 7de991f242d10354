package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"dermsched/pkg/model"
)

// HeaderDermatologistID carries the authenticated practitioner identity.
// It is set by the upstream gateway after authentication; the slots service
// trusts it as-is.
const HeaderDermatologistID = "X-Dermatologist-ID"

// SlotClient talks to the slots service on behalf of one practitioner.
type SlotClient struct {
	httpClient      *HttpClient
	dermatologistID string
}

func NewSlotClient(baseURL string, dermatologistID string) *SlotClient {
	return &SlotClient{
		httpClient:      NewHttpClient(baseURL),
		dermatologistID: dermatologistID,
	}
}

func (c *SlotClient) identity() map[string]string {
	return map[string]string{HeaderDermatologistID: c.dermatologistID}
}

// FetchSlots returns all of the practitioner's slots whose start time falls
// within [start, end], ascending by start time.
func (c *SlotClient) FetchSlots(ctx context.Context, start, end time.Time) ([]*model.AvailabilitySlot, error) {
	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))

	resp, err := c.do(ctx, http.MethodGet, "/api/v1/slots?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Data []*model.AvailabilitySlot `json:"data"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return body.Data, nil
}

// CreateSlotsBatch bulk-creates slots from the given blocks. The server
// treats the batch as all-or-nothing.
func (c *SlotClient) CreateSlotsBatch(ctx context.Context, req *model.CreateSlotsBatchRequest) (*model.CreateSlotsBatchResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/slots/batch", req)
	if err != nil {
		return nil, err
	}

	var body struct {
		Data *model.CreateSlotsBatchResult `json:"data"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("failed to decode batch result: %w", err)
	}
	return body.Data, nil
}

// DeleteSlots removes the identified slots. The server rejects the whole
// request if any slot is no longer AVAILABLE.
func (c *SlotClient) DeleteSlots(ctx context.Context, slotIDs []string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/slots/batch", &model.DeleteSlotsBatchRequest{SlotIDs: slotIDs})
	return err
}

// AvailabilitySummary returns per-day slot counts for the given month.
func (c *SlotClient) AvailabilitySummary(ctx context.Context, month, year int) (*model.AvailabilitySummary, error) {
	path := fmt.Sprintf("/api/v1/slots/summary?month=%d&year=%d", month, year)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Data *model.AvailabilitySummary `json:"data"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return body.Data, nil
}

func (c *SlotClient) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var resp *Response
	var err error

	switch method {
	case http.MethodGet:
		resp, err = c.httpClient.request(ctx, http.MethodGet, path, nil, c.identity())
	default:
		resp, err = c.httpClient.request(ctx, method, path, body, c.identity())
	}
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Server messages are surfaced verbatim so the caller can show
		// them to the practitioner.
		return nil, fmt.Errorf("%s", GetErrorMessage(resp))
	}
	return resp, nil
}
