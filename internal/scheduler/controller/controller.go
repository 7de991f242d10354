package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dermsched/internal/scheduler/resolver"
	"dermsched/internal/slots/planner"
	"dermsched/internal/slots/validator"
	"dermsched/pkg/config"
	"dermsched/pkg/logger"
	"dermsched/pkg/model"
)

// State names the controller's position in the scheduling flow. All UI
// entry points consult the transition table before acting, so an event
// arriving in the wrong state is rejected instead of corrupting the flow.
type State string

const (
	StateIdle                  State = "idle"
	StateSelectingDates        State = "selectingDates"
	StatePendingConflictChoice State = "pendingConflictChoice"
	StateSubmitting            State = "submitting"
)

// transitions enumerates every legal state change. Anything not listed
// here is a bug in the caller, not a race to be tolerated.
var transitions = map[State][]State{
	StateIdle:                  {StateSelectingDates, StatePendingConflictChoice, StateSubmitting},
	StateSelectingDates:        {StateIdle, StateSubmitting},
	StatePendingConflictChoice: {StateIdle, StateSelectingDates, StateSubmitting},
	StateSubmitting:            {StateIdle, StateSelectingDates},
}

var (
	// ErrBusy is returned while a create or delete round trip is in
	// flight. The caller keeps its controls disabled and retries nothing.
	ErrBusy = errors.New("an operation is already in progress")

	// ErrInvalidState is returned when an entry point is called in a
	// state that does not accept it.
	ErrInvalidState = errors.New("operation not allowed in the current state")
)

// SlotsAPI is the slice of the slots service client the controller needs.
type SlotsAPI interface {
	FetchSlots(ctx context.Context, start, end time.Time) ([]*model.AvailabilitySlot, error)
	CreateSlotsBatch(ctx context.Context, req *model.CreateSlotsBatchRequest) (*model.CreateSlotsBatchResult, error)
	DeleteSlots(ctx context.Context, slotIDs []string) error
}

// View is the narrow boundary to the calendar widget: the controller only
// ever pushes styled events and user-facing messages through it. Clicks and
// drags flow the other way, into OnEventClick and OnRangeSelect.
type View interface {
	RenderEvents(events []DisplayEvent)
	ShowMessage(message string)
}

// DisplayEvent is one calendar entry. StyleKey drives the widget's
// coloring and is one of booked-past, booked-upcoming, available-past,
// available-upcoming.
type DisplayEvent struct {
	SlotID   string
	Start    time.Time
	End      time.Time
	StyleKey string
}

// SlotDetail describes a clicked slot. Booked slots cannot be deleted;
// the appointment ID points the practitioner at the booking instead.
type SlotDetail struct {
	Slot          *model.AvailabilitySlot
	CanDelete     bool
	AppointmentID string
}

// Selection is the in-progress creation input: the dates that survived
// conflict resolution plus the repeat count, which is only honored while
// the date span stays under the repeat limit.
type Selection struct {
	Dates        []time.Time
	DefaultShift *model.Shift
	RepeatWeeks  int
}

// Controller drives the scheduling screen. It owns the practitioner's slot
// window, which is replaced wholesale after every successful mutation, and
// never patched optimistically. It is single-threaded: all calls must come
// from the same event loop that delivers calendar events.
type Controller struct {
	client    SlotsAPI
	view      View
	shiftVal  *validator.ShiftValidator
	cfg       *config.Config
	log       *logger.Logger
	now       func() time.Time

	state     State
	slots     []*model.AvailabilitySlot
	pending   *resolver.PendingSelection
	selection *Selection
}

func NewController(client SlotsAPI, view View, cfg *config.Config, log *logger.Logger) *Controller {
	return &Controller{
		client:   client,
		view:     view,
		shiftVal: validator.NewShiftValidator(log),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		state:    StateIdle,
	}
}

func (c *Controller) State() State {
	return c.state
}

// Selection returns the in-progress creation input, or nil outside the
// selectingDates state.
func (c *Controller) Selection() *Selection {
	return c.selection
}

// Pending returns the unresolved conflict choice, or nil outside the
// pendingConflictChoice state.
func (c *Controller) Pending() *resolver.PendingSelection {
	return c.pending
}

func (c *Controller) transition(to State) error {
	for _, allowed := range transitions[c.state] {
		if allowed == to {
			c.log.Debug("controller state change", "from", string(c.state), "to", string(to))
			c.state = to
			return nil
		}
	}
	if c.state == StateSubmitting {
		return ErrBusy
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidState, c.state, to)
}

// Refresh replaces the slot window with a fresh fetch of the rolling range
// and re-renders the calendar.
func (c *Controller) Refresh(ctx context.Context) error {
	now := c.now()
	start := now.AddDate(0, 0, -c.cfg.FetchWindowPastDays)
	end := now.AddDate(0, 0, c.cfg.FetchWindowFutureDays)

	slots, err := c.client.FetchSlots(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to refresh slot window: %w", err)
	}

	c.slots = slots
	c.render()
	return nil
}

func (c *Controller) render() {
	events := make([]DisplayEvent, 0, len(c.slots))
	now := c.now()
	for _, slot := range c.slots {
		events = append(events, DisplayEvent{
			SlotID:   slot.ID,
			Start:    slot.StartTime,
			End:      slot.EndTime,
			StyleKey: styleFor(slot, now),
		})
	}
	c.view.RenderEvents(events)
}

func styleFor(slot *model.AvailabilitySlot, now time.Time) string {
	age := "upcoming"
	if slot.EndTime.Before(now) {
		age = "past"
	}
	if slot.Status == model.SlotStatusBooked {
		return "booked-" + age
	}
	return "available-" + age
}

// OnEventClick resolves a clicked calendar event to its slot.
func (c *Controller) OnEventClick(slotID string) (*SlotDetail, error) {
	if c.state == StateSubmitting {
		return nil, ErrBusy
	}

	for _, slot := range c.slots {
		if slot.ID == slotID {
			return &SlotDetail{
				Slot:          slot,
				CanDelete:     slot.IsDeletable(),
				AppointmentID: slot.AppointmentID,
			}, nil
		}
	}
	return nil, fmt.Errorf("unknown slot: %s", slotID)
}

// OnRangeSelect handles a drag gesture. Depending on what the selection
// covers, the controller either opens the creation flow, parks the gesture
// as a conflict choice, or reports that the range is in the past.
func (c *Controller) OnRangeSelect(selStart, selEnd time.Time) error {
	if c.state != StateIdle {
		if c.state == StateSubmitting {
			return ErrBusy
		}
		return fmt.Errorf("%w: range selection requires idle, was %s", ErrInvalidState, c.state)
	}

	res := resolver.Resolve(c.slots, selStart, selEnd, c.now())

	switch res.Outcome {
	case resolver.OutcomePast:
		c.view.ShowMessage("Cannot create slots in the past")
		return nil

	case resolver.OutcomePrompt:
		if err := c.transition(StatePendingConflictChoice); err != nil {
			return err
		}
		c.pending = res.Pending
		return nil

	case resolver.OutcomeCreate:
		if err := c.transition(StateSelectingDates); err != nil {
			return err
		}
		c.selection = &Selection{
			Dates:        res.Dates,
			DefaultShift: res.DefaultShift,
		}
		return nil
	}

	return fmt.Errorf("unhandled resolver outcome: %s", res.Outcome)
}

// ChooseCreate resolves a pending conflict in favor of creating new slots
// on the non-conflicting dates.
func (c *Controller) ChooseCreate() error {
	if c.state != StatePendingConflictChoice {
		if c.state == StateSubmitting {
			return ErrBusy
		}
		return fmt.Errorf("%w: no pending conflict choice", ErrInvalidState)
	}
	if !c.pending.CanCreate {
		return fmt.Errorf("%w: no creatable dates in the selection", ErrInvalidState)
	}

	if err := c.transition(StateSelectingDates); err != nil {
		return err
	}
	c.selection = &Selection{
		Dates:        c.pending.Dates,
		DefaultShift: c.pending.DefaultShift,
	}
	c.pending = nil
	return nil
}

// ChooseDelete resolves a pending conflict by deleting the conflicting
// slots. Booked slots are refused up front; the server re-checks anyway.
// With recreate set, the creation flow opens only after the delete round
// trip and the follow-up refresh have fully resolved.
func (c *Controller) ChooseDelete(ctx context.Context, recreate bool) error {
	if c.state != StatePendingConflictChoice {
		if c.state == StateSubmitting {
			return ErrBusy
		}
		return fmt.Errorf("%w: no pending conflict choice", ErrInvalidState)
	}

	for _, slot := range c.pending.Slots {
		if !slot.IsDeletable() {
			c.view.ShowMessage("Cannot delete booked slots. View the appointment instead.")
			return c.reset()
		}
	}
	if recreate && !c.pending.CanCreate {
		recreate = false
	}

	pending := c.pending
	c.pending = nil

	slotIDs := make([]string, 0, len(pending.Slots))
	for _, slot := range pending.Slots {
		slotIDs = append(slotIDs, slot.ID)
	}

	if err := c.transition(StateSubmitting); err != nil {
		return err
	}

	deleteErr := c.client.DeleteSlots(ctx, slotIDs)
	if deleteErr != nil {
		// Stale state or transport failure. Either way the window may be
		// out of date, so re-fetch before handing control back.
		c.view.ShowMessage(deleteErr.Error())
		if err := c.Refresh(ctx); err != nil {
			c.log.Error("refresh after failed delete", "error", err)
		}
		c.state = StateIdle
		return nil
	}

	if err := c.Refresh(ctx); err != nil {
		c.log.Error("refresh after delete", "error", err)
	}

	if recreate {
		c.state = StateSelectingDates
		c.selection = &Selection{
			Dates:        pending.Dates,
			DefaultShift: pending.DefaultShift,
		}
		return nil
	}

	c.state = StateIdle
	return nil
}

// Dismiss abandons the in-progress selection or conflict choice.
func (c *Controller) Dismiss() error {
	if c.state == StateSubmitting {
		return ErrBusy
	}
	if c.state == StateIdle {
		return nil
	}
	return c.reset()
}

func (c *Controller) reset() error {
	c.pending = nil
	c.selection = nil
	return c.transition(StateIdle)
}

// SetDates replaces the selection's dates. When the new span no longer
// allows repetition, the repeat count is force-reset to zero.
func (c *Controller) SetDates(dates []time.Time) error {
	if c.state != StateSelectingDates {
		return fmt.Errorf("%w: no selection in progress", ErrInvalidState)
	}
	c.selection.Dates = dates
	if !planner.SpanAllowsRepeat(dates, config.RepeatSpanLimitDays) {
		c.selection.RepeatWeeks = 0
	}
	return nil
}

// SetRepeatWeeks sets the weekly repeat count. Selections spanning the
// repeat limit or more cannot repeat at all.
func (c *Controller) SetRepeatWeeks(weeks int) error {
	if c.state != StateSelectingDates {
		return fmt.Errorf("%w: no selection in progress", ErrInvalidState)
	}
	if weeks < 0 || weeks > c.cfg.MaxRepeatWeeks {
		return fmt.Errorf("repeat weeks must be between 0 and %d", c.cfg.MaxRepeatWeeks)
	}
	if weeks > 0 && !planner.SpanAllowsRepeat(c.selection.Dates, config.RepeatSpanLimitDays) {
		c.selection.RepeatWeeks = 0
		return fmt.Errorf("repetition requires the selected dates to span fewer than %d days", config.RepeatSpanLimitDays)
	}
	c.selection.RepeatWeeks = weeks
	return nil
}

// Submit validates the shifts, expands the full batch and sends it. The
// controller stays in submitting for the whole round trip and re-arms
// unconditionally afterwards. Validation failures never reach the network.
func (c *Controller) Submit(ctx context.Context, shifts []model.Shift, slotDurationMinutes int, price *float64) error {
	if c.state != StateSelectingDates {
		if c.state == StateSubmitting {
			return ErrBusy
		}
		return fmt.Errorf("%w: no selection in progress", ErrInvalidState)
	}

	if slotDurationMinutes == 0 {
		slotDurationMinutes = c.cfg.DefaultSlotDurationMin
	}

	if err := c.shiftVal.Validate(shifts, slotDurationMinutes); err != nil {
		return err
	}

	blocks := planner.ExpandBatch(
		c.selection.Dates,
		shifts,
		slotDurationMinutes,
		c.selection.RepeatWeeks,
		config.RepeatSpanLimitDays,
		price,
	)
	if len(blocks) == 0 {
		return fmt.Errorf("%w: selection produced no slots", ErrInvalidState)
	}

	selection := c.selection
	c.selection = nil

	if err := c.transition(StateSubmitting); err != nil {
		c.selection = selection
		return err
	}

	result, createErr := c.client.CreateSlotsBatch(ctx, &model.CreateSlotsBatchRequest{Blocks: blocks})
	if createErr != nil {
		c.view.ShowMessage(createErr.Error())
		if err := c.Refresh(ctx); err != nil {
			c.log.Error("refresh after failed create", "error", err)
		}
		c.state = StateIdle
		return nil
	}

	c.view.ShowMessage(fmt.Sprintf("Created %d slots", result.CreatedCount))
	if err := c.Refresh(ctx); err != nil {
		c.log.Error("refresh after create", "error", err)
	}
	c.state = StateIdle
	return nil
}

// DeleteSlot removes one slot from an event-click flow. Booked slots are
// refused before any network call.
func (c *Controller) DeleteSlot(ctx context.Context, slotID string) error {
	if c.state != StateIdle {
		if c.state == StateSubmitting {
			return ErrBusy
		}
		return fmt.Errorf("%w: single delete requires idle, was %s", ErrInvalidState, c.state)
	}

	detail, err := c.OnEventClick(slotID)
	if err != nil {
		return err
	}
	if !detail.CanDelete {
		c.view.ShowMessage("Cannot delete a booked slot. View the appointment instead.")
		return nil
	}

	if err := c.transition(StateSubmitting); err != nil {
		return err
	}

	deleteErr := c.client.DeleteSlots(ctx, []string{slotID})
	if deleteErr != nil {
		c.view.ShowMessage(deleteErr.Error())
	}
	if err := c.Refresh(ctx); err != nil {
		c.log.Error("refresh after delete", "error", err)
	}
	c.state = StateIdle
	return nil
}
