package resolver

import (
	"time"

	"dermsched/pkg/model"
	"dermsched/pkg/timeutil"
)

// Outcome is the resolver's verdict on a drag-selected range.
type Outcome string

const (
	// OutcomePrompt means existing slots fall inside the selection and the
	// practitioner must choose between creating around them and deleting them.
	OutcomePrompt Outcome = "prompt"

	// OutcomeCreate means the selection is clear of existing slots and
	// creation can start immediately.
	OutcomeCreate Outcome = "create"

	// OutcomePast means the selection lies entirely before today. Nothing
	// can be created there and the practitioner is told so.
	OutcomePast Outcome = "past"
)

// PendingSelection carries everything the conflict prompt needs: the slots
// that were found inside the selection, the dates that survived enumeration,
// and the shift inferred from the drag, if any. CanCreate gates the "create
// anyway" choice; deletion of the found slots is always offered.
type PendingSelection struct {
	Slots        []*model.AvailabilitySlot
	Dates        []time.Time
	DefaultShift *model.Shift
	CanCreate    bool
}

// Resolution is the full result of resolving one drag gesture.
type Resolution struct {
	Outcome      Outcome
	Pending      *PendingSelection
	Dates        []time.Time
	DefaultShift *model.Shift
}

// EnumerateDates walks single-day steps from selStart's date to selEnd's
// date inclusive. A selEnd landing exactly on midnight strictly after
// selStart ends the walk one day earlier, since a drag released at midnight
// on day N does not include day N. Dates before now's date are dropped.
// When that leaves nothing but selStart's own date is today or later, the
// result falls back to just that date.
func EnumerateDates(selStart, selEnd, now time.Time) []time.Time {
	startDate := timeutil.StartOfDay(selStart)
	endDate := timeutil.StartOfDay(selEnd)
	if timeutil.IsMidnight(selEnd) && selEnd.After(selStart) {
		endDate = endDate.AddDate(0, 0, -1)
	}

	today := timeutil.StartOfDay(now)

	var dates []time.Time
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		if d.Before(today) {
			continue
		}
		dates = append(dates, d)
	}

	if len(dates) == 0 && !startDate.Before(today) {
		return []time.Time{startDate}
	}
	return dates
}

// InferShift derives a default shift from a same-day timed drag. Drags that
// span multiple dates, or whose endpoints are both midnight-aligned, carry
// no usable time-of-day information and infer nothing.
func InferShift(selStart, selEnd time.Time) *model.Shift {
	if !timeutil.SameDate(selStart, selEnd) {
		return nil
	}
	if timeutil.IsMidnight(selStart) && timeutil.IsMidnight(selEnd) {
		return nil
	}
	return &model.Shift{
		StartTime: timeutil.FormatClock(selStart),
		EndTime:   timeutil.FormatClock(selEnd),
	}
}

// slotsWithin returns the slots whose start time falls in [selStart, selEnd).
func slotsWithin(slots []*model.AvailabilitySlot, selStart, selEnd time.Time) []*model.AvailabilitySlot {
	var found []*model.AvailabilitySlot
	for _, slot := range slots {
		if !slot.StartTime.Before(selStart) && slot.StartTime.Before(selEnd) {
			found = append(found, slot)
		}
	}
	return found
}

// Resolve classifies a drag gesture against the currently known slots.
// Existing slots inside the selection always force a prompt; otherwise the
// enumerated dates decide between immediate creation and a past-range
// rejection.
func Resolve(slots []*model.AvailabilitySlot, selStart, selEnd, now time.Time) Resolution {
	dates := EnumerateDates(selStart, selEnd, now)
	shift := InferShift(selStart, selEnd)
	conflicts := slotsWithin(slots, selStart, selEnd)

	if len(conflicts) > 0 {
		return Resolution{
			Outcome: OutcomePrompt,
			Pending: &PendingSelection{
				Slots:        conflicts,
				Dates:        dates,
				DefaultShift: shift,
				CanCreate:    len(dates) > 0,
			},
		}
	}

	if len(dates) > 0 {
		return Resolution{
			Outcome:      OutcomeCreate,
			Dates:        dates,
			DefaultShift: shift,
		}
	}

	return Resolution{Outcome: OutcomePast}
}
