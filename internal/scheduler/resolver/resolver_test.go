package resolver

import (
	"testing"
	"time"

	"dermsched/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func at(d, hour, minute int) time.Time {
	return time.Date(2025, 6, d, hour, minute, 0, 0, time.UTC)
}

func slotAt(d, hour int, status model.SlotStatus) *model.AvailabilitySlot {
	return &model.AvailabilitySlot{
		ID:        "slot-" + time.Date(2025, 6, d, hour, 0, 0, 0, time.UTC).Format("0102-1504"),
		StartTime: at(d, hour, 0),
		EndTime:   at(d, hour, 30),
		Status:    status,
	}
}

func TestEnumerateDates_SingleDay(t *testing.T) {
	dates := EnumerateDates(at(2, 8, 0), at(2, 11, 0), testNow)

	require.Len(t, dates, 1)
	assert.Equal(t, day(2), dates[0])
}

func TestEnumerateDates_MultiDayInclusiveEnd(t *testing.T) {
	dates := EnumerateDates(at(2, 8, 0), at(4, 11, 0), testNow)

	require.Len(t, dates, 3)
	assert.Equal(t, day(2), dates[0])
	assert.Equal(t, day(4), dates[2])
}

func TestEnumerateDates_MidnightEndExcludesThatDay(t *testing.T) {
	// A drag released exactly at midnight on June 4th covers the 2nd and
	// the 3rd only.
	dates := EnumerateDates(at(2, 8, 0), day(4), testNow)

	require.Len(t, dates, 2)
	assert.Equal(t, day(2), dates[0])
	assert.Equal(t, day(3), dates[1])
}

func TestEnumerateDates_DropsPastDates(t *testing.T) {
	dates := EnumerateDates(at(1, 0, 0).AddDate(0, 0, -2), at(2, 0, 1), testNow)

	require.NotEmpty(t, dates)
	for _, d := range dates {
		assert.False(t, d.Before(day(1)), "enumerated past date %v", d)
	}
}

func TestEnumerateDates_EntirelyPastYieldsNothing(t *testing.T) {
	dates := EnumerateDates(at(1, 8, 0).AddDate(0, 0, -5), at(1, 11, 0).AddDate(0, 0, -4), testNow)

	assert.Empty(t, dates)
}

func TestEnumerateDates_DegenerateSelectionFallsBackToStartDate(t *testing.T) {
	// An inverted selection enumerates nothing, so the start date itself
	// is used as long as it is not in the past.
	dates := EnumerateDates(at(5, 8, 0), at(4, 8, 0), testNow)

	require.Len(t, dates, 1)
	assert.Equal(t, day(5), dates[0])
}

func TestInferShift_SameDayTimedDrag(t *testing.T) {
	shift := InferShift(at(2, 8, 0), at(2, 11, 0))

	require.NotNil(t, shift)
	assert.Equal(t, "08:00", shift.StartTime)
	assert.Equal(t, "11:00", shift.EndTime)
}

func TestInferShift_MultiDayDragInfersNothing(t *testing.T) {
	assert.Nil(t, InferShift(at(2, 8, 0), at(3, 11, 0)))
}

func TestInferShift_MidnightAlignedDragInfersNothing(t *testing.T) {
	assert.Nil(t, InferShift(day(2), day(2)))
}

func TestResolve_ConflictYieldsPrompt(t *testing.T) {
	existing := []*model.AvailabilitySlot{
		slotAt(2, 9, model.SlotStatusAvailable),
		slotAt(3, 9, model.SlotStatusAvailable),
	}

	res := Resolve(existing, at(2, 8, 0), at(2, 11, 0), testNow)

	require.Equal(t, OutcomePrompt, res.Outcome)
	require.NotNil(t, res.Pending)
	require.Len(t, res.Pending.Slots, 1)
	assert.Equal(t, at(2, 9, 0), res.Pending.Slots[0].StartTime)
	require.NotNil(t, res.Pending.DefaultShift)
	assert.Equal(t, "08:00", res.Pending.DefaultShift.StartTime)
	assert.Equal(t, "11:00", res.Pending.DefaultShift.EndTime)
	assert.True(t, res.Pending.CanCreate)
}

func TestResolve_SlotStartingAtSelectionEndIsNotAConflict(t *testing.T) {
	existing := []*model.AvailabilitySlot{slotAt(2, 11, model.SlotStatusAvailable)}

	res := Resolve(existing, at(2, 8, 0), at(2, 11, 0), testNow)

	assert.Equal(t, OutcomeCreate, res.Outcome)
}

func TestResolve_ClearRangeYieldsCreate(t *testing.T) {
	res := Resolve(nil, at(2, 8, 0), at(2, 11, 0), testNow)

	require.Equal(t, OutcomeCreate, res.Outcome)
	require.Len(t, res.Dates, 1)
	assert.Equal(t, day(2), res.Dates[0])
	require.NotNil(t, res.DefaultShift)
}

func TestResolve_PastRangeYieldsPastOutcome(t *testing.T) {
	res := Resolve(nil, at(1, 8, 0).AddDate(0, 0, -5), at(1, 11, 0).AddDate(0, 0, -5), testNow)

	assert.Equal(t, OutcomePast, res.Outcome)
	assert.Nil(t, res.Pending)
	assert.Empty(t, res.Dates)
}

func TestResolve_ConflictInPastRangeDisablesCreate(t *testing.T) {
	pastSlot := &model.AvailabilitySlot{
		StartTime: at(1, 9, 0).AddDate(0, 0, -5),
		EndTime:   at(1, 9, 30).AddDate(0, 0, -5),
		Status:    model.SlotStatusBooked,
	}

	res := Resolve([]*model.AvailabilitySlot{pastSlot},
		at(1, 8, 0).AddDate(0, 0, -5), at(1, 11, 0).AddDate(0, 0, -5), testNow)

	require.Equal(t, OutcomePrompt, res.Outcome)
	require.NotNil(t, res.Pending)
	assert.False(t, res.Pending.CanCreate)
}
