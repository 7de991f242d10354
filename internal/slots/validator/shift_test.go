package validator

import (
	"errors"
	"testing"

	"dermsched/pkg/logger"
	"dermsched/pkg/model"
)

func newTestValidator(t *testing.T) *ShiftValidator {
	t.Helper()
	return NewShiftValidator(logger.NewSilent())
}

func asValidationErrors(t *testing.T, err error) ValidationErrors {
	t.Helper()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}
	return verrs
}

func TestValidate_ValidShifts(t *testing.T) {
	v := newTestValidator(t)

	shifts := []model.Shift{
		{StartTime: "08:00", EndTime: "11:00"},
		{StartTime: "13:00", EndTime: "17:30"},
	}

	if err := v.Validate(shifts, 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EmptyShifts(t *testing.T) {
	v := newTestValidator(t)

	err := v.Validate(nil, 30)
	verrs := asValidationErrors(t, err)

	if len(verrs) != 1 || verrs[0].Field != "shifts" {
		t.Fatalf("expected single error on shifts, got %v", verrs)
	}
}

func TestValidate_FormatErrors(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name      string
		shifts    []model.Shift
		wantField string
	}{
		{
			name:      "missing leading zero",
			shifts:    []model.Shift{{StartTime: "9:00", EndTime: "11:00"}},
			wantField: "shifts[0].startTime",
		},
		{
			name:      "hour out of range",
			shifts:    []model.Shift{{StartTime: "08:00", EndTime: "24:00"}},
			wantField: "shifts[0].endTime",
		},
		{
			name:      "not a clock at all",
			shifts:    []model.Shift{{StartTime: "morning", EndTime: "11:00"}},
			wantField: "shifts[0].startTime",
		},
		{
			name:      "empty start",
			shifts:    []model.Shift{{StartTime: "", EndTime: "11:00"}},
			wantField: "shifts[0].startTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.shifts, 30)
			verrs := asValidationErrors(t, err)

			found := false
			for _, ve := range verrs {
				if ve.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestValidate_EndNotAfterStart(t *testing.T) {
	v := newTestValidator(t)

	shifts := []model.Shift{{StartTime: "11:00", EndTime: "08:00"}}
	err := v.Validate(shifts, 30)
	verrs := asValidationErrors(t, err)

	if len(verrs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(verrs), verrs)
	}
	if verrs[0].Field != "shifts[0].endTime" {
		t.Errorf("expected error on shifts[0].endTime, got %s", verrs[0].Field)
	}
}

func TestValidate_FormatErrorsSuppressOverlapCheck(t *testing.T) {
	v := newTestValidator(t)

	// Second shift is malformed, so only format errors come back even
	// though the first two would overlap.
	shifts := []model.Shift{
		{StartTime: "08:00", EndTime: "11:00"},
		{StartTime: "10:00", EndTime: "25:00"},
	}

	err := v.Validate(shifts, 30)
	verrs := asValidationErrors(t, err)

	for _, ve := range verrs {
		if ve.Field != "shifts[1].endTime" {
			t.Errorf("unexpected error field %s before formats are clean", ve.Field)
		}
	}
}

func TestValidate_OverlapTagsBothShifts(t *testing.T) {
	v := newTestValidator(t)

	shifts := []model.Shift{
		{StartTime: "08:00", EndTime: "11:00"},
		{StartTime: "10:00", EndTime: "13:00"},
	}

	err := v.Validate(shifts, 30)
	verrs := asValidationErrors(t, err)

	if len(verrs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(verrs), verrs)
	}
	if verrs[0].Field != "shifts[0].endTime" {
		t.Errorf("expected first error on shifts[0].endTime, got %s", verrs[0].Field)
	}
	if verrs[1].Field != "shifts[1].startTime" {
		t.Errorf("expected second error on shifts[1].startTime, got %s", verrs[1].Field)
	}
}

func TestValidate_OverlapUsesOriginalIndices(t *testing.T) {
	v := newTestValidator(t)

	// Out of order on input; the overlap is between index 1 (08:00-11:00)
	// and index 0 (10:00-13:00) once sorted by start time.
	shifts := []model.Shift{
		{StartTime: "10:00", EndTime: "13:00"},
		{StartTime: "08:00", EndTime: "11:00"},
	}

	err := v.Validate(shifts, 30)
	verrs := asValidationErrors(t, err)

	if len(verrs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(verrs), verrs)
	}
	if verrs[0].Field != "shifts[1].endTime" {
		t.Errorf("expected first error on shifts[1].endTime, got %s", verrs[0].Field)
	}
	if verrs[1].Field != "shifts[0].startTime" {
		t.Errorf("expected second error on shifts[0].startTime, got %s", verrs[1].Field)
	}
}

func TestValidate_OnlyFirstOverlapReported(t *testing.T) {
	v := newTestValidator(t)

	shifts := []model.Shift{
		{StartTime: "08:00", EndTime: "10:00"},
		{StartTime: "09:00", EndTime: "12:00"},
		{StartTime: "11:00", EndTime: "14:00"},
	}

	err := v.Validate(shifts, 30)
	verrs := asValidationErrors(t, err)

	if len(verrs) != 2 {
		t.Fatalf("expected only the first overlapping pair, got %d errors: %v", len(verrs), verrs)
	}
}

func TestValidate_TouchingShiftsDoNotOverlap(t *testing.T) {
	v := newTestValidator(t)

	shifts := []model.Shift{
		{StartTime: "08:00", EndTime: "11:00"},
		{StartTime: "11:00", EndTime: "14:00"},
	}

	if err := v.Validate(shifts, 30); err != nil {
		t.Fatalf("unexpected error for back-to-back shifts: %v", err)
	}
}

func TestValidate_ShiftShorterThanOneSlot(t *testing.T) {
	v := newTestValidator(t)

	shifts := []model.Shift{{StartTime: "08:00", EndTime: "08:20"}}
	err := v.Validate(shifts, 30)
	verrs := asValidationErrors(t, err)

	if len(verrs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(verrs), verrs)
	}
	if verrs[0].Field != "shifts[0].endTime" {
		t.Errorf("expected error on shifts[0].endTime, got %s", verrs[0].Field)
	}
}

func TestValidate_ExactlyOneSlotFits(t *testing.T) {
	v := newTestValidator(t)

	shifts := []model.Shift{{StartTime: "08:00", EndTime: "08:30"}}
	if err := v.Validate(shifts, 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_OverlapAndTooShortCollectedTogether(t *testing.T) {
	v := newTestValidator(t)

	shifts := []model.Shift{
		{StartTime: "08:00", EndTime: "08:10"},
		{StartTime: "08:05", EndTime: "08:15"},
	}

	err := v.Validate(shifts, 30)
	verrs := asValidationErrors(t, err)

	// Two overlap errors plus two too-short errors.
	if len(verrs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(verrs), verrs)
	}
}

func TestValidate_InvalidSlotDuration(t *testing.T) {
	v := newTestValidator(t)

	shifts := []model.Shift{{StartTime: "08:00", EndTime: "11:00"}}
	err := v.Validate(shifts, 0)
	verrs := asValidationErrors(t, err)

	if len(verrs) != 1 || verrs[0].Field != "slotDurationMinutes" {
		t.Fatalf("expected single error on slotDurationMinutes, got %v", verrs)
	}
}
