package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"dermsched/pkg/logger"
	"dermsched/pkg/model"
	"dermsched/pkg/timeutil"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ShiftValidator checks a day's worth of shifts against clock format,
// ordering, mutual overlap, and the slot duration.
type ShiftValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewShiftValidator(log *logger.Logger) *ShiftValidator {
	v := validator.New()

	if err := v.RegisterValidation("hhmm", validateClock); err != nil {
		log.Fatal("Failed to register 'hhmm' validator",
			"error", err,
		)
	}

	return &ShiftValidator{
		validate: v,
		logger:   log,
	}
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := timeutil.ToMinutes(fl.Field().String())
	return err == nil
}

// Validate runs two phases. Format and per-shift range problems are
// reported first; overlap and duration-fit checks only run once every
// shift parses cleanly, so they never see malformed input.
//
// Overlap reporting stops at the first conflicting pair in start-time
// order and tags both sides: the earlier shift's endTime and the later
// shift's startTime.
func (v *ShiftValidator) Validate(shifts []model.Shift, slotDurationMinutes int) error {
	if len(shifts) == 0 {
		return ValidationErrors{
			ValidationError{
				Field:   "shifts",
				Message: "at least one shift is required",
			},
		}
	}

	if slotDurationMinutes <= 0 {
		return ValidationErrors{
			ValidationError{
				Field:   "slotDurationMinutes",
				Message: "slot duration must be positive",
			},
		}
	}

	if errs := v.validateFormats(shifts); len(errs) > 0 {
		return errs
	}

	var validationErrors ValidationErrors
	validationErrors = append(validationErrors, v.validateOverlap(shifts)...)
	validationErrors = append(validationErrors, v.validateDurationFit(shifts, slotDurationMinutes)...)

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func (v *ShiftValidator) validateFormats(shifts []model.Shift) ValidationErrors {
	var validationErrors ValidationErrors

	for i, shift := range shifts {
		if err := v.validate.Struct(shift); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				validationErrors = append(validationErrors, v.translateValidationErrors(i, validationErrs)...)
				continue
			}
			validationErrors = append(validationErrors, ValidationError{
				Field:   shiftField(i, "startTime"),
				Message: err.Error(),
			})
			continue
		}

		start, _ := timeutil.ToMinutes(shift.StartTime)
		end, _ := timeutil.ToMinutes(shift.EndTime)
		if end <= start {
			validationErrors = append(validationErrors, ValidationError{
				Field:   shiftField(i, "endTime"),
				Message: "endTime must be after startTime",
			})
		}
	}

	return validationErrors
}

// indexedShift retains the caller's position so error fields point at
// the original slice, not the sorted order.
type indexedShift struct {
	start int
	end   int
	pos   int
}

func (v *ShiftValidator) validateOverlap(shifts []model.Shift) ValidationErrors {
	if len(shifts) < 2 {
		return nil
	}

	sorted := make([]indexedShift, len(shifts))
	for i, shift := range shifts {
		start, _ := timeutil.ToMinutes(shift.StartTime)
		end, _ := timeutil.ToMinutes(shift.EndTime)
		sorted[i] = indexedShift{start: start, end: end, pos: i}
	}

	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].start < sorted[b].start
	})

	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		if prev.end > curr.start {
			return ValidationErrors{
				ValidationError{
					Field:   shiftField(prev.pos, "endTime"),
					Message: "shift overlaps with the next shift",
				},
				ValidationError{
					Field:   shiftField(curr.pos, "startTime"),
					Message: "shift overlaps with the previous shift",
				},
			}
		}
	}

	return nil
}

func (v *ShiftValidator) validateDurationFit(shifts []model.Shift, slotDurationMinutes int) ValidationErrors {
	var validationErrors ValidationErrors

	for i, shift := range shifts {
		start, _ := timeutil.ToMinutes(shift.StartTime)
		end, _ := timeutil.ToMinutes(shift.EndTime)

		fullSlots := (end - start) / slotDurationMinutes
		if fullSlots < 1 {
			validationErrors = append(validationErrors, ValidationError{
				Field:   shiftField(i, "endTime"),
				Message: fmt.Sprintf("shift is shorter than one slot of %d minutes", slotDurationMinutes),
			})
		}
	}

	return validationErrors
}

func (v *ShiftValidator) translateValidationErrors(index int, errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", fieldName(err.Field()))
		case "hhmm":
			message = fmt.Sprintf("%s must be in HH:mm format", fieldName(err.Field()))
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   shiftField(index, fieldName(err.Field())),
			Message: message,
		})
	}

	return validationErrors
}

func shiftField(index int, field string) string {
	return fmt.Sprintf("shifts[%d].%s", index, field)
}

func fieldName(structField string) string {
	switch structField {
	case "StartTime":
		return "startTime"
	case "EndTime":
		return "endTime"
	default:
		return structField
	}
}
