// Package planner turns validated day shifts into concrete slot intervals.
// Partitioning and batch expansion are pure functions of their inputs so
// the same selection always produces the same blocks.
package planner

import (
	"sort"
	"time"

	"dermsched/pkg/model"
	"dermsched/pkg/timeutil"
)

// Interval is one slot-sized window on a concrete day.
type Interval struct {
	Start time.Time
	End   time.Time
}

// PartitionShift cuts a shift on the given day into consecutive
// slot-sized intervals. A trailing remainder shorter than one slot is
// dropped. The shift must already be validated: malformed clock values
// yield no intervals.
func PartitionShift(day time.Time, shift model.Shift, slotDurationMinutes int) []Interval {
	if slotDurationMinutes <= 0 {
		return nil
	}

	start, err := timeutil.ToMinutes(shift.StartTime)
	if err != nil {
		return nil
	}
	end, err := timeutil.ToMinutes(shift.EndTime)
	if err != nil {
		return nil
	}
	if end <= start {
		return nil
	}

	fullSlots := (end - start) / slotDurationMinutes
	intervals := make([]Interval, 0, fullSlots)

	for i := 0; i < fullSlots; i++ {
		slotStart := start + i*slotDurationMinutes
		intervals = append(intervals, Interval{
			Start: timeutil.AtMinutes(day, slotStart),
			End:   timeutil.AtMinutes(day, slotStart+slotDurationMinutes),
		})
	}

	return intervals
}

// PartitionBlock cuts an absolute interval into consecutive slot-sized
// intervals, dropping a trailing remainder shorter than one slot. A block
// that is already exactly one slot long passes through unchanged.
func PartitionBlock(start, end time.Time, slotDurationMinutes int) []Interval {
	if slotDurationMinutes <= 0 || !end.After(start) {
		return nil
	}

	slotLength := time.Duration(slotDurationMinutes) * time.Minute
	fullSlots := int(end.Sub(start) / slotLength)
	intervals := make([]Interval, 0, fullSlots)

	for i := 0; i < fullSlots; i++ {
		slotStart := start.Add(time.Duration(i) * slotLength)
		intervals = append(intervals, Interval{
			Start: slotStart,
			End:   slotStart.Add(slotLength),
		})
	}

	return intervals
}

// SpanAllowsRepeat reports whether a selection of dates is narrow enough
// for weekly repetition. Selections spanning a week or more repeat onto
// themselves, so repetition is disabled for them.
func SpanAllowsRepeat(dates []time.Time, repeatSpanLimitDays int) bool {
	if len(dates) < 2 {
		return true
	}

	sorted := sortedDates(dates)
	span := timeutil.DaysBetween(sorted[0], sorted[len(sorted)-1])
	return span < repeatSpanLimitDays
}

// ExpandBatch produces the full list of slot blocks for a selection:
// every date, with every shift partitioned into slots, replicated weekly
// repeatWeeks additional times. Output order is week-major, then date,
// then shift order, then chronological within a shift.
//
// If the selection spans repeatSpanLimitDays or more, repeatWeeks is
// treated as zero regardless of what the caller asked for.
func ExpandBatch(dates []time.Time, shifts []model.Shift, slotDurationMinutes int, repeatWeeks int, repeatSpanLimitDays int, price *float64) []model.SlotBlock {
	if len(dates) == 0 || len(shifts) == 0 {
		return nil
	}

	if repeatWeeks < 0 {
		repeatWeeks = 0
	}
	if !SpanAllowsRepeat(dates, repeatSpanLimitDays) {
		repeatWeeks = 0
	}

	sorted := sortedDates(dates)

	var blocks []model.SlotBlock
	for week := 0; week <= repeatWeeks; week++ {
		for _, date := range sorted {
			day := date.AddDate(0, 0, 7*week)
			for _, shift := range shifts {
				for _, interval := range PartitionShift(day, shift, slotDurationMinutes) {
					blocks = append(blocks, model.SlotBlock{
						StartTime:           interval.Start,
						EndTime:             interval.End,
						SlotDurationMinutes: slotDurationMinutes,
						Price:               price,
					})
				}
			}
		}
	}

	return blocks
}

func sortedDates(dates []time.Time) []time.Time {
	sorted := make([]time.Time, len(dates))
	for i, d := range dates {
		sorted[i] = timeutil.StartOfDay(d)
	}
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].Before(sorted[b])
	})
	return sorted
}
