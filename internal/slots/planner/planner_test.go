package planner

import (
	"testing"
	"time"

	"dermsched/pkg/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPartitionShift_FullSlots(t *testing.T) {
	day := date(2025, time.June, 2)
	shift := model.Shift{StartTime: "08:00", EndTime: "11:00"}

	intervals := PartitionShift(day, shift, 30)

	if len(intervals) != 6 {
		t.Fatalf("expected 6 intervals, got %d", len(intervals))
	}

	first := intervals[0]
	if first.Start.Hour() != 8 || first.Start.Minute() != 0 {
		t.Errorf("expected first interval at 08:00, got %v", first.Start)
	}
	if first.End.Hour() != 8 || first.End.Minute() != 30 {
		t.Errorf("expected first interval to end at 08:30, got %v", first.End)
	}

	last := intervals[5]
	if last.Start.Hour() != 10 || last.Start.Minute() != 30 {
		t.Errorf("expected last interval at 10:30, got %v", last.Start)
	}
	if last.End.Hour() != 11 || last.End.Minute() != 0 {
		t.Errorf("expected last interval to end at 11:00, got %v", last.End)
	}
}

func TestPartitionShift_DropsTrailingPartial(t *testing.T) {
	day := date(2025, time.June, 2)
	shift := model.Shift{StartTime: "08:00", EndTime: "09:20"}

	intervals := PartitionShift(day, shift, 30)

	if len(intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(intervals))
	}
	if intervals[1].End.Hour() != 9 || intervals[1].End.Minute() != 0 {
		t.Errorf("expected last interval to end at 09:00, got %v", intervals[1].End)
	}
}

func TestPartitionShift_ContiguousIntervals(t *testing.T) {
	day := date(2025, time.June, 2)
	shift := model.Shift{StartTime: "09:00", EndTime: "12:00"}

	intervals := PartitionShift(day, shift, 45)

	for i := 1; i < len(intervals); i++ {
		if !intervals[i].Start.Equal(intervals[i-1].End) {
			t.Errorf("interval %d starts at %v, previous ends at %v", i, intervals[i].Start, intervals[i-1].End)
		}
	}
}

func TestPartitionShift_ShorterThanOneSlot(t *testing.T) {
	day := date(2025, time.June, 2)
	shift := model.Shift{StartTime: "08:00", EndTime: "08:20"}

	if intervals := PartitionShift(day, shift, 30); len(intervals) != 0 {
		t.Fatalf("expected no intervals, got %d", len(intervals))
	}
}

func TestPartitionShift_MalformedShift(t *testing.T) {
	day := date(2025, time.June, 2)

	tests := []struct {
		name  string
		shift model.Shift
	}{
		{"bad start", model.Shift{StartTime: "8:00", EndTime: "11:00"}},
		{"bad end", model.Shift{StartTime: "08:00", EndTime: "25:00"}},
		{"inverted", model.Shift{StartTime: "11:00", EndTime: "08:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if intervals := PartitionShift(day, tt.shift, 30); intervals != nil {
				t.Errorf("expected nil, got %v", intervals)
			}
		})
	}
}

func TestPartitionBlock(t *testing.T) {
	start := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"whole shift", start.Add(3 * time.Hour), 6},
		{"single slot", start.Add(30 * time.Minute), 1},
		{"trailing partial dropped", start.Add(80 * time.Minute), 2},
		{"too short", start.Add(20 * time.Minute), 0},
		{"inverted", start.Add(-time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PartitionBlock(start, tt.end, 30)
			if len(got) != tt.want {
				t.Errorf("expected %d intervals, got %d", tt.want, len(got))
			}
			for i := 1; i < len(got); i++ {
				if !got[i].Start.Equal(got[i-1].End) {
					t.Errorf("interval %d not contiguous", i)
				}
			}
		})
	}
}

func TestSpanAllowsRepeat(t *testing.T) {
	tests := []struct {
		name  string
		dates []time.Time
		want  bool
	}{
		{
			name:  "single date",
			dates: []time.Time{date(2025, time.June, 2)},
			want:  true,
		},
		{
			name:  "six day span",
			dates: []time.Time{date(2025, time.June, 2), date(2025, time.June, 8)},
			want:  true,
		},
		{
			name:  "seven day span",
			dates: []time.Time{date(2025, time.June, 2), date(2025, time.June, 9)},
			want:  false,
		},
		{
			name:  "unsorted input",
			dates: []time.Time{date(2025, time.June, 9), date(2025, time.June, 2)},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SpanAllowsRepeat(tt.dates, 7); got != tt.want {
				t.Errorf("SpanAllowsRepeat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpandBatch_SingleWeek(t *testing.T) {
	dates := []time.Time{date(2025, time.June, 2)}
	shifts := []model.Shift{{StartTime: "08:00", EndTime: "11:00"}}

	blocks := ExpandBatch(dates, shifts, 30, 0, 7, nil)

	if len(blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(blocks))
	}
	for _, b := range blocks {
		if b.SlotDurationMinutes != 30 {
			t.Errorf("expected duration 30, got %d", b.SlotDurationMinutes)
		}
	}
}

func TestExpandBatch_WeeklyRepetition(t *testing.T) {
	dates := []time.Time{
		date(2025, time.June, 2),
		date(2025, time.June, 3),
	}
	shifts := []model.Shift{{StartTime: "08:00", EndTime: "11:00"}}

	blocks := ExpandBatch(dates, shifts, 30, 1, 7, nil)

	// 2 dates x 6 slots x 2 weeks.
	if len(blocks) != 24 {
		t.Fatalf("expected 24 blocks, got %d", len(blocks))
	}

	// Index 12 is the first block of week 1: June 2nd shifted by 7 days.
	week1First := blocks[12]
	if week1First.StartTime.Day() != 9 {
		t.Errorf("expected week 1 to start on June 9th, got day %d", week1First.StartTime.Day())
	}
	if week1First.StartTime.Hour() != 8 {
		t.Errorf("expected week 1 first block at 08:00, got hour %d", week1First.StartTime.Hour())
	}
}

func TestExpandBatch_WideSpanDisablesRepeat(t *testing.T) {
	dates := []time.Time{
		date(2025, time.June, 2),
		date(2025, time.June, 9),
	}
	shifts := []model.Shift{{StartTime: "08:00", EndTime: "09:00"}}

	blocks := ExpandBatch(dates, shifts, 30, 3, 7, nil)

	// Repeat forced to zero: 2 dates x 2 slots.
	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}
}

func TestExpandBatch_Deterministic(t *testing.T) {
	dates := []time.Time{
		date(2025, time.June, 3),
		date(2025, time.June, 2),
	}
	shifts := []model.Shift{
		{StartTime: "08:00", EndTime: "09:00"},
		{StartTime: "13:00", EndTime: "14:00"},
	}

	a := ExpandBatch(dates, shifts, 30, 2, 7, nil)
	b := ExpandBatch(dates, shifts, 30, 2, 7, nil)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].StartTime.Equal(b[i].StartTime) || !a[i].EndTime.Equal(b[i].EndTime) {
			t.Errorf("block %d differs between runs", i)
		}
	}

	// Dates are emitted in chronological order regardless of input order.
	if a[0].StartTime.Day() != 2 {
		t.Errorf("expected first block on June 2nd, got day %d", a[0].StartTime.Day())
	}
}

func TestExpandBatch_PriceCarriedThrough(t *testing.T) {
	price := 120.0
	dates := []time.Time{date(2025, time.June, 2)}
	shifts := []model.Shift{{StartTime: "08:00", EndTime: "09:00"}}

	blocks := ExpandBatch(dates, shifts, 30, 0, 7, &price)

	for _, b := range blocks {
		if b.Price == nil || *b.Price != 120.0 {
			t.Errorf("expected price 120.0 on every block")
		}
	}
}

func TestExpandBatch_EmptyInputs(t *testing.T) {
	if blocks := ExpandBatch(nil, []model.Shift{{StartTime: "08:00", EndTime: "09:00"}}, 30, 0, 7, nil); blocks != nil {
		t.Errorf("expected nil for empty dates")
	}
	if blocks := ExpandBatch([]time.Time{date(2025, time.June, 2)}, nil, 30, 0, 7, nil); blocks != nil {
		t.Errorf("expected nil for empty shifts")
	}
}
