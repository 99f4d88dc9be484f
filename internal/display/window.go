package display

import "time"

const (
	MinHourlyWindow     = 12
	MaxHourlyWindow     = 48
	DefaultHourlyWindow = 24

	// HourlyTimeLayout is the provider's local-time format for hourly entries.
	HourlyTimeLayout = "2006-01-02T15:04"
)

// ClampHourlyWindow bounds count to [MinHourlyWindow, MaxHourlyWindow].
func ClampHourlyWindow(count int) int {
	if count < MinHourlyWindow {
		return MinHourlyWindow
	}
	if count > MaxHourlyWindow {
		return MaxHourlyWindow
	}
	return count
}

// SelectHourlyWindow returns the half-open index range [start, end) of the
// hourly entries to display: start is the first entry strictly after now in
// loc, and the range holds at most count entries (clamped to 12..48).
// Entries that do not parse are never chosen as start. When no entry lies in
// the future, start == end == len(times).
func SelectHourlyWindow(times []string, loc *time.Location, now time.Time, count int) (start, end int) {
	if loc == nil {
		loc = time.UTC
	}
	localNow := now.In(loc)
	start = len(times)
	for i, s := range times {
		t, err := time.ParseInLocation(HourlyTimeLayout, s, loc)
		if err != nil {
			continue
		}
		if t.After(localNow) {
			start = i
			break
		}
	}
	end = start + ClampHourlyWindow(count)
	if end > len(times) {
		end = len(times)
	}
	return start, end
}
