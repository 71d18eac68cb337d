package schedule

import "time"

// lookaheadDays bounds the forward scan for the next weekday in a set.
const lookaheadDays = 7

// NextOccurrence returns the next instant at which a fixed entry is due.
// Today counts when its weekday is in Days and TimeOfDay has not passed yet;
// otherwise the scan moves forward day by day up to a week. ok is false when
// the entry has no weekdays.
func NextOccurrence(e *Entry, now time.Time) (time.Time, bool) {
	if e.Days.Empty() {
		return time.Time{}, false
	}

	today := e.TimeOfDay.On(now)
	if e.Days.Has(now.Weekday()) && today.After(now) {
		return today, true
	}

	for offset := 1; offset <= lookaheadDays; offset++ {
		day := now.AddDate(0, 0, offset)
		if e.Days.Has(day.Weekday()) {
			return e.TimeOfDay.On(day), true
		}
	}

	return time.Time{}, false
}

// NextOccurrenceAfterToday is NextOccurrence with today excluded.
func NextOccurrenceAfterToday(e *Entry, now time.Time) (time.Time, bool) {
	y, m, d := now.Date()
	endOfDay := time.Date(y, m, d, 23, 59, 59, 0, now.Location())

	return NextOccurrence(e, endOfDay)
}

// IntervalSlot returns the most recent interval slot at or before now. The
// reference is today's TimeOfDay, or yesterday's when today's has not come
// yet, so a cycle started late in the evening keeps running past midnight.
func IntervalSlot(e *Entry, now time.Time) (time.Time, bool) {
	if e.IntervalHours <= 0 {
		return time.Time{}, false
	}

	reference := e.TimeOfDay.On(now)
	if now.Before(reference) {
		reference = e.TimeOfDay.On(now.AddDate(0, 0, -1))
	}

	period := time.Duration(e.IntervalHours) * time.Hour
	elapsed := now.Sub(reference)

	return reference.Add(elapsed / period * period), true
}

// NextIntervalSlot returns the first interval slot strictly after now. The
// cycle restarts at TimeOfDay every day, which caps the result.
func NextIntervalSlot(e *Entry, now time.Time) (time.Time, bool) {
	slot, ok := IntervalSlot(e, now)
	if !ok {
		return time.Time{}, false
	}

	next := slot.Add(time.Duration(e.IntervalHours) * time.Hour)

	restart := e.TimeOfDay.On(now)
	if !restart.After(now) {
		restart = e.TimeOfDay.On(now.AddDate(0, 0, 1))
	}

	if restart.Before(next) {
		return restart, true
	}

	return next, true
}
