package quota

import "time"

// Clock supplies calendar-day ordinals so rollover logic never depends on
// wall-clock time directly. Ordinals count days since the Unix epoch in the
// local zone; two timestamps on the same local calendar day map to the same
// ordinal.
type Clock interface {
	TodayOrdinal() int
	MonthStartOrdinal() int
	NextMidnight() time.Time
}

type systemClock struct{}

// SystemClock returns a Clock backed by the local time zone.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) TodayOrdinal() int {
	return DayOrdinal(time.Now())
}

func (systemClock) MonthStartOrdinal() int {
	now := time.Now()
	y, m, _ := now.Date()
	return DayOrdinal(time.Date(y, m, 1, 0, 0, 0, 0, now.Location()))
}

func (systemClock) NextMidnight() time.Time {
	now := time.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// DayOrdinal maps a timestamp to its local calendar-day ordinal.
func DayOrdinal(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
