package date

import "time"

// Range represents a range of dates.
type Range struct{ From, To Date }

// Year returns the calendar year as a Range.
func Year(y int) Range {
	return Range{From: New(y, time.January, 1), To: New(y, time.December, 31)}
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return (!date.Before(r.From) && !date.After(r.To)) }

// ContainsTime reports whether the UTC day of t is in the range.
func (r Range) ContainsTime(t time.Time) bool { return r.Contains(FromTime(t)) }

// End returns the first instant after the range.
func (r Range) End() time.Time { return r.To.Add(1).time() }

func (r Range) String() string { return r.From.String() + ".." + r.To.String() }
