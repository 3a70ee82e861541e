package predicate

import "time"

// DateBucket is a symbolic date range resolved against a reference time.
//
// Each bucket resolves to a half-open [low, high) instant pair, so adjacent
// buckets never overlap and an instant belongs to exactly one bucket.
type DateBucket int

// Symbolic date buckets.
const (
	// BucketNow is a one-minute window ending at the reference time.
	BucketNow DateBucket = iota

	// BucketToday is the calendar day containing the reference time.
	BucketToday

	// BucketYesterday is the calendar day before the reference time.
	BucketYesterday

	// BucketThisWeek is the calendar week (starting Monday) containing the
	// reference time.
	BucketThisWeek

	// BucketLastWeek is the calendar week before the reference time's week.
	BucketLastWeek

	// BucketThisMonth is the calendar month containing the reference time.
	BucketThisMonth

	// BucketLastMonth is the calendar month before the reference time's month.
	BucketLastMonth

	// BucketThisYear is the calendar year containing the reference time.
	BucketThisYear

	// BucketLastYear is the calendar year before the reference time's year.
	BucketLastYear
)

// String returns the bucket name.
func (b DateBucket) String() string {
	switch b {
	case BucketNow:
		return "now"
	case BucketToday:
		return "today"
	case BucketYesterday:
		return "yesterday"
	case BucketThisWeek:
		return "thisWeek"
	case BucketLastWeek:
		return "lastWeek"
	case BucketThisMonth:
		return "thisMonth"
	case BucketLastMonth:
		return "lastMonth"
	case BucketThisYear:
		return "thisYear"
	case BucketLastYear:
		return "lastYear"
	default:
		return "unknown"
	}
}

// Range resolves the bucket to a concrete [low, high) pair relative to now.
func (b DateBucket) Range(now time.Time) (time.Time, time.Time) {
	switch b {
	case BucketNow:
		return now.Add(-time.Minute), now.Add(time.Nanosecond)
	case BucketToday:
		low := startOfDay(now)
		return low, low.AddDate(0, 0, 1)
	case BucketYesterday:
		high := startOfDay(now)
		return high.AddDate(0, 0, -1), high
	case BucketThisWeek:
		low := startOfWeek(now)
		return low, low.AddDate(0, 0, 7)
	case BucketLastWeek:
		high := startOfWeek(now)
		return high.AddDate(0, 0, -7), high
	case BucketThisMonth:
		low := startOfMonth(now)
		return low, low.AddDate(0, 1, 0)
	case BucketLastMonth:
		high := startOfMonth(now)
		return high.AddDate(0, -1, 0), high
	case BucketThisYear:
		low := startOfYear(now)
		return low, low.AddDate(1, 0, 0)
	case BucketLastYear:
		high := startOfYear(now)
		return high.AddDate(-1, 0, 0), high
	default:
		return now, now
	}
}

// WithinRange resolves a trailing window of n units ending at now.
//
// The range is [now - n*unit, now], inclusive on both ends per the
// "within the last n units" reading.
func WithinRange(now time.Time, n int, unit DurationUnit) (time.Time, time.Time) {
	span := time.Duration(Duration(float64(n), unit) * float64(time.Second))
	return now.Add(-span), now
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the preceding Monday midnight.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week starting the previous Monday.
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

func startOfMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
