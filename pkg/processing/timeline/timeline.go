// Package timeline reconstructs the chronological list of record breaking
// laps ("hall of fame") from a set of dated lap times.
package timeline

import (
	"math"
	"slices"
	"time"
)

type Point struct {
	Date       time.Time
	DriverName string
	DriverSlug string
	Time       float64
}

type Event struct {
	DriverName  string
	DriverSlug  string
	Time        float64
	Date        time.Time
	DaysReigned int
	Current     bool
}

// Reconstruct scans points in date order and emits an event whenever a lap is
// strictly faster than the running record. Equal dates keep their input order.
// Points without a date are ignored.
// The last event is the current record; its reign is measured until now.
func Reconstruct(points []Point, now time.Time) []Event {
	work := make([]Point, 0, len(points))
	for _, p := range points {
		if !p.Date.IsZero() {
			work = append(work, p)
		}
	}
	slices.SortStableFunc(work, func(a, b Point) int {
		return a.Date.Compare(b.Date)
	})

	best := math.Inf(1)
	ret := make([]Event, 0)
	for _, p := range work {
		if p.Time < best {
			best = p.Time
			ret = append(ret, Event{
				DriverName: p.DriverName,
				DriverSlug: p.DriverSlug,
				Time:       p.Time,
				Date:       p.Date,
			})
		}
	}
	for i := range ret {
		until := now
		if i < len(ret)-1 {
			until = ret[i+1].Date
		}
		ret[i].DaysReigned = DaysBetween(ret[i].Date, until)
	}
	if len(ret) > 0 {
		ret[len(ret)-1].Current = true
	}
	return ret
}

// DaysBetween returns the number of calendar days (UTC) from a to b.
// Negative spans are reported as 0.
func DaysBetween(a, b time.Time) int {
	da := civilDay(a)
	db := civilDay(b)
	days := int(db.Sub(da).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
