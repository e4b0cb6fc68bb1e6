package scoring

import (
	"time"

	apperrors "github.com/Nanai10a/genkai-point-server/internal/errors"
	"github.com/Nanai10a/genkai-point-server/internal/model"
)

// PointFunc converts a closed presence interval into genkai points.
// Implementations must be pure: a zero-length interval yields zero points,
// and points never decrease as the overlap with the penalty window grows.
type PointFunc func(joinedAt, leftAt time.Time) uint64

// Duration returns the length of a closed session.
func Duration(s model.Session) (time.Duration, error) {
	if !s.Closed() {
		return 0, apperrors.OpenSession(s.UserID)
	}
	return s.LeftAt.Sub(s.JoinedAt), nil
}

// SessionPoint applies the point policy to a closed session.
func SessionPoint(s model.Session, point PointFunc) (uint64, error) {
	if !s.Closed() {
		return 0, apperrors.OpenSession(s.UserID)
	}
	return point(s.JoinedAt, *s.LeftAt), nil
}

// Aggregate sums points and duration over a user's closed sessions.
// An empty slice yields (0, 0).
func Aggregate(sessions []model.Session, point PointFunc) (uint64, time.Duration, error) {
	var points uint64
	var total time.Duration
	for _, s := range sessions {
		d, err := Duration(s)
		if err != nil {
			return 0, 0, err
		}
		p, err := SessionPoint(s, point)
		if err != nil {
			return 0, 0, err
		}
		points += p
		total += d
	}
	return points, total, nil
}

// NightWindow awards PointsPerHour for every full hour a session overlaps
// the daily [StartHour, EndHour) window in Location. EndHour at or before
// StartHour means the window wraps past midnight; equal hours cover the
// whole day.
type NightWindow struct {
	StartHour     int
	EndHour       int
	Location      *time.Location
	PointsPerHour uint64
}

func (w NightWindow) Point(joinedAt, leftAt time.Time) uint64 {
	return uint64(w.Overlap(joinedAt, leftAt)/time.Hour) * w.PointsPerHour
}

// Overlap returns the total time [from, to) spends inside the window.
func (w NightWindow) Overlap(from, to time.Time) time.Duration {
	if !to.After(from) {
		return 0
	}

	from = from.In(w.Location)
	to = to.In(w.Location)

	// Start a day early so a wrapped window opened the previous evening
	// still counts.
	day := midnight(from, w.Location).AddDate(0, 0, -1)
	last := midnight(to, w.Location)

	var total time.Duration
	for ; !day.After(last); day = day.AddDate(0, 0, 1) {
		start := day.Add(time.Duration(w.StartHour) * time.Hour)
		end := day.Add(time.Duration(w.EndHour) * time.Hour)
		if w.EndHour <= w.StartHour {
			end = end.AddDate(0, 0, 1)
		}
		total += intersect(from, to, start, end)
	}
	return total
}

func midnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func intersect(aFrom, aTo, bFrom, bTo time.Time) time.Duration {
	from := aFrom
	if bFrom.After(from) {
		from = bFrom
	}
	to := aTo
	if bTo.Before(to) {
		to = bTo
	}
	if !to.After(from) {
		return 0
	}
	return to.Sub(from)
}
