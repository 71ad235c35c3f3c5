package clinic

import "time"

// DeleteWindowMinutes bounds the interval after creation during which a study
// may still be deleted. The boundary is inclusive: a study that is exactly
// five minutes old is still deletable, at six minutes it is not.
const DeleteWindowMinutes = 5

// ElapsedMinutes returns whole minutes between createdAt and now, floored.
// A clock that appears to run backwards yields zero, never a negative value,
// so the window can only ever narrow.
func ElapsedMinutes(createdAt, now time.Time) int64 {
	d := now.Sub(createdAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// CanDelete reports whether a study created at createdAt is still inside the
// delete window at the given instant. Pure function of its two arguments; the
// caller supplies the clock.
func CanDelete(createdAt, now time.Time) bool {
	return ElapsedMinutes(createdAt, now) <= DeleteWindowMinutes
}
