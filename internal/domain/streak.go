package domain

import "time"

// MaxBonusDays caps the streak bonus: one point per streak day, at most 30.
const MaxBonusDays = 30

// Streak counts consecutive calendar days with a login.
type Streak struct {
	CurrentDays int        `json:"current_days"`
	MaxDays     int        `json:"max_days"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// RecordLogin advances the streak. Calendar days are taken in at's location.
// It returns false when at falls on the same day as the previous login,
// in which case nothing changes.
func (s *Streak) RecordLogin(at time.Time) bool {
	if s.LastLogin == nil {
		s.CurrentDays = 1
		s.touch(at)
		return true
	}

	switch calendarDaysBetween(s.LastLogin.In(at.Location()), at) {
	case 0:
		return false
	case 1:
		s.CurrentDays++
	default:
		s.CurrentDays = 1
	}
	s.touch(at)
	return true
}

// BonusPoints returns the login bonus for the current streak length.
func (s Streak) BonusPoints() Amount {
	return MustAmount(int64(min(s.CurrentDays, MaxBonusDays)))
}

func (s *Streak) touch(at time.Time) {
	s.MaxDays = max(s.MaxDays, s.CurrentDays)
	t := at
	s.LastLogin = &t
}

// calendarDaysBetween counts whole calendar days from a to b. Dates are
// projected onto UTC midnights so DST shifts cannot produce 23h or 25h days.
func calendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / day)
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	return calendarDaysBetween(a, b.In(a.Location())) == 0
}
