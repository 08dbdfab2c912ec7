package domain

import "github.com/google/uuid"

// ─── Daily Missions ─────────────────────────────────────────────────────────
// Missions reset every day. Finishing one pays its reward once.

// MissionKind is the activity a mission counts.
type MissionKind string

const (
	MissionAnswerSurveys MissionKind = "answer_surveys"
	MissionLogin         MissionKind = "login"
)

// DailyMission is a countable goal for the day.
type DailyMission struct {
	ID            string      `json:"id"`
	Kind          MissionKind `json:"kind"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	RequiredCount int         `json:"required_count"`
	Reward        Amount      `json:"reward"`
	Progress      int         `json:"progress"`
}

// NewDailyMission creates a mission with no progress.
func NewDailyMission(kind MissionKind, title string, required int, reward Amount) DailyMission {
	return DailyMission{
		ID:            uuid.NewString(),
		Kind:          kind,
		Title:         title,
		RequiredCount: required,
		Reward:        reward,
	}
}

// IsCompleted reports whether the required count has been reached.
func (m DailyMission) IsCompleted() bool {
	return m.Progress >= m.RequiredCount
}

// IncrementProgress advances by one. Completed missions do not move.
func (m *DailyMission) IncrementProgress() {
	if m.IsCompleted() {
		return
	}
	m.Progress++
}

// ProgressRatio returns progress in [0, 1].
func (m DailyMission) ProgressRatio() float64 {
	if m.RequiredCount <= 0 {
		return 0
	}
	return float64(m.Progress) / float64(m.RequiredCount)
}

// RemainingCount returns how many more steps are needed.
func (m DailyMission) RemainingCount() int {
	return max(0, m.RequiredCount-m.Progress)
}

// Reset clears progress.
func (m *DailyMission) Reset() { m.Progress = 0 }

// MissionTracker holds the day's missions.
type MissionTracker struct {
	Missions []DailyMission `json:"missions"`
}

// Add appends a mission.
func (t *MissionTracker) Add(m DailyMission) {
	t.Missions = append(t.Missions, m)
}

// AllCompleted is true when there is at least one mission and all are done.
func (t *MissionTracker) AllCompleted() bool {
	if len(t.Missions) == 0 {
		return false
	}
	for _, m := range t.Missions {
		if !m.IsCompleted() {
			return false
		}
	}
	return true
}

// CompletedReward sums rewards of completed missions.
func (t *MissionTracker) CompletedReward() Amount {
	var total Amount
	for _, m := range t.Missions {
		if m.IsCompleted() {
			total = total.Add(m.Reward)
		}
	}
	return total
}

// Advance increments every unfinished mission of the given kind and returns
// the missions that became complete on this step.
func (t *MissionTracker) Advance(kind MissionKind) []DailyMission {
	var finished []DailyMission
	for i := range t.Missions {
		m := &t.Missions[i]
		if m.Kind != kind || m.IsCompleted() {
			continue
		}
		m.IncrementProgress()
		if m.IsCompleted() {
			finished = append(finished, *m)
		}
	}
	return finished
}

// Reset clears progress on every mission.
func (t *MissionTracker) Reset() {
	for i := range t.Missions {
		t.Missions[i].Reset()
	}
}
