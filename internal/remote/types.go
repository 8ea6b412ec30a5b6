package remote

import (
	"context"
	"fmt"
	"time"
)

// Mode tags a session with the kind of exercise it tracks. It parameterizes
// penalty computation and the per-mode progress counters.
type Mode string

const (
	ModeDetection Mode = "detection"
	ModePractice  Mode = "practice"
)

// ParseMode validates s as a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDetection, ModePractice:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want detection or practice)", s)
}

// AffectedWord is one vocabulary entry whose mastery an abandonment would touch.
type AffectedWord struct {
	Word           string `json:"word"`
	Translation    string `json:"translation"`
	CurrentMastery int    `json:"current_mastery"`
	WillDegrade    bool   `json:"will_degrade"`
	NewMastery     int    `json:"new_mastery"`
}

// Consequences summarizes the cost of abandoning now.
type Consequences struct {
	Mode           Mode    `json:"mode"`
	FailurePenalty float64 `json:"failure_penalty"`
	AffectedCount  int     `json:"affected_count"`
}

// PenaltyAdvisory is the server-computed preview of what abandoning the
// session would cost. It is advisory only and may change between calls.
type PenaltyAdvisory struct {
	Warning       string         `json:"warning"`
	AffectedWords []AffectedWord `json:"affected_words"`
	Consequences  Consequences   `json:"consequences"`
}

// Degrading returns the affected words that would lose mastery.
func (a *PenaltyAdvisory) Degrading() []AffectedWord {
	var out []AffectedWord
	for _, w := range a.AffectedWords {
		if w.WillDegrade {
			out = append(out, w)
		}
	}
	return out
}

// DayActivity counts recorded words for one calendar day (YYYY-MM-DD).
type DayActivity struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ProgressSnapshot is the aggregate progress of a user. The server's copy is
// authoritative; the offline projection uses the same shape.
type ProgressSnapshot struct {
	Level            int            `json:"level"`
	TotalWords       int            `json:"total_words"`
	DetectionWords   int            `json:"detection_words"`
	PracticeWords    int            `json:"practice_words"`
	Streak           int            `json:"streak"`
	WordsToNextLevel int            `json:"words_to_next_level"`
	StatsByCategory  map[string]int `json:"stats_by_category"`
	ActivityByDay    []DayActivity  `json:"activity_by_day"`
	LastActivity     time.Time      `json:"last_activity,omitempty"`
}

// Authority is the remote session authority. Implementations must honor ctx
// cancellation and return errors classifiable with IsTransient.
type Authority interface {
	AbandonSession(ctx context.Context, sessionID int64) error
	CheckAbandonmentPenalty(ctx context.Context, sessionID int64, mode Mode) (*PenaltyAdvisory, error)
	RecordProgress(ctx context.Context, mode Mode, category string) error
	GetUserProgress(ctx context.Context) (*ProgressSnapshot, error)
}

// Health is the authority's health probe response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HealthChecker probes the authority's availability.
type HealthChecker interface {
	Health(ctx context.Context) (*Health, error)
}
