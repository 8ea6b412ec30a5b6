package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/store"
)

const (
	// WordsPerLevel scales the level-up threshold: level L ends at L*WordsPerLevel words.
	WordsPerLevel = 10

	// ActivityDays is how many calendar days of activity a snapshot keeps.
	ActivityDays = 7

	dateLayout = "2006-01-02"
)

// NewSnapshot returns the progress of a user with no activity.
func NewSnapshot() *remote.ProgressSnapshot {
	return &remote.ProgressSnapshot{
		Level:            1,
		WordsToNextLevel: WordsPerLevel,
		StatsByCategory:  map[string]int{},
		ActivityByDay:    []remote.DayActivity{},
	}
}

// Project returns a copy of s with one recorded word applied at now. s is
// not modified. This is a best-effort local estimate; the authority's
// snapshot replaces it after the next sync.
func Project(s *remote.ProgressSnapshot, mode remote.Mode, category string, now time.Time) *remote.ProgressSnapshot {
	out := clone(s)

	out.TotalWords++
	switch mode {
	case remote.ModeDetection:
		out.DetectionWords++
	case remote.ModePractice:
		out.PracticeWords++
	}
	if category != "" {
		out.StatsByCategory[category]++
	}

	out.Streak = nextStreak(out.Streak, out.LastActivity, now)
	out.LastActivity = now
	out.ActivityByDay = addActivity(out.ActivityByDay, now.Format(dateLayout))

	if out.Level < 1 {
		out.Level = 1
	}
	if out.TotalWords >= out.Level*WordsPerLevel {
		out.Level++
	}
	out.WordsToNextLevel = out.Level * WordsPerLevel
	return out
}

func clone(s *remote.ProgressSnapshot) *remote.ProgressSnapshot {
	if s == nil {
		return NewSnapshot()
	}
	out := *s
	out.StatsByCategory = maps.Clone(s.StatsByCategory)
	if out.StatsByCategory == nil {
		out.StatsByCategory = map[string]int{}
	}
	out.ActivityByDay = append([]remote.DayActivity(nil), s.ActivityByDay...)
	return &out
}

// nextStreak: same day keeps the streak (at least 1), the next day extends
// it, any gap restarts it.
func nextStreak(streak int, last, now time.Time) int {
	if last.IsZero() {
		return 1
	}
	switch daysBetween(last, now) {
	case 0:
		return max(streak, 1)
	case 1:
		return streak + 1
	default:
		return 1
	}
}

// daysBetween counts calendar days from a to b in b's location.
func daysBetween(a, b time.Time) int {
	loc := b.Location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 12, 0, 0, 0, loc)
	db := time.Date(by, bm, bd, 12, 0, 0, 0, loc)
	return int(db.Sub(da).Round(24*time.Hour) / (24 * time.Hour))
}

func addActivity(days []remote.DayActivity, date string) []remote.DayActivity {
	found := false
	for i := range days {
		if days[i].Date == date {
			days[i].Count++
			found = true
			break
		}
	}
	if !found {
		days = append(days, remote.DayActivity{Date: date, Count: 1})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	if len(days) > ActivityDays {
		days = days[len(days)-ActivityDays:]
	}
	return days
}

// Snapshots persists the local progress snapshot and the last sync time.
type Snapshots struct {
	kv store.KV

	mu sync.Mutex
}

// NewSnapshots creates a snapshot store persisted in kv.
func NewSnapshots(kv store.KV) *Snapshots {
	return &Snapshots{kv: kv}
}

// Load returns the stored snapshot, or NewSnapshot when none is stored.
func (s *Snapshots) Load(ctx context.Context) (*remote.ProgressSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Apply projects one recorded word onto the stored snapshot and saves it.
func (s *Snapshots) Apply(ctx context.Context, mode remote.Mode, category string, now time.Time) (*remote.ProgressSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	next := Project(cur, mode, category, now)
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Replace stores snap wholesale, discarding any local projection.
func (s *Snapshots) Replace(ctx context.Context, snap *remote.ProgressSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, snap)
}

// Clear removes the stored snapshot and last sync time.
func (s *Snapshots) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Remove(ctx, KeyProgressSnapshot); err != nil {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	if err := s.kv.Remove(ctx, KeyLastSyncAt); err != nil {
		return fmt.Errorf("remove last sync: %w", err)
	}
	return nil
}

// LastSync returns when the queue was last fully drained. ok is false if it
// never was.
func (s *Snapshots) LastSync(ctx context.Context) (t time.Time, ok bool, err error) {
	raw, err := s.kv.Get(ctx, KeyLastSyncAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load last sync: %w", err)
	}
	if raw == nil {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last sync: %w", err)
	}
	return t, true, nil
}

func (s *Snapshots) setLastSync(ctx context.Context, t time.Time) error {
	if err := s.kv.Set(ctx, KeyLastSyncAt, []byte(t.UTC().Format(time.RFC3339))); err != nil {
		return fmt.Errorf("save last sync: %w", err)
	}
	return nil
}

func (s *Snapshots) load(ctx context.Context) (*remote.ProgressSnapshot, error) {
	raw, err := s.kv.Get(ctx, KeyProgressSnapshot)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if raw == nil {
		return NewSnapshot(), nil
	}
	snap := NewSnapshot()
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *Snapshots) save(ctx context.Context, snap *remote.ProgressSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, KeyProgressSnapshot, raw); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
