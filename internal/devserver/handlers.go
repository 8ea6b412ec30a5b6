package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/offline"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

// Penalty rules per mode: the numeric penalty reported to clients and the
// minimum mastery a word needs before an abandonment lowers it.
var penaltyRules = map[remote.Mode]struct {
	penalty    float64
	minMastery int
}{
	remote.ModePractice:  {penalty: 1, minMastery: 1},
	remote.ModeDetection: {penalty: 0.5, minMastery: 2},
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, remote.Health{Status: "ok", Version: s.version})
}

// abandon handles POST /sessions/{id}/abandon[?mode=]. Repeating it is
// harmless. A session the server has not seen yet takes the given mode,
// falling back to practice.
func (s *Server) abandon(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r, remote.OpAbandonSession) {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	mode := remote.ModePractice
	if raw := r.URL.Query().Get("mode"); raw != "" {
		m, err := remote.ParseMode(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}

	s.mu.Lock()
	s.abandons[id]++
	rec := s.sessionLocked(id, mode)
	if !rec.abandoned {
		rec.abandoned = true
		adv := computePenalty(s.words, rec.mode)
		for _, aw := range adv.AffectedWords {
			if !aw.WillDegrade {
				continue
			}
			for i := range s.words {
				if s.words[i].Word == aw.Word {
					s.words[i].Mastery = aw.NewMastery
				}
			}
		}
	}
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// penalty handles GET /sessions/{id}/penalty?mode=.
func (s *Server) penalty(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r, remote.OpCheckPenalty) {
		return
	}
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	mode, err := remote.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.sessionLocked(id, mode)
	adv := computePenalty(s.words, mode)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, adv)
}

func (s *Server) recordProgress(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r, remote.OpRecordProgress) {
		return
	}
	var req struct {
		Mode     string `json:"mode"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	mode, err := remote.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now()
	s.mu.Lock()
	s.progress = offline.Project(s.progress, mode, req.Category, now)
	s.recordLog = append(s.recordLog, offline.Entry{Mode: mode, Category: req.Category, CreatedAt: now})
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r, remote.OpGetUserProgress) {
		return
	}
	s.mu.Lock()
	snap := *s.progress
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) sessionLocked(id int64, mode remote.Mode) *sessionRecord {
	rec, ok := s.sessions[id]
	if !ok {
		rec = &sessionRecord{mode: mode}
		s.sessions[id] = rec
	}
	return rec
}

// injected applies an armed fault for op. It returns true when the response
// has been written.
func (s *Server) injected(w http.ResponseWriter, r *http.Request, op string) bool {
	s.mu.Lock()
	f := s.faults[op]
	var fault Fault
	if f != nil && f.Count > 0 {
		f.Count--
		fault = *f
	}
	s.mu.Unlock()

	if fault.Delay > 0 {
		select {
		case <-time.After(fault.Delay):
		case <-r.Context().Done():
			return true
		}
	}
	if fault.Status == 0 {
		return false
	}
	writeError(w, fault.Status, "injected fault")
	return true
}

func sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid session id %q", chi.URLParam(r, "id")))
		return 0, false
	}
	return id, true
}

func computePenalty(words []Word, mode remote.Mode) *remote.PenaltyAdvisory {
	rule := penaltyRules[mode]
	adv := &remote.PenaltyAdvisory{
		AffectedWords: make([]remote.AffectedWord, 0, len(words)),
		Consequences:  remote.Consequences{Mode: mode, FailurePenalty: rule.penalty},
	}
	for _, w := range words {
		aw := remote.AffectedWord{
			Word:           w.Word,
			Translation:    w.Translation,
			CurrentMastery: w.Mastery,
			NewMastery:     w.Mastery,
		}
		if w.Mastery >= rule.minMastery {
			aw.WillDegrade = true
			aw.NewMastery = w.Mastery - 1
			adv.Consequences.AffectedCount++
		}
		adv.AffectedWords = append(adv.AffectedWords, aw)
	}

	switch adv.Consequences.AffectedCount {
	case 0:
		adv.Warning = "Leaving now will not change your mastery."
	case 1:
		adv.Warning = "Leaving now will lower the mastery of 1 word."
	default:
		adv.Warning = fmt.Sprintf("Leaving now will lower the mastery of %d words.", adv.Consequences.AffectedCount)
	}
	return adv
}
