// Package devserver is an in-memory session authority for local development
// and end-to-end tests. It speaks the same HTTP contract as the production
// authority, computes penalty advisories from a small vocabulary, and
// aggregates progress with the same rules as the offline projection.
package devserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/offline"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

// Version is the API version reported by /health.
const Version = "v1.0.0"

// Word is a vocabulary entry with the user's current mastery.
type Word struct {
	Word        string
	Translation string
	Mastery     int
}

// DefaultWords is the vocabulary served when Options.Words is empty.
var DefaultWords = []Word{
	{Word: "allqu", Translation: "dog", Mastery: 3},
	{Word: "misi", Translation: "cat", Mastery: 1},
	{Word: "wasi", Translation: "house", Mastery: 2},
	{Word: "yaku", Translation: "water", Mastery: 0},
	{Word: "inti", Translation: "sun", Mastery: 4},
}

// Options configures a Server.
type Options struct {
	// Token, when set, is required as a bearer token on every route but /health.
	Token string

	// Version overrides the reported API version.
	Version string

	Words  []Word
	Logger *slog.Logger
	Now    func() time.Time
}

// Fault makes the next Count calls of an operation fail with Status after
// Delay. A zero Status only delays.
type Fault struct {
	Status int
	Delay  time.Duration
	Count  int
}

type sessionRecord struct {
	mode      remote.Mode
	abandoned bool
}

// Server is the in-memory authority. It is safe for concurrent use.
type Server struct {
	token   string
	version string
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	words     []Word
	sessions  map[int64]*sessionRecord
	progress  *remote.ProgressSnapshot
	faults    map[string]*Fault
	abandons  map[int64]int
	recordLog []offline.Entry
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Version == "" {
		opts.Version = Version
	}
	if len(opts.Words) == 0 {
		opts.Words = DefaultWords
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		token:    opts.Token,
		version:  opts.Version,
		logger:   opts.Logger,
		now:      opts.Now,
		words:    append([]Word(nil), opts.Words...),
		sessions: make(map[int64]*sessionRecord),
		progress: offline.NewSnapshot(),
		faults:   make(map[string]*Fault),
		abandons: make(map[int64]int),
	}
}

// Handler returns the chi router serving the authority API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(logRequests(s.logger))
	r.Use(recovery(s.logger))

	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.token))

		r.Post("/sessions/{id}/abandon", s.abandon)
		r.Get("/sessions/{id}/penalty", s.penalty)
		r.Get("/progress", s.getProgress)
		r.Post("/progress", s.recordProgress)
	})
	return r
}

// InjectFault arms f for the operation op (one of the remote.Op* names).
func (s *Server) InjectFault(op string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &f
}

// StartSession registers a session. Unknown sessions are registered
// implicitly on first use.
func (s *Server) StartSession(id int64, mode remote.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &sessionRecord{mode: mode}
}

// Abandoned reports whether id was abandoned.
func (s *Server) Abandoned(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	return ok && rec.abandoned
}

// AbandonCalls returns how many abandon requests were handled for id.
// Requests failed by an injected fault are not counted.
func (s *Server) AbandonCalls(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abandons[id]
}

// Recorded returns accepted progress entries in arrival order.
func (s *Server) Recorded() []offline.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]offline.Entry(nil), s.recordLog...)
}
