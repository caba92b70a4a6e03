// Package session keeps one project administration view and one notification
// inbox per console browser session.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"timetracker/internal/admin"
	"timetracker/internal/notify"
)

// DefaultTTL is how long an idle session lives.
const DefaultTTL = 30 * time.Minute

// Session is a live console session.
type Session struct {
	ID    string
	View  *admin.ProjectsView
	Inbox *notify.Queue

	mountMu  sync.Mutex
	mounted  bool
	lastSeen time.Time
}

// EnsureMounted performs the view's initial load until one succeeds. A
// partial failure leaves the session unmounted so the next page load fetches
// again.
func (s *Session) EnsureMounted(ctx context.Context) error {
	s.mountMu.Lock()
	defer s.mountMu.Unlock()
	if s.mounted {
		return nil
	}
	return s.mountLocked(ctx)
}

// Refresh re-runs the full load: projects with their tasks and the employee
// roster.
func (s *Session) Refresh(ctx context.Context) error {
	s.mountMu.Lock()
	defer s.mountMu.Unlock()
	return s.mountLocked(ctx)
}

func (s *Session) mountLocked(ctx context.Context) error {
	err := s.View.Mount(ctx)
	if s.View.Closed() {
		return admin.ErrClosed
	}
	s.mounted = err == nil
	return err
}

// Registry owns every live session. Idle sessions are closed lazily when
// the registry is next touched.
type Registry struct {
	api    admin.API
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose views talk to api.
func NewRegistry(api admin.API, ttl time.Duration, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		api:      api,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

// Acquire returns the session id names, or a new session when id is empty,
// unknown or expired. created reports whether a new session was made.
func (r *Registry) Acquire(id string) (sess *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = now
		return s, false
	}

	inbox := notify.NewQueue(notify.DefaultQueueSize)
	s := &Session{
		ID:       uuid.NewString(),
		Inbox:    inbox,
		lastSeen: now,
	}
	logger := r.logger.With(slog.String("session", s.ID))
	s.View = admin.New(r.api, notify.Tee(inbox, notify.Log{Logger: logger}), logger)
	r.sessions[s.ID] = s
	r.logger.Debug("session opened", slog.String("session", s.ID))
	return s, true
}

// Lookup returns a live session without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)
	s, ok := r.sessions[id]
	if ok {
		s.lastSeen = now
	}
	return s, ok
}

// Close ends a session and cancels its in-flight requests.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.View.Close()
		r.logger.Debug("session closed", slog.String("session", id))
	}
	return ok
}

// CloseAll ends every session, typically at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range sessions {
		s.View.Close()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(r.now())
	return len(r.sessions)
}

func (r *Registry) sweepLocked(now time.Time) {
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.ttl {
			s.View.Close()
			delete(r.sessions, id)
			r.logger.Debug("session expired", slog.String("session", id))
		}
	}
}
