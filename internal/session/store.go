// Package session keeps uploaded tables between requests.
//
// Each session holds the table as loaded and the table after processing,
// so a user can apply steps one at a time and reset to the original. Idle
// sessions are removed by a janitor goroutine.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetprep/internal/core"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

const (
	DefaultTTL         = 30 * time.Minute
	DefaultMaxSessions = 100
)

// Session is a point-in-time copy of one upload's state. Tables are never
// modified after they are stored, so the pointers may be shared.
type Session struct {
	ID        string
	Filename  string
	Format    core.Format
	CreatedAt time.Time
	UpdatedAt time.Time
	Original  *core.Table
	Current   *core.Table
	History   []string
	Warnings  []string
}

type entry struct {
	mu sync.Mutex
	s  Session
}

func (e *entry) snapshot() Session {
	out := e.s
	out.History = append([]string(nil), e.s.History...)
	out.Warnings = append([]string(nil), e.s.Warnings...)
	return out
}

// Options configures a Store.
type Options struct {
	TTL         time.Duration
	MaxSessions int
	Logger      *slog.Logger
	// Now is used instead of time.Now when set.
	Now func() time.Time
}

// Store is an in-memory, concurrency-safe session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	ttl         time.Duration
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		sessions:    make(map[string]*entry),
		ttl:         opts.TTL,
		maxSessions: opts.MaxSessions,
		logger:      opts.Logger,
		now:         opts.Now,
	}
}

// Create stores a freshly loaded table under a new id. When the store is
// full the least recently used session is evicted.
func (st *Store) Create(filename string, format core.Format, t *core.Table) Session {
	now := st.now()
	e := &entry{s: Session{
		ID:        uuid.NewString(),
		Filename:  filename,
		Format:    format,
		CreatedAt: now,
		UpdatedAt: now,
		Original:  t,
		Current:   t,
		History:   []string{"Loaded " + filename},
	}}

	st.mu.Lock()
	if len(st.sessions) >= st.maxSessions {
		st.evictOldestLocked()
	}
	st.sessions[e.s.ID] = e
	st.mu.Unlock()

	st.logger.Info("session created",
		"session_id", e.s.ID,
		"filename", filename,
		"rows", t.Len(),
		"columns", t.Width(),
	)
	return e.snapshot()
}

func (st *Store) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range st.sessions {
		e.mu.Lock()
		updated := e.s.UpdatedAt
		e.mu.Unlock()
		if oldestID == "" || updated.Before(oldest) {
			oldestID, oldest = id, updated
		}
	}
	if oldestID != "" {
		delete(st.sessions, oldestID)
		st.logger.Info("session evicted", "session_id", oldestID)
	}
}

func (st *Store) lookup(id string) (*entry, error) {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Get returns the session and marks it as used.
func (st *Store) Get(id string) (Session, error) {
	e, err := st.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.UpdatedAt = st.now()
	return e.snapshot(), nil
}

// Change is the result of one processing step.
type Change struct {
	// Table replaces the current table when non-nil.
	Table *core.Table
	// History is appended to the session history.
	History []string
	// Warnings replace those of the previous step.
	Warnings []string
}

// Update holds the session while fn runs on the current table and then
// applies the returned Change. On error the session is left as it was.
func (st *Store) Update(id string, fn func(current *core.Table) (Change, error)) (Session, error) {
	e, err := st.lookup(id)
	if err != nil {
		return Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ch, err := fn(e.s.Current)
	if err != nil {
		return e.snapshot(), err
	}
	if ch.Table != nil {
		e.s.Current = ch.Table
	}
	e.s.History = append(e.s.History, ch.History...)
	e.s.Warnings = ch.Warnings
	e.s.UpdatedAt = st.now()
	return e.snapshot(), nil
}

// Reset restores the table as loaded.
func (st *Store) Reset(id string) (Session, error) {
	e, err := st.lookup(id)
	if err != nil {
		return Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.s.Current = e.s.Original
	e.s.History = append(e.s.History, "Reset to original data")
	e.s.Warnings = nil
	e.s.UpdatedAt = st.now()
	return e.snapshot(), nil
}

// Delete removes a session.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// IDs returns live session ids, most recently used first.
func (st *Store) IDs() []string {
	st.mu.RLock()
	type item struct {
		id string
		at time.Time
	}
	items := make([]item, 0, len(st.sessions))
	for id, e := range st.sessions {
		e.mu.Lock()
		items = append(items, item{id, e.s.UpdatedAt})
		e.mu.Unlock()
	}
	st.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].at.After(items[j].at) })
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, e := range st.sessions {
		e.mu.Lock()
		expired := e.s.UpdatedAt.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (st *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				st.logger.Info("expired sessions removed", "count", n, "remaining", st.Len())
			}
		}
	}
}
