package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/tokamak-sim/internal/engine"
	"github.com/talgya/tokamak-sim/internal/plant"
)

// session is one client's plant. mu serializes every call into sim.
type session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	sim      *engine.Simulation
	sliders  plant.Sliders
	drive    engine.DrivingInputs
	lastUsed time.Time
}

// sessionStore indexes live sessions by id.
type sessionStore struct {
	mu  sync.RWMutex
	m   map[string]*session
	ttl time.Duration // idle sessions older than this are dropped on create; 0 keeps all
	now func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{m: make(map[string]*session), ttl: ttl, now: time.Now}
}

func (st *sessionStore) add(sim *engine.Simulation, sliders plant.Sliders, drive engine.DrivingInputs) *session {
	now := st.now()
	sess := &session{
		ID:       uuid.NewString(),
		Created:  now,
		sim:      sim,
		sliders:  sliders,
		drive:    drive,
		lastUsed: now,
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.expire(now)
	st.m[sess.ID] = sess
	return sess
}

func (st *sessionStore) get(id string) (*session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.m[id]
	return sess, ok
}

func (st *sessionStore) remove(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.m[id]
	delete(st.m, id)
	return ok
}

func (st *sessionStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.m)
}

// purge drops every session and returns how many there were.
func (st *sessionStore) purge() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := len(st.m)
	st.m = make(map[string]*session)
	return n
}

// ids returns the session ids in creation order.
func (st *sessionStore) ids() []string {
	st.mu.RLock()
	list := make([]*session, 0, len(st.m))
	for _, s := range st.m {
		list = append(list, s)
	}
	st.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Created.Before(list[j].Created) })
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

// expire must be called with st.mu held.
func (st *sessionStore) expire(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for id, s := range st.m {
		s.mu.Lock()
		idle := now.Sub(s.lastUsed)
		s.mu.Unlock()
		if idle > st.ttl {
			delete(st.m, id)
		}
	}
}

// touch must be called with s.mu held.
func (s *session) touch(now time.Time) {
	s.lastUsed = now
}
