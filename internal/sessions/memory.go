package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/gogotex/siteauth/pkg/logger"
)

// MemoryRepository keeps sessions in process memory. Sessions do not survive
// a restart and are not shared between replicas; use Redis or MongoDB for that.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*Session
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]*Session{}, now: time.Now}
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.store[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.Expired(r.now().UTC()) {
		_ = r.Destroy(ctx, id)
		return nil, nil
	}
	return s.clone(), nil
}

func (r *MemoryRepository) Set(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[s.ID] = s.clone()
	return nil
}

func (r *MemoryRepository) Destroy(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.store, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}

// Sweep drops expired sessions and returns how many were removed.
func (r *MemoryRepository) Sweep() int {
	now := r.now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.store {
		if s.Expired(now) {
			delete(r.store, id)
			n++
		}
	}
	return n
}

// StartJanitor sweeps every interval until ctx is done. Abandoned logins
// would otherwise accumulate until restart.
func (r *MemoryRepository) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := r.Sweep(); n > 0 {
					logger.Debugf("session janitor: removed %d expired sessions", n)
				}
			}
		}
	}()
}
