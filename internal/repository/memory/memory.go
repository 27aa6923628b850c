// Package memory is an in-process implementation of repository.Store used by tests and local tooling.
package memory

import (
	"context"
	"sync"
	"time"

	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository"
)

type Store struct {
	view

	mu    sync.RWMutex
	st    *state
	locks keyedLocks
}

func New() *Store {
	s := &Store{st: newState()}
	s.view = view{
		read: func(fn func(*state)) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			fn(s.st)
		},
		write: func(fn func(*state) error) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			return fn(s.st)
		},
	}
	return s
}

// SetClock overrides the timestamp source used for created_at columns.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.now = now
}

// PutVehicle registers or replaces a vehicle. The fleet registry is owned elsewhere; this
// stands in for it in tests and local tooling.
func (s *Store) PutVehicle(v model.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.vehicles[v.ID] = v
}

func (s *Store) PutDriver(d model.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.drivers[d.ID] = d
}

// WithLocks holds the keyed mutexes for the duration of fn. fn works on a private copy of the
// state; its writes are replayed onto the shared state only when fn returns nil, and a replay
// that fails leaves the shared state untouched.
func (s *Store) WithLocks(ctx context.Context, keys []string, fn func(tx repository.Repositories) error) error {
	keys = repository.NormalizeLockKeys(keys)
	release, err := s.locks.acquire(ctx, keys)
	if err != nil {
		return err
	}
	defer release()

	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	var journal []func(*state) error
	tx := view{
		read: func(fn func(*state)) { fn(work) },
		write: func(fn func(*state) error) error {
			if err := fn(work); err != nil {
				return err
			}
			journal = append(journal, fn)
			return nil
		},
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.st.clone()
	for _, op := range journal {
		if err := op(next); err != nil {
			return err
		}
	}
	s.st = next
	return nil
}

// keyedLocks hands out one buffered channel per key; a channel acts as a mutex that honors ctx.
type keyedLocks struct {
	mu    sync.Mutex
	chans map[string]chan struct{}
}

func (k *keyedLocks) get(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.chans == nil {
		k.chans = make(map[string]chan struct{})
	}
	ch, ok := k.chans[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.chans[key] = ch
	}
	return ch
}

// acquire expects keys already sorted.
func (k *keyedLocks) acquire(ctx context.Context, keys []string) (func(), error) {
	held := make([]chan struct{}, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}
	for _, key := range keys {
		ch := k.get(key)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}
