package operation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	registry *Registry
	states   map[string]*State
	now      func() time.Time
}

// NewMemoryStore creates a store with one Idle state per definition in r.
func NewMemoryStore(r *Registry) *MemoryStore {
	s := &MemoryStore{
		registry: r,
		states:   make(map[string]*State),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, def := range r.Definitions() {
		st := NewState(def)
		s.states[def.Name] = &st
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, name string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.lookup(name)
	if err != nil {
		return State{}, err
	}
	return st.Clone(), nil
}

// SetInput implements Store.
func (s *MemoryStore) SetInput(ctx context.Context, name, field, value string) error {
	def, err := s.registry.Resolve(name)
	if err != nil {
		return err
	}
	if err := ValidateField(def, field); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[name]
	st.Input[field] = value
	st.UpdatedAt = s.now()
	return nil
}

// Begin implements Store.
func (s *MemoryStore) Begin(ctx context.Context, name, requestID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookup(name)
	if err != nil {
		return State{}, err
	}
	ApplyBegin(st, requestID, s.now())
	return st.Clone(), nil
}

// SetResult implements Store.
func (s *MemoryStore) SetResult(ctx context.Context, name, requestID string, result any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookup(name)
	if err != nil {
		return err
	}
	return ApplyResult(st, requestID, result, s.now())
}

// SetError implements Store.
func (s *MemoryStore) SetError(ctx context.Context, name, requestID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookup(name)
	if err != nil {
		return err
	}
	return ApplyError(st, requestID, message, s.now())
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context) ([]State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := s.registry.Names()
	out := make([]State, 0, len(names))
	for _, name := range names {
		out = append(out, s.states[name].Clone())
	}
	return out, nil
}

// lookup must be called with s.mu held.
func (s *MemoryStore) lookup(name string) (*State, error) {
	st, ok := s.states[name]
	if !ok {
		_, err := s.registry.Resolve(name)
		return nil, err
	}
	return st, nil
}

var _ Store = (*MemoryStore)(nil)
