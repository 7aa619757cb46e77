// Package redis implements operation.Store on Redis so several crewctl
// processes can share operation state.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/tombee/crewctl/internal/operation"
	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "crewctl:operation:"

// maxTxRetries bounds optimistic-lock retries on a contended key.
const maxTxRetries = 16

// Store implements operation.Store using one JSON document per operation.
// Transitions are compare-and-set through WATCH/MULTI.
type Store struct {
	client   *backend.Client
	registry *operation.Registry
	prefix   string
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiration applied on every write. An expired operation
// reads as Idle.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a Redis store connected to address.
func New(registry *operation.Registry, address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, registry, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, registry *operation.Registry, opts ...Option) *Store {
	store := &Store{
		client:   client,
		registry: registry,
		prefix:   DefaultPrefix,
		ttl:      0, // No expiration by default
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return crewerrors.Wrap(err, "failed to reach redis")
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

// Get implements operation.Store.
func (s *Store) Get(ctx context.Context, name string) (operation.State, error) {
	def, err := s.registry.Resolve(name)
	if err != nil {
		return operation.State{}, err
	}
	return s.load(ctx, s.client, def)
}

// SetInput implements operation.Store.
func (s *Store) SetInput(ctx context.Context, name, field, value string) error {
	def, err := s.registry.Resolve(name)
	if err != nil {
		return err
	}
	if err := operation.ValidateField(def, field); err != nil {
		return err
	}

	_, err = s.update(ctx, def, func(st *operation.State) error {
		st.Input[field] = value
		st.UpdatedAt = s.now()
		return nil
	})
	return err
}

// Begin implements operation.Store.
func (s *Store) Begin(ctx context.Context, name, requestID string) (operation.State, error) {
	def, err := s.registry.Resolve(name)
	if err != nil {
		return operation.State{}, err
	}
	return s.update(ctx, def, func(st *operation.State) error {
		operation.ApplyBegin(st, requestID, s.now())
		return nil
	})
}

// SetResult implements operation.Store.
func (s *Store) SetResult(ctx context.Context, name, requestID string, result any) error {
	def, err := s.registry.Resolve(name)
	if err != nil {
		return err
	}
	_, err = s.update(ctx, def, func(st *operation.State) error {
		return operation.ApplyResult(st, requestID, result, s.now())
	})
	return err
}

// SetError implements operation.Store.
func (s *Store) SetError(ctx context.Context, name, requestID, message string) error {
	def, err := s.registry.Resolve(name)
	if err != nil {
		return err
	}
	_, err = s.update(ctx, def, func(st *operation.State) error {
		return operation.ApplyError(st, requestID, message, s.now())
	})
	return err
}

// List implements operation.Store.
func (s *Store) List(ctx context.Context) ([]operation.State, error) {
	defs := s.registry.Definitions()
	keys := make([]string, len(defs))
	for i, def := range defs {
		keys[i] = s.key(def.Name)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, crewerrors.Wrap(err, "failed to get from redis")
	}

	states := make([]operation.State, len(defs))
	for i, def := range defs {
		raw, ok := vals[i].(string)
		if !ok {
			states[i] = operation.NewState(def)
			continue
		}
		st, err := decode(def, raw)
		if err != nil {
			return nil, err
		}
		states[i] = st
	}
	return states, nil
}

// load reads the state for def, returning the initial state when the key is
// absent.
func (s *Store) load(ctx context.Context, c backend.Cmdable, def *operation.Definition) (operation.State, error) {
	val, err := c.Get(ctx, s.key(def.Name)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return operation.NewState(def), nil
		}
		return operation.State{}, crewerrors.Wrap(err, "failed to get from redis")
	}
	return decode(def, val)
}

// update applies fn to the stored state under an optimistic lock. If fn
// returns an error nothing is written.
func (s *Store) update(ctx context.Context, def *operation.Definition, fn func(*operation.State) error) (operation.State, error) {
	key := s.key(def.Name)
	var out operation.State

	txf := func(tx *backend.Tx) error {
		st, err := s.load(ctx, tx, def)
		if err != nil {
			return err
		}
		if err := fn(&st); err != nil {
			return err
		}

		data, err := json.Marshal(st)
		if err != nil {
			return crewerrors.Wrap(err, "failed to marshal state")
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = st
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		if err != nil {
			return operation.State{}, err
		}
		return out.Clone(), nil
	}
	return operation.State{}, fmt.Errorf("failed to update %s: too much contention", key)
}

// decode parses a stored document, filling any fields the definition gained
// since it was written.
func decode(def *operation.Definition, raw string) (operation.State, error) {
	var st operation.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return operation.State{}, crewerrors.Wrapf(err, "failed to unmarshal state for %s", def.Name)
	}
	if st.Input == nil {
		st.Input = make(operation.Input, len(def.Fields))
	}
	for _, f := range def.Fields {
		if _, ok := st.Input[f]; !ok {
			st.Input[f] = ""
		}
	}
	st.Operation = def.Name
	return st, nil
}

var _ operation.Store = (*Store)(nil)
