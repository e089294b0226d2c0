package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

var _ ports.Service = (*Store)(nil)

// Store is an in-memory entity store used for local runs and tests.
type Store struct {
	mu          sync.RWMutex
	entities    map[uuid.UUID]*storedEntity
	transitions ports.TransitionTable
	now         func() time.Time
	seq         int64
}

type storedEntity struct {
	seq      int64
	payload  json.RawMessage
	metadata entity.Metadata
	history  []string
}

// Option configures the store.
type Option func(*Store)

// WithTransitions lets Update advance lifecycle states for the described models.
func WithTransitions(table ports.TransitionTable) Option {
	return func(s *Store) {
		s.transitions = table
	}
}

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entities: map[uuid.UUID]*storedEntity{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// WithClock overrides the time source for deterministic testing.
func (s *Store) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create stores a new entity in the given initial state.
func (s *Store) Create(_ context.Context, model entity.ModelSpec, state string, payload any) (*entity.Raw, error) {
	raw, err := ports.EncodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", model, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	timestamp := s.now()
	s.seq++
	stored := &storedEntity{
		seq:     s.seq,
		payload: raw,
		metadata: entity.Metadata{
			ID:        uuid.New(),
			Model:     model,
			State:     state,
			CreatedAt: timestamp,
			UpdatedAt: timestamp,
		},
	}
	s.entities[stored.metadata.ID] = stored
	return stored.snapshot(), nil
}

// Search returns every entity of the model matching the condition, oldest first.
func (s *Store) Search(_ context.Context, model entity.ModelSpec, cond entity.Condition) ([]*entity.Raw, error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*storedEntity
	for _, stored := range s.entities {
		if stored.metadata.Model != model {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(stored.payload, &doc); err != nil {
			return nil, fmt.Errorf("decode stored %s %s: %w", model, stored.metadata.ID, err)
		}
		if cond.Matches(doc, stored.metadata.State) {
			matched = append(matched, stored)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	result := make([]*entity.Raw, 0, len(matched))
	for _, stored := range matched {
		result = append(result, stored.snapshot())
	}
	return result, nil
}

// FindByBusinessID returns the single match for field == value, or nil when absent.
func (s *Store) FindByBusinessID(ctx context.Context, model entity.ModelSpec, value any, field string) (*entity.Raw, error) {
	matches, err := s.Search(ctx, model, entity.Equals(field, value))
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s %s=%v", ports.ErrAmbiguous, model, field, value)
	}
}

// GetByID loads an entity by technical id.
func (s *Store) GetByID(_ context.Context, id uuid.UUID, model entity.ModelSpec) (*entity.Raw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.entities[id]
	if !ok || stored.metadata.Model != model {
		return nil, ports.ErrNotFound
	}
	return stored.snapshot(), nil
}

// Update replaces the payload and optionally records a transition.
func (s *Store) Update(_ context.Context, id uuid.UUID, mutated any, transition string) error {
	var payload json.RawMessage
	if mutated != nil {
		raw, err := ports.EncodePayload(mutated)
		if err != nil {
			return fmt.Errorf("encode payload for %s: %w", id, err)
		}
		payload = raw
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.entities[id]
	if !ok {
		return ports.ErrNotFound
	}
	nextState := stored.metadata.State
	if transition != "" && s.transitions.Knows(stored.metadata.Model) {
		target, ok := s.transitions.Target(stored.metadata.Model, stored.metadata.State, transition)
		if !ok {
			return fmt.Errorf("%w: %s from %s", ports.ErrInvalidTransition, transition, stored.metadata.State)
		}
		nextState = target
	}
	if payload != nil {
		stored.payload = payload
	}
	if transition != "" {
		stored.history = append(stored.history, transition)
		stored.metadata.Transition = transition
	}
	stored.metadata.State = nextState
	stored.metadata.UpdatedAt = s.now()
	return nil
}

// Delete removes an entity.
func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return ports.ErrNotFound
	}
	delete(s.entities, id)
	return nil
}

// History lists the transitions triggered on an entity, oldest first.
func (s *Store) History(id uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.entities[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return append([]string(nil), stored.history...), nil
}

// Reset drops every stored entity.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = map[uuid.UUID]*storedEntity{}
}

func (e *storedEntity) snapshot() *entity.Raw {
	return &entity.Raw{
		Entity:   append(json.RawMessage(nil), e.payload...),
		Metadata: e.metadata,
	}
}
