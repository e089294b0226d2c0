package ports

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

var (
	ErrNotFound          = errors.New("entity not found")
	ErrAmbiguous         = errors.New("business id matches more than one entity")
	ErrInvalidTransition = errors.New("transition not allowed from current state")
)

// Service is the client of the workflow engine's entity store.
type Service interface {
	// Search returns every entity of the model matching the condition.
	Search(ctx context.Context, model entity.ModelSpec, cond entity.Condition) ([]*entity.Raw, error)
	// FindByBusinessID returns the single entity whose field equals value, or nil when absent.
	FindByBusinessID(ctx context.Context, model entity.ModelSpec, value any, field string) (*entity.Raw, error)
	// Update persists mutated (nil keeps the stored payload) and triggers transition when not empty.
	Update(ctx context.Context, id uuid.UUID, mutated any, transition string) error
	// GetByID loads an entity by technical id.
	GetByID(ctx context.Context, id uuid.UUID, model entity.ModelSpec) (*entity.Raw, error)
	// Create stores a new entity in the given initial state.
	Create(ctx context.Context, model entity.ModelSpec, state string, payload any) (*entity.Raw, error)
	// Delete removes an entity by technical id.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransitionTable maps model name -> current state -> transition -> target state.
// Stores use it to advance the lifecycle state when Update triggers a transition.
type TransitionTable map[string]map[string]map[string]string

// Target resolves the state reached by firing transition from state.
func (t TransitionTable) Target(model entity.ModelSpec, state, transition string) (string, bool) {
	if t == nil {
		return "", false
	}
	target, ok := t[model.Name][state][transition]
	return target, ok
}

// Knows reports whether the table describes the model at all.
func (t TransitionTable) Knows(model entity.ModelSpec) bool {
	_, ok := t[model.Name]
	return ok
}

// EncodePayload normalizes mutated values into raw JSON.
func EncodePayload(value any) (json.RawMessage, error) {
	return entity.Encode(value)
}
