package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// DeferredTransition triggers Transition on the entity once Delay has elapsed.
type DeferredTransition struct {
	Key        string           `json:"key"`
	EntityID   uuid.UUID        `json:"entityId"`
	Model      entity.ModelSpec `json:"model"`
	Transition string           `json:"transition"`
	Delay      time.Duration    `json:"delay"`
}

// Validate rejects deferred transitions that could never fire.
func (d DeferredTransition) Validate() error {
	switch {
	case d.EntityID == uuid.Nil:
		return fmt.Errorf("deferred transition requires an entity id")
	case d.Transition == "":
		return fmt.Errorf("deferred transition requires a transition name")
	case d.Delay < 0:
		return fmt.Errorf("deferred transition delay must not be negative")
	}
	return nil
}

// DedupKey returns the idempotency key, derived from entity and transition when unset.
func (d DeferredTransition) DedupKey() string {
	if d.Key != "" {
		return d.Key
	}
	return fmt.Sprintf("%s:%s", d.EntityID, d.Transition)
}

// Scheduler runs transitions later without blocking the caller.
type Scheduler interface {
	ScheduleTransition(ctx context.Context, task DeferredTransition) error
}
