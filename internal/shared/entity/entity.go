package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ModelSpec identifies an entity type and schema version inside the workflow engine.
type ModelSpec struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

func (m ModelSpec) String() string {
	return fmt.Sprintf("%s.v%d", m.Name, m.Version)
}

// Metadata captures the lifecycle data the engine assigns to a stored entity.
type Metadata struct {
	ID         uuid.UUID `json:"id"`
	Model      ModelSpec `json:"model"`
	State      string    `json:"state"`
	Transition string    `json:"transition,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Entity is implemented by every business record handled by processors.
type Entity interface {
	Model() ModelSpec
	Validate() error
}

// WithMetadata pairs an entity value with its engine metadata.
type WithMetadata[T any] struct {
	Entity   T        `json:"entity"`
	Metadata Metadata `json:"metadata"`
}

// Raw is the untyped form exchanged with the entity store.
type Raw = WithMetadata[json.RawMessage]

// Decode converts a raw payload into a typed entity.
func Decode[T any](payload json.RawMessage) (T, error) {
	var value T
	if len(payload) == 0 {
		return value, fmt.Errorf("empty entity payload")
	}
	if err := json.Unmarshal(payload, &value); err != nil {
		return value, err
	}
	return value, nil
}

// Encode serializes an entity to the payload format used by the engine.
func Encode(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return append(json.RawMessage(nil), raw...), nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// DecodeRaw turns a raw store record into its typed counterpart.
func DecodeRaw[T any](raw *Raw) (*WithMetadata[T], error) {
	if raw == nil {
		return nil, nil
	}
	value, err := Decode[T](raw.Entity)
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", raw.Metadata.Model, raw.Metadata.ID, err)
	}
	return &WithMetadata[T]{Entity: value, Metadata: raw.Metadata}, nil
}

// ModelOf returns the model declared by the zero value of T.
func ModelOf[T Entity]() ModelSpec {
	var zero T
	return zero.Model()
}
