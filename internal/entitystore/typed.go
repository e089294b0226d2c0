// Package entitystore provides typed access on top of the entity store port.
package entitystore

import (
	"context"

	"github.com/google/uuid"

	"github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Search runs a filtered search and decodes every hit into T.
func Search[T entity.Entity](ctx context.Context, store ports.Service, cond entity.Condition) ([]*entity.WithMetadata[T], error) {
	raws, err := store.Search(ctx, entity.ModelOf[T](), cond)
	if err != nil {
		return nil, err
	}
	result := make([]*entity.WithMetadata[T], 0, len(raws))
	for _, raw := range raws {
		typed, err := entity.DecodeRaw[T](raw)
		if err != nil {
			return nil, err
		}
		result = append(result, typed)
	}
	return result, nil
}

// FindByBusinessID loads the entity whose field equals value, or nil when absent.
func FindByBusinessID[T entity.Entity](ctx context.Context, store ports.Service, field string, value any) (*entity.WithMetadata[T], error) {
	raw, err := store.FindByBusinessID(ctx, entity.ModelOf[T](), value, field)
	if err != nil {
		return nil, err
	}
	return entity.DecodeRaw[T](raw)
}

// GetByID loads and decodes an entity by technical id.
func GetByID[T entity.Entity](ctx context.Context, store ports.Service, id uuid.UUID) (*entity.WithMetadata[T], error) {
	raw, err := store.GetByID(ctx, id, entity.ModelOf[T]())
	if err != nil {
		return nil, err
	}
	return entity.DecodeRaw[T](raw)
}

// Create stores a typed entity in its initial state.
func Create[T entity.Entity](ctx context.Context, store ports.Service, state string, value T) (*entity.WithMetadata[T], error) {
	raw, err := store.Create(ctx, value.Model(), state, value)
	if err != nil {
		return nil, err
	}
	return entity.DecodeRaw[T](raw)
}
