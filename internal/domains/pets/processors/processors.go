// Package processors holds the pet lifecycle processors and criteria.
package processors

import (
	"context"
	"fmt"

	"github.com/AlekSi/pointer"

	"github.com/Apurer/go-entity-processors/internal/domains/pets/domain"
	orderdomain "github.com/Apurer/go-entity-processors/internal/domains/store/domain"
	"github.com/Apurer/go-entity-processors/internal/entitystore"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

const (
	ValidateName  = "pet_validate"
	ReserveName   = "pet_reserve"
	AdoptName     = "pet_adopt"
	GroomName     = "pet_groom"
	AvailableName = "pet_is_available"
)

// CancelTransition is fired on open orders of an adopted pet.
const CancelTransition = "cancel"

type pet = entity.WithMetadata[domain.Pet]

// Validate normalizes a new catalog entry.
func Validate(deps processing.Deps) processing.Processor[domain.Pet] {
	return processing.ProcessorFunc[domain.Pet](ValidateName, nil,
		func(_ context.Context, in *pet) error {
			in.Entity.NormalizeStatus()
			in.Entity.UpdatedAt = pointer.To(deps.Now())
			return nil
		})
}

// Reserve holds an available pet.
func Reserve(deps processing.Deps) processing.Processor[domain.Pet] {
	return processing.ProcessorFunc[domain.Pet](ReserveName,
		func(_ context.Context, in pet) error {
			return processing.RequireState(in.Metadata, string(domain.StatusAvailable))
		},
		func(_ context.Context, in *pet) error {
			in.Entity.Reserve(deps.Now())
			return nil
		})
}

// Adopt sells a pending pet and cancels its other placed orders.
// Each cancellation is its own Required update with no compensation: when a
// later update fails the adoption is rejected but earlier orders stay
// cancelled. A retried adoption finds only the orders still placed.
func Adopt(deps processing.Deps) processing.Processor[domain.Pet] {
	return processing.ProcessorFunc[domain.Pet](AdoptName,
		func(_ context.Context, in pet) error {
			return processing.RequireState(in.Metadata, string(domain.StatusPending))
		},
		func(ctx context.Context, in *pet) error {
			now := deps.Now()
			in.Entity.Adopt(now)
			var open []*entity.WithMetadata[orderdomain.Order]
			err := deps.SideCalls.Required(ctx, "search open orders", func(ctx context.Context) error {
				var err error
				open, err = entitystore.Search[orderdomain.Order](ctx, deps.Store, entity.And(
					entity.Equals("petId", in.Entity.ID),
					entity.InState(string(orderdomain.StatusPlaced)),
				))
				return err
			})
			if err != nil {
				return err
			}
			for _, order := range open {
				if order.Entity.OrderID == in.Entity.AdoptionOrderID {
					continue
				}
				order.Entity.Cancel(fmt.Sprintf("pet %s adopted", in.Entity.ID), now)
				name := fmt.Sprintf("cancel order %s", order.Entity.OrderID)
				err := deps.SideCalls.Required(ctx, name, func(ctx context.Context) error {
					return deps.Store.Update(ctx, order.Metadata.ID, order.Entity, CancelTransition)
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
}

// Groom applies the pending grooming operation.
func Groom(deps processing.Deps) processing.Processor[domain.Pet] {
	return processing.ProcessorFunc[domain.Pet](GroomName,
		func(_ context.Context, in pet) error {
			return in.Entity.CheckGrooming()
		},
		func(_ context.Context, in *pet) error {
			return in.Entity.Groom(deps.Now())
		})
}

// IsAvailable gates transitions that need an unreserved pet.
func IsAvailable() processing.Criterion[domain.Pet] {
	return processing.CriterionFunc[domain.Pet](AvailableName, func(_ context.Context, in pet) (processing.Outcome, error) {
		if in.Entity.Status == domain.StatusAvailable {
			return processing.Match(), nil
		}
		return processing.NoMatch(processing.CategoryBusinessRule, fmt.Sprintf("pet %s is %s", in.Entity.ID, in.Entity.Status)), nil
	})
}

// Register adds the pet handlers to the registry.
func Register(reg *processing.Registry, deps processing.Deps) error {
	for _, p := range []processing.Processor[domain.Pet]{Validate(deps), Reserve(deps), Adopt(deps), Groom(deps)} {
		if err := reg.RegisterProcessor(processing.AdaptProcessor(p)); err != nil {
			return err
		}
	}
	return reg.RegisterCriterion(processing.AdaptCriterion(IsAvailable()))
}
