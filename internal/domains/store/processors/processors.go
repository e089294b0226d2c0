// Package processors holds the order lifecycle processors and criteria.
package processors

import (
	"context"
	"fmt"
	"strings"

	paymentdomain "github.com/Apurer/go-entity-processors/internal/domains/payment/domain"
	petdomain "github.com/Apurer/go-entity-processors/internal/domains/pets/domain"
	"github.com/Apurer/go-entity-processors/internal/domains/store/domain"
	"github.com/Apurer/go-entity-processors/internal/entitystore"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

const (
	PlaceName    = "order_place"
	ApproveName  = "order_approve"
	ShipName     = "order_ship"
	DeliverName  = "order_deliver"
	CancelName   = "order_cancel"
	CompleteName = "order_is_complete"
)

// ReservePetTransition asks the engine to hold the ordered pet.
const ReservePetTransition = "reserve"

// DefaultShippingLeadDays is used when no lead time is configured.
const DefaultShippingLeadDays = 2

type order = entity.WithMetadata[domain.Order]

// Place computes totals and requests the pet reservation.
func Place(deps processing.Deps) processing.Processor[domain.Order] {
	return processing.ProcessorFunc[domain.Order](PlaceName,
		func(_ context.Context, in order) error {
			return in.Entity.CheckItems()
		},
		func(ctx context.Context, in *order) error {
			in.Entity.Place(deps.Now())
			petID := strings.TrimSpace(in.Entity.PetID)
			if petID == "" {
				return nil
			}
			deps.SideCalls.BestEffort(ctx, "reserve pet "+petID, func(ctx context.Context) error {
				pet, err := entitystore.FindByBusinessID[petdomain.Pet](ctx, deps.Store, "id", petID)
				if err != nil {
					return err
				}
				if pet == nil {
					return fmt.Errorf("pet %s not found", petID)
				}
				return deps.Store.Update(ctx, pet.Metadata.ID, nil, ReservePetTransition)
			})
			return nil
		})
}

// Approve requires a paid payment for the order's cart.
func Approve(deps processing.Deps) processing.Processor[domain.Order] {
	return processing.ProcessorFunc[domain.Order](ApproveName,
		func(ctx context.Context, in order) error {
			if err := processing.RequireState(in.Metadata, string(domain.StatusPlaced)); err != nil {
				return err
			}
			if strings.TrimSpace(in.Entity.CartID) == "" {
				return processing.Rejectf("order %s has no cart to settle", in.Entity.OrderID)
			}
			var payment *entity.WithMetadata[paymentdomain.Payment]
			err := deps.SideCalls.Required(ctx, "find payment for cart "+in.Entity.CartID, func(ctx context.Context) error {
				var err error
				payment, err = entitystore.FindByBusinessID[paymentdomain.Payment](ctx, deps.Store, "cartId", in.Entity.CartID)
				return err
			})
			if err != nil {
				return err
			}
			if payment == nil {
				return processing.Rejectf("no payment found for cart %s", in.Entity.CartID)
			}
			if payment.Entity.Status != paymentdomain.StatusPaid {
				return processing.Rejectf("payment %s for cart %s is %s", payment.Entity.PaymentID, in.Entity.CartID, payment.Entity.Status)
			}
			return nil
		},
		func(_ context.Context, in *order) error {
			in.Entity.Approve(deps.Now())
			return nil
		})
}

// Ship sets the expected ship date leadDays ahead.
func Ship(deps processing.Deps, leadDays int) processing.Processor[domain.Order] {
	if leadDays < 0 {
		leadDays = DefaultShippingLeadDays
	}
	return processing.ProcessorFunc[domain.Order](ShipName,
		func(_ context.Context, in order) error {
			return processing.RequireState(in.Metadata, string(domain.StatusApproved))
		},
		func(_ context.Context, in *order) error {
			now := deps.Now()
			in.Entity.Ship(domain.ShipDateFrom(now, leadDays), now)
			return nil
		})
}

// Deliver completes a shipped order.
func Deliver(deps processing.Deps) processing.Processor[domain.Order] {
	return processing.ProcessorFunc[domain.Order](DeliverName,
		func(_ context.Context, in order) error {
			return processing.RequireState(in.Metadata, string(domain.StatusShipped))
		},
		func(_ context.Context, in *order) error {
			in.Entity.Deliver(deps.Now())
			return nil
		})
}

// Cancel marks the order cancelled. Cancelling twice keeps the first reason.
func Cancel(deps processing.Deps) processing.Processor[domain.Order] {
	return processing.ProcessorFunc[domain.Order](CancelName,
		func(_ context.Context, in order) error {
			if in.Entity.Status == domain.StatusDelivered || in.Entity.Status == domain.StatusShipped {
				return processing.Rejectf("order %s is already %s", in.Entity.OrderID, in.Entity.Status)
			}
			return nil
		},
		func(_ context.Context, in *order) error {
			reason := in.Entity.CancelledReason
			if reason == "" {
				reason = "cancelled by request"
			}
			in.Entity.Cancel(reason, deps.Now())
			return nil
		})
}

// IsComplete gates closing the order workflow.
func IsComplete() processing.Criterion[domain.Order] {
	return processing.CriterionFunc[domain.Order](CompleteName, func(_ context.Context, in order) (processing.Outcome, error) {
		if in.Entity.Complete {
			return processing.Match(), nil
		}
		return processing.NoMatch(processing.CategoryBusinessRule, fmt.Sprintf("order %s is %s", in.Entity.OrderID, in.Entity.Status)), nil
	})
}

// Register adds the order handlers to the registry.
func Register(reg *processing.Registry, deps processing.Deps, leadDays int) error {
	processors := []processing.Processor[domain.Order]{
		Place(deps), Approve(deps), Ship(deps, leadDays), Deliver(deps), Cancel(deps),
	}
	for _, p := range processors {
		if err := reg.RegisterProcessor(processing.AdaptProcessor(p)); err != nil {
			return err
		}
	}
	return reg.RegisterCriterion(processing.AdaptCriterion(IsComplete()))
}
