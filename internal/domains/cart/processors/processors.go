// Package processors holds the cart processors and criteria.
package processors

import (
	"context"
	"fmt"

	"github.com/Apurer/go-entity-processors/internal/domains/cart/domain"
	inventorydomain "github.com/Apurer/go-entity-processors/internal/domains/inventory/domain"
	"github.com/Apurer/go-entity-processors/internal/entitystore"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

const (
	RecalculateName = "cart_recalculate"
	CheckoutName    = "cart_checkout"
	HasItemsName    = "cart_has_items"
)

// ReserveStockTransition asks the engine to reserve the requested quantity of a product.
const ReserveStockTransition = "reserve_stock"

type cart = entity.WithMetadata[domain.Cart]

// Recalculate derives line totals and the grand total.
func Recalculate(deps processing.Deps) processing.Processor[domain.Cart] {
	return processing.ProcessorFunc[domain.Cart](RecalculateName, nil,
		func(_ context.Context, in *cart) error {
			in.Entity.Recalculate(deps.Now())
			return nil
		})
}

// Checkout freezes an active cart and reserves stock for each line.
func Checkout(deps processing.Deps) processing.Processor[domain.Cart] {
	return processing.ProcessorFunc[domain.Cart](CheckoutName,
		func(_ context.Context, in cart) error {
			if err := processing.RequireState(in.Metadata, string(domain.StatusActive)); err != nil {
				return err
			}
			if len(in.Entity.Lines) == 0 {
				return domain.ErrEmptyCart
			}
			return nil
		},
		func(ctx context.Context, in *cart) error {
			if err := in.Entity.Checkout(deps.Now()); err != nil {
				return err
			}
			for _, line := range in.Entity.Lines {
				deps.SideCalls.BestEffort(ctx, "reserve stock "+line.SKU, func(ctx context.Context) error {
					return reserveStock(ctx, deps, line)
				})
			}
			return nil
		})
}

func reserveStock(ctx context.Context, deps processing.Deps, line domain.Line) error {
	product, err := entitystore.FindByBusinessID[inventorydomain.Product](ctx, deps.Store, "sku", line.SKU)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("product %s not found", line.SKU)
	}
	product.Entity.RequestedQuantity += line.Quantity
	return deps.Store.Update(ctx, product.Metadata.ID, product.Entity, ReserveStockTransition)
}

// HasItems gates checkout on a non-empty cart.
func HasItems() processing.Criterion[domain.Cart] {
	return processing.CriterionFunc[domain.Cart](HasItemsName, func(_ context.Context, in cart) (processing.Outcome, error) {
		if len(in.Entity.Lines) > 0 {
			return processing.Match(), nil
		}
		return processing.NoMatch(processing.CategoryValidation, fmt.Sprintf("cart %s has no lines", in.Entity.CartID)), nil
	})
}

// Register adds the cart handlers to the registry.
func Register(reg *processing.Registry, deps processing.Deps) error {
	for _, p := range []processing.Processor[domain.Cart]{Recalculate(deps), Checkout(deps)} {
		if err := reg.RegisterProcessor(processing.AdaptProcessor(p)); err != nil {
			return err
		}
	}
	return reg.RegisterCriterion(processing.AdaptCriterion(HasItems()))
}
