// Package processors holds the product stock processors and criteria.
package processors

import (
	"context"
	"fmt"

	"github.com/Apurer/go-entity-processors/internal/domains/inventory/domain"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

const (
	ValidateStockName = "product_validate_stock"
	ReserveStockName  = "product_reserve_stock"
	InStockName       = "product_in_stock"
)

type product = entity.WithMetadata[domain.Product]

// ValidateStock rejects inconsistent stock counters.
func ValidateStock() processing.Processor[domain.Product] {
	return processing.ProcessorFunc[domain.Product](ValidateStockName,
		func(_ context.Context, in product) error {
			return in.Entity.CheckStock()
		}, nil)
}

// ReserveStock moves the requested quantity into the reserved counter.
func ReserveStock() processing.Processor[domain.Product] {
	return processing.ProcessorFunc[domain.Product](ReserveStockName,
		func(_ context.Context, in product) error {
			return in.Entity.CheckReservation()
		},
		func(_ context.Context, in *product) error {
			return in.Entity.Reserve()
		})
}

// InStock gates transitions that need unreserved stock.
func InStock() processing.Criterion[domain.Product] {
	return processing.CriterionFunc[domain.Product](InStockName, func(_ context.Context, in product) (processing.Outcome, error) {
		if err := in.Entity.CheckStock(); err != nil {
			return processing.NoMatch(processing.CategoryDataQuality, err.Error()), nil
		}
		if in.Entity.Available() > 0 {
			return processing.Match(), nil
		}
		return processing.NoMatch(processing.CategoryBusinessRule, fmt.Sprintf("product %s is out of stock", in.Entity.SKU)), nil
	})
}

// Register adds the product handlers to the registry.
func Register(reg *processing.Registry) error {
	for _, p := range []processing.Processor[domain.Product]{ValidateStock(), ReserveStock()} {
		if err := reg.RegisterProcessor(processing.AdaptProcessor(p)); err != nil {
			return err
		}
	}
	return reg.RegisterCriterion(processing.AdaptCriterion(InStock()))
}
