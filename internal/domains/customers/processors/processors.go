// Package processors holds the customer processors and criteria.
package processors

import (
	"context"
	"fmt"

	"github.com/Apurer/go-entity-processors/internal/domains/customers/domain"
	"github.com/Apurer/go-entity-processors/internal/processing"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

const (
	RegisterName   = "customer_register"
	AnonymizeName  = "customer_anonymize"
	AnonymizedName = "customer_is_anonymized"
)

type customer = entity.WithMetadata[domain.Customer]

// RegisterCustomer validates and activates a new customer.
func RegisterCustomer(deps processing.Deps) processing.Processor[domain.Customer] {
	return processing.ProcessorFunc[domain.Customer](RegisterName,
		func(_ context.Context, in customer) error {
			return in.Entity.CheckRegistration()
		},
		func(_ context.Context, in *customer) error {
			in.Entity.Register(deps.Now())
			return nil
		})
}

// Anonymize erases every personal field. Running it twice changes nothing.
func Anonymize(deps processing.Deps) processing.Processor[domain.Customer] {
	return processing.ProcessorFunc[domain.Customer](AnonymizeName, nil,
		func(_ context.Context, in *customer) error {
			in.Entity.Anonymize(deps.Now())
			return nil
		})
}

// IsAnonymized confirms no personal data is left.
func IsAnonymized() processing.Criterion[domain.Customer] {
	return processing.CriterionFunc[domain.Customer](AnonymizedName, func(_ context.Context, in customer) (processing.Outcome, error) {
		if in.Entity.IsAnonymized() {
			return processing.Match(), nil
		}
		return processing.NoMatch(processing.CategoryDataQuality, fmt.Sprintf("customer %s still holds personal data", in.Entity.CustomerID)), nil
	})
}

// Register adds the customer handlers to the registry.
func Register(reg *processing.Registry, deps processing.Deps) error {
	for _, p := range []processing.Processor[domain.Customer]{RegisterCustomer(deps), Anonymize(deps)} {
		if err := reg.RegisterProcessor(processing.AdaptProcessor(p)); err != nil {
			return err
		}
	}
	return reg.RegisterCriterion(processing.AdaptCriterion(IsAnonymized()))
}
