// Package processors holds the payment processors and criteria.
package processors

import (
	"context"
	"errors"
	"fmt"
	"time"

	cartdomain "github.com/Apurer/go-entity-processors/internal/domains/cart/domain"
	"github.com/Apurer/go-entity-processors/internal/domains/payment/domain"
	"github.com/Apurer/go-entity-processors/internal/entitystore"
	"github.com/Apurer/go-entity-processors/internal/processing"
	schedulingports "github.com/Apurer/go-entity-processors/internal/scheduling/ports"
	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

const (
	CreateName   = "payment_create"
	StartName    = "payment_start"
	MarkPaidName = "payment_mark_paid"
	IsPaidName   = "payment_is_paid"
)

// DefaultConfirmationDelay is how long the dummy provider takes to confirm a payment.
const DefaultConfirmationDelay = 3 * time.Second

var errNoScheduler = errors.New("no scheduler configured")

type payment = entity.WithMetadata[domain.Payment]

// Create checks the amount against the referenced cart's grand total.
func Create(deps processing.Deps) processing.Processor[domain.Payment] {
	return processing.ProcessorFunc[domain.Payment](CreateName,
		func(ctx context.Context, in payment) error {
			var cart *entity.WithMetadata[cartdomain.Cart]
			err := deps.SideCalls.Required(ctx, "find cart "+in.Entity.CartID, func(ctx context.Context) error {
				var err error
				cart, err = entitystore.FindByBusinessID[cartdomain.Cart](ctx, deps.Store, "cartId", in.Entity.CartID)
				return err
			})
			if err != nil {
				return err
			}
			if cart == nil {
				return processing.Rejectf("cart %s not found", in.Entity.CartID)
			}
			if !in.Entity.Covers(cart.Entity.GrandTotal) {
				return processing.Rejectf("payment amount %.2f does not match cart %s total %.2f",
					in.Entity.Amount, in.Entity.CartID, cart.Entity.GrandTotal)
			}
			return nil
		},
		func(_ context.Context, in *payment) error {
			in.Entity.Create(deps.Now())
			return nil
		})
}

// Start hands the payment to the provider and schedules the confirmation after delay.
func Start(deps processing.Deps, delay time.Duration) processing.Processor[domain.Payment] {
	if delay <= 0 {
		delay = DefaultConfirmationDelay
	}
	return processing.ProcessorFunc[domain.Payment](StartName,
		func(_ context.Context, in payment) error {
			return processing.RequireState(in.Metadata, string(domain.StatusCreated))
		},
		func(ctx context.Context, in *payment) error {
			if deps.Scheduler == nil {
				return errNoScheduler
			}
			in.Entity.Start(deps.Now())
			task := schedulingports.DeferredTransition{
				Key:        in.Entity.PaymentID + ":" + domain.AutoMarkPaidTransition,
				EntityID:   in.Metadata.ID,
				Model:      domain.Model,
				Transition: domain.AutoMarkPaidTransition,
				Delay:      delay,
			}
			return deps.SideCalls.Required(ctx, "schedule "+task.Key, func(ctx context.Context) error {
				return deps.Scheduler.ScheduleTransition(ctx, task)
			})
		})
}

// MarkPaid records the provider confirmation.
func MarkPaid(deps processing.Deps) processing.Processor[domain.Payment] {
	return processing.ProcessorFunc[domain.Payment](MarkPaidName,
		func(_ context.Context, in payment) error {
			return processing.RequireState(in.Metadata, string(domain.StatusProcessing), string(domain.StatusPaid))
		},
		func(_ context.Context, in *payment) error {
			in.Entity.MarkPaid(deps.Now())
			return nil
		})
}

// IsPaid gates order approval on a confirmed payment.
func IsPaid() processing.Criterion[domain.Payment] {
	return processing.CriterionFunc[domain.Payment](IsPaidName, func(_ context.Context, in payment) (processing.Outcome, error) {
		if in.Entity.Status == domain.StatusPaid {
			return processing.Match(), nil
		}
		return processing.NoMatch(processing.CategoryBusinessRule, fmt.Sprintf("payment %s is %s", in.Entity.PaymentID, in.Entity.Status)), nil
	})
}

// Register adds the payment handlers to the registry.
func Register(reg *processing.Registry, deps processing.Deps, confirmationDelay time.Duration) error {
	processors := []processing.Processor[domain.Payment]{Create(deps), Start(deps, confirmationDelay), MarkPaid(deps)}
	for _, p := range processors {
		if err := reg.RegisterProcessor(processing.AdaptProcessor(p)); err != nil {
			return err
		}
	}
	return reg.RegisterCriterion(processing.AdaptCriterion(IsPaid()))
}
