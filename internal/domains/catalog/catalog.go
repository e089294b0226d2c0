// Package catalog registers every domain processor and criterion.
package catalog

import (
	"fmt"
	"time"

	cartprocessors "github.com/Apurer/go-entity-processors/internal/domains/cart/processors"
	customerprocessors "github.com/Apurer/go-entity-processors/internal/domains/customers/processors"
	inventoryprocessors "github.com/Apurer/go-entity-processors/internal/domains/inventory/processors"
	loanprocessors "github.com/Apurer/go-entity-processors/internal/domains/loan/processors"
	paymentprocessors "github.com/Apurer/go-entity-processors/internal/domains/payment/processors"
	petprocessors "github.com/Apurer/go-entity-processors/internal/domains/pets/processors"
	orderprocessors "github.com/Apurer/go-entity-processors/internal/domains/store/processors"
	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/processing"
)

// Options tunes the configurable business rules.
type Options struct {
	PaymentConfirmationDelay time.Duration
	ShippingLeadDays         int
}

// Option mutates Options.
type Option func(*Options)

func WithPaymentConfirmationDelay(delay time.Duration) Option {
	return func(o *Options) { o.PaymentConfirmationDelay = delay }
}

func WithShippingLeadDays(days int) Option {
	return func(o *Options) { o.ShippingLeadDays = days }
}

// DefaultOptions returns the business rule defaults.
func DefaultOptions() Options {
	return Options{
		PaymentConfirmationDelay: paymentprocessors.DefaultConfirmationDelay,
		ShippingLeadDays:         orderprocessors.DefaultShippingLeadDays,
	}
}

// Register adds every domain handler to reg.
func Register(reg *processing.Registry, deps processing.Deps, opts ...Option) error {
	options := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	deps = deps.WithDefaults()

	registrations := []struct {
		family string
		fn     func() error
	}{
		{"pets", func() error { return petprocessors.Register(reg, deps) }},
		{"orders", func() error { return orderprocessors.Register(reg, deps, options.ShippingLeadDays) }},
		{"carts", func() error { return cartprocessors.Register(reg, deps) }},
		{"payments", func() error {
			return paymentprocessors.Register(reg, deps, options.PaymentConfirmationDelay)
		}},
		{"loans", func() error { return loanprocessors.Register(reg, deps) }},
		{"customers", func() error { return customerprocessors.Register(reg, deps) }},
		{"inventory", func() error { return inventoryprocessors.Register(reg) }},
	}
	for _, r := range registrations {
		if err := r.fn(); err != nil {
			return fmt.Errorf("register %s handlers: %w", r.family, err)
		}
	}
	return nil
}

// Transitions describes the lifecycle the engine drives for each model.
// Local stores use it to advance states the way the engine would.
func Transitions() entityports.TransitionTable {
	return entityports.TransitionTable{
		"pet": {
			"available": {"reserve": "pending", "groom": "available"},
			"pending":   {"adopt": "sold", "release": "available", "groom": "pending"},
		},
		"order": {
			"placed":    {"approve": "approved", "cancel": "cancelled"},
			"approved":  {"ship": "shipped", "cancel": "cancelled"},
			"shipped":   {"deliver": "delivered"},
			"cancelled": {"cancel": "cancelled"},
		},
		"cart": {
			"active":       {"recalculate": "active", "checkout": "checking_out"},
			"checking_out": {"complete": "completed"},
		},
		"payment": {
			"created":    {"start": "processing"},
			"processing": {"auto_mark_paid": "paid", "mark_paid": "paid"},
		},
		"loan": {
			"submitted": {"approve": "approved"},
			"approved":  {"fund": "funded"},
			"funded":    {"record_repayment": "funded", "pay_off": "paid_off"},
		},
		"customer": {
			"active":     {"anonymize": "anonymized"},
			"anonymized": {"anonymize": "anonymized"},
		},
		"product": {
			"active": {"reserve_stock": "active", "validate_stock": "active"},
		},
	}
}
