package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/AlekSi/pointer"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Status enumerates the payment lifecycle.
type Status string

const (
	StatusCreated    Status = "created"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
)

// Model is the engine model of payment entities.
var Model = entity.ModelSpec{Name: "payment", Version: 1}

// AutoMarkPaidTransition is fired once the simulated provider confirmation delay elapses.
const AutoMarkPaidTransition = "auto_mark_paid"

var (
	ErrEmptyPaymentID = errors.New("payment id is required")
	ErrEmptyCartID    = errors.New("payment must reference a cart")
	ErrInvalidAmount  = errors.New("payment amount must be greater than zero")
)

// Payment is a payment attempt for one cart.
type Payment struct {
	PaymentID string     `json:"paymentId"`
	CartID    string     `json:"cartId"`
	Amount    float64    `json:"amount"`
	Provider  string     `json:"provider,omitempty"`
	Status    Status     `json:"status,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (Payment) Model() entity.ModelSpec { return Model }

func (p Payment) Validate() error {
	switch {
	case strings.TrimSpace(p.PaymentID) == "":
		return ErrEmptyPaymentID
	case strings.TrimSpace(p.CartID) == "":
		return ErrEmptyCartID
	case p.Amount <= 0:
		return ErrInvalidAmount
	}
	return nil
}

// Covers reports whether the amount settles total to the cent.
func (p Payment) Covers(total float64) bool {
	return math.Abs(p.Amount-total) < 0.005
}

// Create stamps a new payment.
func (p *Payment) Create(now time.Time) {
	if p.Provider == "" {
		p.Provider = "DUMMY"
	}
	p.Status = StatusCreated
	p.CreatedAt = pointer.To(now)
	p.UpdatedAt = pointer.To(now)
}

// Start hands the payment to the provider.
func (p *Payment) Start(now time.Time) {
	p.Status = StatusProcessing
	p.StartedAt = pointer.To(now)
	p.UpdatedAt = pointer.To(now)
}

// MarkPaid records the provider confirmation. Repeated confirmations keep the first paidAt.
func (p *Payment) MarkPaid(now time.Time) {
	p.Status = StatusPaid
	if p.PaidAt == nil {
		p.PaidAt = pointer.To(now)
	}
	p.UpdatedAt = pointer.To(now)
}
