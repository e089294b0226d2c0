package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/AlekSi/pointer"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Status enumerates the cart lifecycle.
type Status string

const (
	StatusActive      Status = "active"
	StatusCheckingOut Status = "checking_out"
	StatusCompleted   Status = "completed"
)

// Model is the engine model of cart entities.
var Model = entity.ModelSpec{Name: "cart", Version: 1}

var (
	ErrEmptyCartID   = errors.New("cart id is required")
	ErrEmptyCart     = errors.New("cart has no lines")
	ErrInvalidLine   = errors.New("line needs a sku and a positive quantity")
	ErrNegativePrice = errors.New("line price must not be negative")
)

// Line is one product in the cart.
type Line struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

// Cart aggregates the products a customer intends to buy.
type Cart struct {
	CartID     string     `json:"cartId"`
	CustomerID string     `json:"customerId,omitempty"`
	Lines      []Line     `json:"lines"`
	TotalItems int        `json:"totalItems"`
	GrandTotal float64    `json:"grandTotal"`
	Status     Status     `json:"status,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

func (Cart) Model() entity.ModelSpec { return Model }

func (c Cart) Validate() error {
	if strings.TrimSpace(c.CartID) == "" {
		return ErrEmptyCartID
	}
	for _, line := range c.Lines {
		if strings.TrimSpace(line.SKU) == "" || line.Quantity <= 0 {
			return ErrInvalidLine
		}
		if line.Price < 0 {
			return ErrNegativePrice
		}
	}
	return nil
}

// Recalculate derives line totals, item count and grand total from the lines.
func (c *Cart) Recalculate(now time.Time) {
	items := 0
	total := 0.0
	for i := range c.Lines {
		c.Lines[i].LineTotal = roundCents(c.Lines[i].Price * float64(c.Lines[i].Quantity))
		items += c.Lines[i].Quantity
		total += c.Lines[i].LineTotal
	}
	c.TotalItems = items
	c.GrandTotal = roundCents(total)
	if c.CreatedAt == nil {
		c.CreatedAt = pointer.To(now)
	}
	c.UpdatedAt = pointer.To(now)
}

// Checkout freezes the totals and moves the cart to checking out.
func (c *Cart) Checkout(now time.Time) error {
	if len(c.Lines) == 0 {
		return ErrEmptyCart
	}
	c.Recalculate(now)
	c.Status = StatusCheckingOut
	return nil
}

func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
