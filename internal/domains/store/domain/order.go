package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/AlekSi/pointer"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Status enumerates order progression.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusApproved  Status = "approved"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Model is the engine model of order entities.
var Model = entity.ModelSpec{Name: "order", Version: 1}

var (
	ErrEmptyOrderID    = errors.New("order id is required")
	ErrMissingItems    = errors.New("order needs a pet or at least one line")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("line price must not be negative")
	ErrInvalidStatus   = errors.New("order status is invalid")
)

// Line is one purchased product.
type Line struct {
	SKU      string  `json:"sku"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Order models the store purchase order.
type Order struct {
	OrderID         string     `json:"orderId"`
	PetID           string     `json:"petId,omitempty"`
	CartID          string     `json:"cartId,omitempty"`
	CustomerID      string     `json:"customerId,omitempty"`
	Lines           []Line     `json:"lines,omitempty"`
	Quantity        int        `json:"quantity"`
	Total           float64    `json:"total"`
	ShipDate        *time.Time `json:"shipDate,omitempty"`
	Status          Status     `json:"status,omitempty"`
	Complete        bool       `json:"complete"`
	CancelledReason string     `json:"cancelledReason,omitempty"`
	PlacedAt        *time.Time `json:"placedAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

func (Order) Model() entity.ModelSpec { return Model }

// Validate enforces invariants shared by every order transition.
func (o Order) Validate() error {
	if strings.TrimSpace(o.OrderID) == "" {
		return ErrEmptyOrderID
	}
	if o.Status != "" && !isValidStatus(o.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// CheckItems verifies what is being ordered before placement.
func (o Order) CheckItems() error {
	if strings.TrimSpace(o.PetID) == "" && len(o.Lines) == 0 {
		return ErrMissingItems
	}
	if len(o.Lines) == 0 && o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if line.Price < 0 {
			return ErrInvalidPrice
		}
	}
	return nil
}

// Place computes quantity and total from the lines and marks the order placed.
func (o *Order) Place(now time.Time) {
	if len(o.Lines) > 0 {
		quantity := 0
		total := 0.0
		for _, line := range o.Lines {
			quantity += line.Quantity
			total += RoundCents(line.Price * float64(line.Quantity))
		}
		o.Quantity = quantity
		o.Total = RoundCents(total)
	}
	o.Status = StatusPlaced
	o.PlacedAt = pointer.To(now)
	o.UpdatedAt = pointer.To(now)
}

// Approve moves a placed order forward.
func (o *Order) Approve(now time.Time) {
	o.Status = StatusApproved
	o.UpdatedAt = pointer.To(now)
}

// Ship records the expected ship date.
func (o *Order) Ship(shipDate, now time.Time) {
	o.ShipDate = pointer.To(shipDate)
	o.Status = StatusShipped
	o.UpdatedAt = pointer.To(now)
}

// Deliver completes the order.
func (o *Order) Deliver(now time.Time) {
	o.Complete = true
	o.Status = StatusDelivered
	o.UpdatedAt = pointer.To(now)
}

// Cancel marks the order cancelled. The first recorded reason is kept.
func (o *Order) Cancel(reason string, now time.Time) {
	if o.Status == StatusCancelled {
		return
	}
	o.Status = StatusCancelled
	o.CancelledReason = reason
	o.UpdatedAt = pointer.To(now)
}

// ShipDateFrom adds lead days to now, moving weekend dates to the next Monday.
func ShipDateFrom(now time.Time, leadDays int) time.Time {
	date := now.AddDate(0, 0, leadDays)
	switch date.Weekday() {
	case time.Saturday:
		date = date.AddDate(0, 0, 2)
	case time.Sunday:
		date = date.AddDate(0, 0, 1)
	}
	return date
}

// RoundCents rounds an amount to two decimals.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusPlaced, StatusApproved, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}
