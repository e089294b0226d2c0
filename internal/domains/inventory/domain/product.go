package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Model is the engine model of product entities.
var Model = entity.ModelSpec{Name: "product", Version: 1}

var (
	ErrEmptySKU          = errors.New("sku is required")
	ErrNegativeStock     = errors.New("stock on hand must not be negative")
	ErrInvalidReserved   = errors.New("reserved stock must be between zero and stock on hand")
	ErrInvalidRequest    = errors.New("requested quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is one stock keeping unit.
type Product struct {
	SKU               string  `json:"sku"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	StockOnHand       int     `json:"stockOnHand"`
	Reserved          int     `json:"reserved"`
	RequestedQuantity int     `json:"requestedQuantity,omitempty"`
}

func (Product) Model() entity.ModelSpec { return Model }

func (p Product) Validate() error {
	if strings.TrimSpace(p.SKU) == "" {
		return ErrEmptySKU
	}
	return nil
}

// CheckStock enforces the stock invariants.
func (p Product) CheckStock() error {
	if p.StockOnHand < 0 {
		return ErrNegativeStock
	}
	if p.Reserved < 0 || p.Reserved > p.StockOnHand {
		return ErrInvalidReserved
	}
	return nil
}

// Available is the stock that can still be reserved.
func (p Product) Available() int {
	return p.StockOnHand - p.Reserved
}

// CheckReservation verifies the pending request fits in the available stock.
func (p Product) CheckReservation() error {
	if err := p.CheckStock(); err != nil {
		return err
	}
	if p.RequestedQuantity <= 0 {
		return ErrInvalidRequest
	}
	if p.RequestedQuantity > p.Available() {
		return fmt.Errorf("%w: %s requested %d, available %d", ErrInsufficientStock, p.SKU, p.RequestedQuantity, p.Available())
	}
	return nil
}

// Reserve moves the pending request into the reserved count.
func (p *Product) Reserve() error {
	if err := p.CheckReservation(); err != nil {
		return err
	}
	p.Reserved += p.RequestedQuantity
	p.RequestedQuantity = 0
	return nil
}
