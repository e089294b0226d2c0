package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/AlekSi/pointer"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Status represents the lifecycle state of a pet inside the store catalog.
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
)

// Model is the engine model of pet entities.
var Model = entity.ModelSpec{Name: "pet", Version: 1}

// Category groups pets in the catalog.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag is a lightweight marker attached to pets for filtering.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GroomingOperation carries the transient data required to compute the new hair length.
type GroomingOperation struct {
	TrimByCm float64 `json:"trimByCm"`
}

// Pet is the catalog entry of one animal.
type Pet struct {
	ID              string             `json:"id"`
	Category        *Category          `json:"category,omitempty"`
	Name            string             `json:"name"`
	PhotoURLs       []string           `json:"photoUrls"`
	Tags            []Tag              `json:"tags,omitempty"`
	Status          Status             `json:"status,omitempty"`
	HairLengthCm    float64            `json:"hairLengthCm"`
	Grooming        *GroomingOperation `json:"grooming,omitempty"`
	AdoptionOrderID string             `json:"adoptionOrderId,omitempty"`
	ReservedAt      *time.Time         `json:"reservedAt,omitempty"`
	AdoptedAt       *time.Time         `json:"adoptedAt,omitempty"`
	UpdatedAt       *time.Time         `json:"updatedAt,omitempty"`
}

var (
	ErrEmptyID         = errors.New("pet id is required")
	ErrEmptyName       = errors.New("pet name is required")
	ErrEmptyPhotos     = errors.New("at least one photo url is required")
	ErrInvalidHair     = errors.New("hair length must be greater or equal to zero")
	ErrInvalidGrooming = errors.New("grooming operation must have a trim less than or equal to the current length")
	ErrNoGrooming      = errors.New("grooming operation is required")
)

func (Pet) Model() entity.ModelSpec { return Model }

// Validate enforces the catalog invariants.
func (p Pet) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.PhotoURLs) == 0 {
		return ErrEmptyPhotos
	}
	if p.HairLengthCm < 0 {
		return ErrInvalidHair
	}
	return nil
}

// NormalizeStatus coerces unknown lifecycle values to available.
func (p *Pet) NormalizeStatus() {
	switch p.Status {
	case StatusAvailable, StatusPending, StatusSold:
	default:
		p.Status = StatusAvailable
	}
	p.Name = strings.TrimSpace(p.Name)
}

// Reserve holds the pet for a pending order.
func (p *Pet) Reserve(now time.Time) {
	p.Status = StatusPending
	p.ReservedAt = pointer.To(now)
	p.UpdatedAt = pointer.To(now)
}

// Adopt marks the pet as sold.
func (p *Pet) Adopt(now time.Time) {
	p.Status = StatusSold
	p.AdoptedAt = pointer.To(now)
	p.UpdatedAt = pointer.To(now)
}

// CheckGrooming verifies the pending grooming operation can be applied.
func (p Pet) CheckGrooming() error {
	if p.Grooming == nil {
		return ErrNoGrooming
	}
	if p.Grooming.TrimByCm < 0 {
		return ErrInvalidHair
	}
	if p.Grooming.TrimByCm > p.HairLengthCm {
		return ErrInvalidGrooming
	}
	return nil
}

// Groom applies the pending grooming operation, persisting only the result.
func (p *Pet) Groom(now time.Time) error {
	if err := p.CheckGrooming(); err != nil {
		return err
	}
	p.HairLengthCm -= p.Grooming.TrimByCm
	p.Grooming = nil
	p.UpdatedAt = pointer.To(now)
	return nil
}
