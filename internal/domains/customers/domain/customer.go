package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/AlekSi/pointer"

	"github.com/Apurer/go-entity-processors/internal/shared/entity"
)

// Status enumerates the customer lifecycle.
type Status string

const (
	StatusActive     Status = "active"
	StatusAnonymized Status = "anonymized"
)

// Deleted replaces every erased text field.
const Deleted = "[deleted]"

// Model is the engine model of customer entities.
var Model = entity.ModelSpec{Name: "customer", Version: 1}

var (
	ErrEmptyCustomerID = errors.New("customer id is required")
	ErrEmptyUsername   = errors.New("username is required")
	ErrInvalidEmail    = errors.New("email is not a valid address")
)

// Address is the postal address of a customer.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Customer represents a shop customer.
type Customer struct {
	CustomerID   string     `json:"customerId"`
	Username     string     `json:"username"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Address      *Address   `json:"address,omitempty"`
	Status       Status     `json:"status,omitempty"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`
	AnonymizedAt *time.Time `json:"anonymizedAt,omitempty"`
}

func (Customer) Model() entity.ModelSpec { return Model }

func (c Customer) Validate() error {
	if strings.TrimSpace(c.CustomerID) == "" {
		return ErrEmptyCustomerID
	}
	return nil
}

// CheckRegistration validates the profile fields required to register.
func (c Customer) CheckRegistration() error {
	if strings.TrimSpace(c.Username) == "" {
		return ErrEmptyUsername
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(c.Email))
	if err != nil || addr.Address != strings.TrimSpace(c.Email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, c.Email)
	}
	return nil
}

// Register trims the profile and activates the customer.
func (c *Customer) Register(now time.Time) {
	c.Username = strings.TrimSpace(c.Username)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Status = StatusActive
	if c.RegisteredAt == nil {
		c.RegisteredAt = pointer.To(now)
	}
}

// DeletedEmail is the sentinel address of an anonymized customer.
func DeletedEmail(customerID string) string {
	return fmt.Sprintf("deleted+%s@invalid", customerID)
}

// Anonymize replaces every personal field with its sentinel.
func (c *Customer) Anonymize(now time.Time) {
	c.Username = Deleted
	c.FirstName = Deleted
	c.LastName = Deleted
	c.Email = DeletedEmail(c.CustomerID)
	c.Phone = Deleted
	if c.Address != nil {
		c.Address = &Address{Street: Deleted, City: Deleted, PostalCode: Deleted, Country: Deleted}
	}
	c.Status = StatusAnonymized
	if c.AnonymizedAt == nil {
		c.AnonymizedAt = pointer.To(now)
	}
}

// IsAnonymized reports whether no personal data is left.
func (c Customer) IsAnonymized() bool {
	if c.Username != Deleted || c.FirstName != Deleted || c.LastName != Deleted || c.Phone != Deleted {
		return false
	}
	if c.Email != DeletedEmail(c.CustomerID) {
		return false
	}
	if c.Address != nil && *c.Address != (Address{Street: Deleted, City: Deleted, PostalCode: Deleted, Country: Deleted}) {
		return false
	}
	return true
}
