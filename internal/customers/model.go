// Package customers stores utility customer accounts and notifies the billing
// cycle lifecycle inside the same transaction as each mutation.
package customers

import "time"

const (
	TypeResidential = "residential"
	TypeCommercial  = "commercial"
	TypeGovernment  = "government"
)

// Types lists the customer types rates are priced for.
func Types() []string {
	return []string{TypeResidential, TypeCommercial, TypeGovernment}
}

type Customer struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	AccountNumber string    `json:"account_number"`
	MeterNumber   string    `json:"meter_number"`
	CustomerType  string    `json:"customer_type"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
