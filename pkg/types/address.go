package types

import (
	"strings"
	"time"
)

// Address is a delivery address as stored by the remote address service.
type Address struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Country    string    `json:"country"`
	PostalCode string    `json:"postalCode"`
	Phone      string    `json:"phone"`
	Landmark   *string   `json:"landmark,omitempty"`
	IsDefault  bool      `json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AddressPatch is the request body for partial address updates. Server-owned
// fields (id, createdAt, updatedAt) have no place here.
type AddressPatch struct {
	Name       *string `json:"name,omitempty"`
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	Country    *string `json:"country,omitempty"`
	PostalCode *string `json:"postalCode,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Landmark   *string `json:"landmark,omitempty"`
	IsDefault  *bool   `json:"isDefault,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p AddressPatch) IsEmpty() bool {
	return p.Name == nil && p.Address == nil && p.City == nil && p.State == nil &&
		p.Country == nil && p.PostalCode == nil && p.Phone == nil && p.Landmark == nil && p.IsDefault == nil
}

// AddressInput is the creation payload; the server assigns identity and timestamps.
type AddressInput struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postalCode"`
	Phone      string  `json:"phone"`
	Landmark   *string `json:"landmark,omitempty"`
	IsDefault  bool    `json:"isDefault"`
}

// Input strips the server-owned fields from a.
func (a Address) Input() AddressInput {
	return AddressInput{
		Name:       a.Name,
		Address:    a.Address,
		City:       a.City,
		State:      a.State,
		Country:    a.Country,
		PostalCode: a.PostalCode,
		Phone:      a.Phone,
		Landmark:   a.Landmark,
		IsDefault:  a.IsDefault,
	}
}

// Summary renders the one-line form used in order summaries.
func (a Address) Summary() string {
	parts := []string{}
	for _, p := range []string{a.Address, a.City, a.State, a.Country} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	line := strings.Join(parts, ", ")
	if pc := strings.TrimSpace(a.PostalCode); pc != "" {
		line += " - " + pc
	}
	return line
}
