package models

import (
	"time"

	"gorm.io/gorm"
)

// ClientType distinguishes companies from private individuals.
type ClientType string

const (
	ClientTypeCompany    ClientType = "COMPANY"
	ClientTypeIndividual ClientType = "INDIVIDUAL"
)

// Client represents a customer of a workspace.
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	WorkspaceID uint `gorm:"index;not null" json:"workspace_id"`

	// Client information
	Type  ClientType `gorm:"size:20;not null;default:'COMPANY'" json:"type"`
	Name  string     `gorm:"size:255;not null" json:"name"`
	Email string     `gorm:"size:255" json:"email,omitempty"`
	Phone string     `gorm:"size:50" json:"phone,omitempty"`

	// Address
	Address    string `gorm:"size:500" json:"address,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
	Country    string `gorm:"size:100" json:"country,omitempty"`

	// Tax information
	SIRET     string `gorm:"size:14" json:"siret,omitempty"`
	VATNumber string `gorm:"size:20" json:"vat_number,omitempty"`
}

// FullAddress returns the formatted full address.
func (c *Client) FullAddress() string {
	addr := c.Address
	if c.PostalCode != "" || c.City != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += c.PostalCode
		if c.PostalCode != "" && c.City != "" {
			addr += " "
		}
		addr += c.City
	}
	if c.Country != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += c.Country
	}
	return addr
}
