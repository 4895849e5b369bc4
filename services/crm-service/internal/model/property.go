package model

import "time"

const (
	PropertyAvailable  = "available"
	PropertyUnderOffer = "under-offer"
	PropertyLeased     = "leased"
	PropertyOffMarket  = "off-market"
)

func ValidPropertyStatus(s string) bool {
	switch s {
	case PropertyAvailable, PropertyUnderOffer, PropertyLeased, PropertyOffMarket:
		return true
	}
	return false
}

type Property struct {
	ID          string
	Title       string
	Address     string
	City        string
	SquareFeet  int
	PricePerSF  string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
