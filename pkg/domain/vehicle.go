package domain

import (
	"time"

	"github.com/google/uuid"
)

// VehicleStatus is the sale state of a listing.
type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "AVAILABLE"
	VehicleSold      VehicleStatus = "SOLD"
	VehicleReserved  VehicleStatus = "RESERVED"
)

// Valid reports whether s is a known status.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleSold, VehicleReserved:
		return true
	}
	return false
}

// Vehicle is an inventory listing. It crosses the wire as-is, so the fields
// carry JSON tags.
type Vehicle struct {
	ID          uuid.UUID     `json:"id"`
	Make        string        `json:"make"`
	Model       string        `json:"model"`
	Year        int           `json:"year"`
	Price       float64       `json:"price"`
	Mileage     int           `json:"mileage"`
	Description string        `json:"description"`
	Images      []string      `json:"images"`
	Status      VehicleStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
