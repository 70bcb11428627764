package models

import (
	"time"

	"transit_tracker/internal/geo"
)

// Vehicle status values.
const (
	StatusMoving  = "moving"
	StatusStopped = "stopped"
)

// Vehicle is the latest known telemetry for one vehicle.
type Vehicle struct {
	VehicleID string    `json:"vehicle_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	SpeedKmph float64   `json:"speed_kmph"`
	Heading   *float64  `json:"heading"`
	Status    string    `json:"status"`
	IsMoving  bool      `json:"isMoving"`
	RouteID   string    `json:"routeId,omitempty"`
	Simulated bool      `json:"simulated"`
	LastSeen  time.Time `json:"lastSeen"`
}

func (v Vehicle) Point() geo.Point {
	return geo.Point{Lat: v.Lat, Lon: v.Lon}
}

// TelemetryUpdate is a partial update. Nil fields keep their prior value.
type TelemetryUpdate struct {
	VehicleID string
	Lat       *float64
	Lon       *float64
	SpeedKmph *float64
	Heading   *float64
	Status    *string
	RouteID   *string
	Simulated bool
	// Source labels where the update came from (broker, http, simulator).
	Source string
}

// Float returns a pointer to v, for building updates.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v, for building updates.
func String(v string) *string { return &v }
