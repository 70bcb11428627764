package models

import "transit_tracker/internal/geo"

// Stop is a waypoint owned by exactly one route.
// RouteID is filled in by the registry when stops are listed across routes.
type Stop struct {
	ID      string  `json:"id" yaml:"id" validate:"required"`
	Name    string  `json:"name" yaml:"name"`
	Lat     float64 `json:"lat" yaml:"lat" validate:"latitude"`
	Lon     float64 `json:"lon" yaml:"lon" validate:"longitude"`
	Seq     int     `json:"seq" yaml:"seq"`
	RouteID string  `json:"routeId,omitempty" yaml:"-"`
}

func (s Stop) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}
