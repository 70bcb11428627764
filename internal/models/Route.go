package models

import "transit_tracker/internal/geo"

// Route is an ordered run of stops a vehicle shuttles along.
// Stop order (Seq) defines direction; Path, when present, is the rendering
// and simulation polyline.
type Route struct {
	ID    string      `json:"id" yaml:"id" validate:"required"`
	Name  string      `json:"name" yaml:"name"`
	Color string      `json:"color,omitempty" yaml:"color,omitempty"`
	Stops []Stop      `json:"stops" yaml:"stops" validate:"required,min=1,dive"`
	Path  []geo.Point `json:"path,omitempty" yaml:"path,omitempty"`
}

// Polyline returns the route path if it has at least two points, otherwise
// the stop coordinates in sequence order.
func (r Route) Polyline() []geo.Point {
	if len(r.Path) >= 2 {
		out := make([]geo.Point, len(r.Path))
		copy(out, r.Path)
		return out
	}
	out := make([]geo.Point, 0, len(r.Stops))
	for _, s := range r.Stops {
		out = append(out, s.Point())
	}
	return out
}

// StopByID returns the stop with the given id on this route.
func (r Route) StopByID(id string) (Stop, bool) {
	for _, s := range r.Stops {
		if s.ID == id {
			return s, true
		}
	}
	return Stop{}, false
}
