// Package vehicles keeps live vehicle telemetry and the vehicle to route
// association.
package vehicles

import (
	"sort"
	"sync"
	"time"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
)

// MovingThresholdKmph is the speed above which a vehicle without an explicit
// status is considered moving.
const MovingThresholdKmph = 1.0

// Store maps vehicle id to its latest record. Records are never expired.
type Store struct {
	mu       sync.RWMutex
	vehicles map[string]*models.Vehicle
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		vehicles: make(map[string]*models.Vehicle),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ApplyTelemetry shallow-merges upd into the vehicle's record, stamps
// LastSeen and returns the full updated record.
func (s *Store) ApplyTelemetry(upd models.TelemetryUpdate) models.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[upd.VehicleID]
	if !ok {
		v = &models.Vehicle{VehicleID: upd.VehicleID}
		s.vehicles[upd.VehicleID] = v
	}

	if upd.Lat != nil {
		v.Lat = *upd.Lat
	}
	if upd.Lon != nil {
		v.Lon = *upd.Lon
	}
	if upd.SpeedKmph != nil {
		v.SpeedKmph = *upd.SpeedKmph
	}
	if upd.Heading != nil {
		h := geo.NormalizeBearing(*upd.Heading)
		v.Heading = &h
	}
	if upd.RouteID != nil {
		v.RouteID = *upd.RouteID
	}
	v.Simulated = upd.Simulated

	if upd.Status != nil && *upd.Status != "" {
		v.Status = *upd.Status
		v.IsMoving = v.Status == models.StatusMoving
	} else {
		v.IsMoving = v.SpeedKmph > MovingThresholdKmph
		v.Status = models.StatusStopped
		if v.IsMoving {
			v.Status = models.StatusMoving
		}
	}

	v.LastSeen = s.now().UTC()
	return copyVehicle(v)
}

// Get returns the record for id.
func (s *Store) Get(id string) (models.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return models.Vehicle{}, false
	}
	return copyVehicle(v), true
}

// All returns a snapshot of every record keyed by vehicle id.
func (s *Store) All() map[string]models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Vehicle, len(s.vehicles))
	for id, v := range s.vehicles {
		out[id] = copyVehicle(v)
	}
	return out
}

// IDs returns the known vehicle ids, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.vehicles))
	for id := range s.vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of tracked vehicles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vehicles)
}

func copyVehicle(v *models.Vehicle) models.Vehicle {
	out := *v
	if v.Heading != nil {
		h := *v.Heading
		out.Heading = &h
	}
	return out
}
