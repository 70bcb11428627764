package vehicles

import (
	"sync"
)

// Resolver decides which route a vehicle belongs to. The route id carried in
// live telemetry always wins over the fallback table.
type Resolver struct {
	store *Store

	mu       sync.RWMutex
	fallback map[string]string
}

func NewResolver(store *Store, fallback map[string]string) *Resolver {
	m := make(map[string]string, len(fallback))
	for k, v := range fallback {
		m[k] = v
	}
	return &Resolver{store: store, fallback: m}
}

// RouteForVehicle returns the telemetry route id, then the fallback mapping,
// then "" when the route is unknown.
func (r *Resolver) RouteForVehicle(vehicleID string) string {
	if v, ok := r.store.Get(vehicleID); ok && v.RouteID != "" {
		return v.RouteID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback[vehicleID]
}

// SetMapping overrides the fallback route for a vehicle. Stored telemetry is
// left untouched.
func (r *Resolver) SetMapping(vehicleID, routeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback[vehicleID] = routeID
}

// Mappings returns a copy of the fallback table.
func (r *Resolver) Mappings() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.fallback))
	for k, v := range r.fallback {
		out[k] = v
	}
	return out
}
