// Package registry is the in-memory catalog of routes and their stops.
package registry

import (
	"math"
	"sort"
	"strings"
	"sync"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
)

// DefaultSearchLimit caps SearchStops results.
const DefaultSearchLimit = 10

// Registry holds routes in insertion order and indexes stops by id.
// All methods are safe for concurrent use and return copies.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	routes map[string]models.Route
	stops  map[string]string // stop id -> route id
}

func New() *Registry {
	return &Registry{
		routes: make(map[string]models.Route),
		stops:  make(map[string]string),
	}
}

// Nearest is the result of a nearest-stop search.
type Nearest struct {
	Stop       models.Stop
	RouteID    string
	DistanceKm float64
}

// AddRoute inserts or replaces a route. A replaced route keeps its original
// position in the listing order and its old stops are unindexed first.
// Stops are ordered by Seq; ties keep their given order.
func (r *Registry) AddRoute(route models.Route) models.Route {
	route = normalize(route)

	r.mu.Lock()
	defer r.mu.Unlock()

	var orphaned []string
	if old, ok := r.routes[route.ID]; ok {
		for _, s := range old.Stops {
			if r.stops[s.ID] == old.ID {
				delete(r.stops, s.ID)
				orphaned = append(orphaned, s.ID)
			}
		}
	} else {
		r.order = append(r.order, route.ID)
	}
	r.routes[route.ID] = route
	for _, s := range route.Stops {
		r.stops[s.ID] = route.ID
	}
	for _, id := range orphaned {
		if _, ok := r.stops[id]; !ok {
			r.reindexStop(id)
		}
	}
	return cloneRoute(route)
}

// reindexStop points id at the last route in listing order that still
// lists it, if any.
func (r *Registry) reindexStop(id string) {
	for i := len(r.order) - 1; i >= 0; i-- {
		if _, ok := r.routes[r.order[i]].StopByID(id); ok {
			r.stops[id] = r.order[i]
			return
		}
	}
}

// GetRoute returns the route with the given id.
func (r *Registry) GetRoute(id string) (models.Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[id]
	if !ok {
		return models.Route{}, false
	}
	return cloneRoute(route), true
}

// ListRoutes returns every route in insertion order.
func (r *Registry) ListRoutes() []models.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Route, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneRoute(r.routes[id]))
	}
	return out
}

// ListStops returns every stop across all routes, tagged with its route id.
func (r *Registry) ListStops() []models.Stop {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Stop
	r.eachStop(func(s models.Stop) bool {
		out = append(out, s)
		return true
	})
	return out
}

// FindStop resolves a stop id to the stop and its owning route.
func (r *Registry) FindStop(id string) (models.Stop, models.Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	routeID, ok := r.stops[id]
	if !ok {
		return models.Stop{}, models.Route{}, false
	}
	route := r.routes[routeID]
	for _, s := range route.Stops {
		if s.ID == id {
			s.RouteID = route.ID
			return s, cloneRoute(route), true
		}
	}
	return models.Stop{}, models.Route{}, false
}

// StopCount reports how many stops are registered.
func (r *Registry) StopCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stops)
}

// FindNearestStop scans all stops for the one closest to p. Ties go to the
// first stop in registry order. A maxKm <= 0 means no radius limit.
func (r *Registry) FindNearestStop(p geo.Point, maxKm float64) (Nearest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := Nearest{DistanceKm: math.Inf(1)}
	found := false
	r.eachStop(func(s models.Stop) bool {
		d := geo.DistanceKm(p, s.Point())
		if d < best.DistanceKm {
			best = Nearest{Stop: s, RouteID: s.RouteID, DistanceKm: d}
			found = true
		}
		return true
	})
	if !found {
		return Nearest{}, false
	}
	if maxKm > 0 && best.DistanceKm > maxKm {
		return Nearest{}, false
	}
	return best, true
}

// SearchStops returns stops whose name contains q, case-insensitively, in
// registry order. A limit <= 0 uses DefaultSearchLimit.
func (r *Registry) SearchStops(q string, limit int) []models.Stop {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Stop
	r.eachStop(func(s models.Stop) bool {
		if strings.Contains(strings.ToLower(s.Name), q) {
			out = append(out, s)
		}
		return len(out) < limit
	})
	return out
}

// eachStop walks stops in registry order until fn returns false.
// Callers hold the read lock.
func (r *Registry) eachStop(fn func(models.Stop) bool) {
	for _, id := range r.order {
		route := r.routes[id]
		for _, s := range route.Stops {
			s.RouteID = route.ID
			if !fn(s) {
				return
			}
		}
	}
}

func normalize(route models.Route) models.Route {
	if route.Name == "" {
		route.Name = route.ID
	}
	route = cloneRoute(route)
	sort.SliceStable(route.Stops, func(i, j int) bool {
		return route.Stops[i].Seq < route.Stops[j].Seq
	})
	for i := range route.Stops {
		route.Stops[i].Seq = i
		route.Stops[i].RouteID = ""
	}
	return route
}

func cloneRoute(route models.Route) models.Route {
	if route.Stops != nil {
		route.Stops = append([]models.Stop(nil), route.Stops...)
	}
	if route.Path != nil {
		route.Path = append([]geo.Point(nil), route.Path...)
	}
	return route
}
