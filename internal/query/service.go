// Package query answers read requests over the registry and vehicle store.
package query

import (
	"errors"
	"math"
	"sort"
	"time"

	"transit_tracker/internal/eta"
	"transit_tracker/internal/geo"
	"transit_tracker/internal/hub"
	"transit_tracker/internal/models"
	"transit_tracker/internal/registry"
	"transit_tracker/internal/vehicles"
)

// WalkingSpeedKmph is used for walk-time estimates.
const WalkingSpeedKmph = 5.0

var (
	ErrNoStops        = errors.New("no stops")
	ErrStopNotFound   = errors.New("stop not found")
	ErrNoStopInRadius = errors.New("no stop within radius")
	ErrRouteNotFound  = errors.New("route not found")
	ErrVehicleUnknown = errors.New("vehicle not found")
)

type Service struct {
	registry  *registry.Registry
	store     *vehicles.Store
	resolver  *vehicles.Resolver
	estimator eta.Estimator
}

func NewService(reg *registry.Registry, store *vehicles.Store, resolver *vehicles.Resolver) *Service {
	return &Service{registry: reg, store: store, resolver: resolver, estimator: eta.New()}
}

// NearestStopResult is the answer to a nearest-stop query.
type NearestStopResult struct {
	Stop        models.Stop `json:"stop"`
	RouteID     string      `json:"routeId"`
	DistanceKm  float64     `json:"distance_km"`
	DistanceM   int         `json:"distance_m"`
	WalkMinutes int         `json:"walk_minutes"`
}

// Bus is one vehicle's standing in a stop detail.
type Bus struct {
	VehicleID string    `json:"vehicle_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	SpeedKmph float64   `json:"speed_kmph"`
	Heading   *float64  `json:"heading"`
	Status    string    `json:"status"`
	EtaToStop int       `json:"eta_to_stop_minutes"`
	EtaToDest *int      `json:"eta_to_dest_minutes"`
	LastSeen  time.Time `json:"lastSeen"`
	Simulated bool      `json:"simulated"`
}

// StopDetail lists the vehicles serving a stop, coming first by ETA.
type StopDetail struct {
	Stop      models.Stop `json:"stop"`
	RouteID   string      `json:"routeId"`
	RouteName string      `json:"routeName"`
	Color     string      `json:"color,omitempty"`
	Path      []geo.Point `json:"path,omitempty"`
	Buses     []Bus       `json:"buses"`
}

func (s *Service) ListVehicleIDs() []string { return s.store.IDs() }

func (s *Service) Snapshot() map[string]models.Vehicle { return s.store.All() }

func (s *Service) ListRoutes() []models.Route { return s.registry.ListRoutes() }

func (s *Service) ListStops() []models.Stop { return s.registry.ListStops() }

func (s *Service) SearchStops(q string) []models.Stop {
	return s.registry.SearchStops(q, registry.DefaultSearchLimit)
}

func (s *Service) Route(id string) (models.Route, error) {
	r, ok := s.registry.GetRoute(id)
	if !ok {
		return models.Route{}, ErrRouteNotFound
	}
	return r, nil
}

func (s *Service) Vehicle(id string) (models.Vehicle, error) {
	v, ok := s.store.Get(id)
	if !ok {
		return models.Vehicle{}, ErrVehicleUnknown
	}
	return v, nil
}

// Envelopes returns one telemetry message per known vehicle, for observers
// that just connected.
func (s *Service) Envelopes() []hub.Envelope {
	all := s.store.All()
	out := make([]hub.Envelope, 0, len(all))
	for _, id := range sortedKeys(all) {
		out = append(out, hub.NewEnvelope(all[id], s.resolver.RouteForVehicle(id)))
	}
	return out
}

// NearestStop finds the stop closest to p. radiusKm <= 0 means unbounded.
func (s *Service) NearestStop(p geo.Point, radiusKm float64) (NearestStopResult, error) {
	if s.registry.StopCount() == 0 {
		return NearestStopResult{}, ErrNoStops
	}
	n, ok := s.registry.FindNearestStop(p, radiusKm)
	if !ok {
		return NearestStopResult{}, ErrNoStopInRadius
	}
	walk := int(math.Round(n.DistanceKm / WalkingSpeedKmph * 60))
	if walk < 1 {
		walk = 1
	}
	return NearestStopResult{
		Stop:        n.Stop,
		RouteID:     n.RouteID,
		DistanceKm:  n.DistanceKm,
		DistanceM:   int(math.Round(n.DistanceKm * 1000)),
		WalkMinutes: walk,
	}, nil
}

// StopDetail resolves stopID and ranks the vehicles on its route. When destID
// names a stop on the same route each bus also carries an ETA to it.
func (s *Service) StopDetail(stopID, destID string) (StopDetail, error) {
	stop, route, ok := s.registry.FindStop(stopID)
	if !ok {
		return StopDetail{}, ErrStopNotFound
	}

	var dest *models.Stop
	if destID != "" {
		if d, ok := route.StopByID(destID); ok {
			dest = &d
		}
	}

	all := s.store.All()
	buses := make([]Bus, 0)
	for _, id := range sortedKeys(all) {
		if s.resolver.RouteForVehicle(id) != route.ID {
			continue
		}
		v := all[id]
		b := Bus{
			VehicleID: v.VehicleID,
			Lat:       v.Lat,
			Lon:       v.Lon,
			SpeedKmph: v.SpeedKmph,
			Heading:   v.Heading,
			Status:    eta.Classify(v, stop),
			EtaToStop: s.estimator.EtaMinutes(v, stop),
			LastSeen:  v.LastSeen,
			Simulated: v.Simulated,
		}
		if dest != nil {
			m := s.estimator.EtaMinutes(v, *dest)
			b.EtaToDest = &m
		}
		buses = append(buses, b)
	}
	eta.SortArrivals(buses, func(b Bus) eta.Arrival {
		return eta.Arrival{Status: b.Status, EtaMinutes: b.EtaToStop}
	})

	return StopDetail{
		Stop:      stop,
		RouteID:   route.ID,
		RouteName: route.Name,
		Color:     route.Color,
		Path:      route.Path,
		Buses:     buses,
	}, nil
}

func sortedKeys(m map[string]models.Vehicle) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
