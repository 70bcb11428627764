// Package simulator moves synthetic vehicles back and forth along route
// polylines and feeds their positions through the normal telemetry path.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
)

const (
	MinSpeedMultiplier = 0.1
	MaxSpeedMultiplier = 10.0

	DefaultTick      = 2 * time.Second
	DefaultDwell     = 10 * time.Second
	DefaultSpeedKmph = 25.0
)

var (
	ErrUnknownRoute    = errors.New("unknown route")
	ErrRouteTooShort   = errors.New("route needs at least two points to simulate")
	ErrMultiplierRange = fmt.Errorf("speed multiplier must be between %g and %g", MinSpeedMultiplier, MaxSpeedMultiplier)
	ErrDuplicate       = errors.New("simulated vehicle already exists")
)

// Sink applies simulated telemetry exactly like real telemetry.
type Sink interface {
	Apply(upd models.TelemetryUpdate) models.Vehicle
}

// RouteSource resolves route ids to routes.
type RouteSource interface {
	GetRoute(id string) (models.Route, bool)
}

// Metrics is the subset of the collector the simulator reports to.
type Metrics interface {
	ObserveTick(d time.Duration)
	SetRunning(running bool)
	SetSpeedMultiplier(m float64)
}

type Config struct {
	Tick            time.Duration
	Dwell           time.Duration
	SpeedMultiplier float64
}

// VehicleConfig describes a simulated vehicle to add.
type VehicleConfig struct {
	ID         string    `json:"id" yaml:"id" validate:"required"`
	RouteID    string    `json:"routeId" yaml:"route_id" validate:"required"`
	SpeedKmph  float64   `json:"speed_kmph" yaml:"speed_kmph" validate:"gte=0"`
	Direction  Direction `json:"direction" yaml:"direction" validate:"omitempty,oneof=forward reverse"`
	StartIndex int       `json:"start_index" yaml:"start_index" validate:"gte=0"`
}

// VehicleStatus is a read-only view of one simulated vehicle.
type VehicleStatus struct {
	ID        string    `json:"id"`
	RouteID   string    `json:"routeId"`
	State     State     `json:"state"`
	Direction Direction `json:"direction"`
	Index     int       `json:"waypoint_index"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	SpeedKmph float64   `json:"speed_kmph"`
	Heading   float64   `json:"heading"`
}

// Status is the simulator's control state.
type Status struct {
	Running         bool            `json:"running"`
	SpeedMultiplier float64         `json:"speed_multiplier"`
	TickMs          int64           `json:"tick_ms"`
	DwellMs         int64           `json:"dwell_ms"`
	Vehicles        []VehicleStatus `json:"vehicles"`
}

type Simulator struct {
	routes  RouteSource
	sink    Sink
	metrics Metrics
	tick    time.Duration
	dwell   time.Duration

	// mu guards vehicle state and the multiplier
	mu         sync.Mutex
	vehicles   map[string]*simVehicle
	order      []string
	multiplier float64

	// ctl serialises Start/Stop/restart
	ctl     sync.Mutex
	running bool
	parent  context.Context
	cancel  context.CancelFunc
	done    chan struct{} // closed when the current loop exits
	wg      sync.WaitGroup
}

func New(routes RouteSource, sink Sink, cfg Config, m Metrics) *Simulator {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Dwell < 0 {
		cfg.Dwell = 0
	}
	if cfg.SpeedMultiplier < MinSpeedMultiplier || cfg.SpeedMultiplier > MaxSpeedMultiplier {
		cfg.SpeedMultiplier = 1
	}
	s := &Simulator{
		routes:     routes,
		sink:       sink,
		metrics:    m,
		tick:       cfg.Tick,
		dwell:      cfg.Dwell,
		vehicles:   make(map[string]*simVehicle),
		multiplier: cfg.SpeedMultiplier,
	}
	if m != nil {
		m.SetSpeedMultiplier(s.multiplier)
		m.SetRunning(false)
	}
	return s
}

// AddVehicle places a vehicle on its route at StartIndex and publishes its
// initial position.
func (s *Simulator) AddVehicle(vc VehicleConfig) (VehicleStatus, error) {
	route, ok := s.routes.GetRoute(vc.RouteID)
	if !ok {
		return VehicleStatus{}, fmt.Errorf("%w: %s", ErrUnknownRoute, vc.RouteID)
	}
	path := route.Polyline()
	if len(path) < 2 {
		return VehicleStatus{}, fmt.Errorf("%w: %s", ErrRouteTooShort, vc.RouteID)
	}

	v := &simVehicle{
		id:        vc.ID,
		routeID:   route.ID,
		path:      path,
		index:     clamp(vc.StartIndex, 0, len(path)-1),
		dir:       vc.Direction,
		state:     Moving,
		speedKmph: vc.SpeedKmph,
	}
	if v.dir != Reverse {
		v.dir = Forward
	}
	if v.speedKmph <= 0 {
		v.speedKmph = DefaultSpeedKmph
	}
	v.pos = path[v.index]
	if v.atTerminus() {
		v.flip()
	}
	v.heading = geo.BearingDegrees(v.pos, path[v.target()])

	s.mu.Lock()
	if _, exists := s.vehicles[v.id]; exists {
		s.mu.Unlock()
		return VehicleStatus{}, fmt.Errorf("%w: %s", ErrDuplicate, v.id)
	}
	s.vehicles[v.id] = v
	s.order = append(s.order, v.id)
	upd := v.update(s.multiplier)
	st := statusOf(v, s.multiplier)
	s.mu.Unlock()

	s.sink.Apply(upd)
	logrus.WithFields(logrus.Fields{
		"vehicle_id": v.id,
		"route_id":   v.routeID,
		"direction":  v.dir,
	}).Info("simulator: vehicle added")
	return st, nil
}

// Start launches the tick loop. Calling Start while running is a no-op.
func (s *Simulator) Start(ctx context.Context) {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.parent = ctx
	s.startLocked()
}

// Stop pauses the tick loop and waits for it to exit. Vehicles keep their
// positions and resume from there on the next Start.
func (s *Simulator) Stop() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.stopLocked()
}

// Running reports whether the tick loop is active. A loop ended by its
// parent context counts as stopped.
func (s *Simulator) Running() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.running && !s.loopExited()
}

// SetSpeedMultiplier changes the speed multiplier. A running loop is
// restarted so the new value applies from the next tick.
func (s *Simulator) SetSpeedMultiplier(m float64) error {
	if m < MinSpeedMultiplier || m > MaxSpeedMultiplier {
		return ErrMultiplierRange
	}

	s.ctl.Lock()
	defer s.ctl.Unlock()

	wasRunning := s.running
	s.stopLocked()

	s.mu.Lock()
	s.multiplier = m
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SetSpeedMultiplier(m)
	}

	if wasRunning {
		s.startLocked()
	}
	logrus.WithField("speed_multiplier", m).Info("simulator: speed multiplier changed")
	return nil
}

// Status returns the control state and every simulated vehicle.
func (s *Simulator) Status() Status {
	running := s.Running()

	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:         running,
		SpeedMultiplier: s.multiplier,
		TickMs:          s.tick.Milliseconds(),
		DwellMs:         s.dwell.Milliseconds(),
		Vehicles:        make([]VehicleStatus, 0, len(s.order)),
	}
	for _, id := range s.order {
		st.Vehicles = append(st.Vehicles, statusOf(s.vehicles[id], s.multiplier))
	}
	return st
}

// Tick advances every vehicle by one interval and pushes changed positions
// to the sink.
func (s *Simulator) Tick(now time.Time) {
	start := time.Now()

	s.mu.Lock()
	var updates []models.TelemetryUpdate
	for _, id := range s.order {
		v := s.vehicles[id]
		if v.step(now, s.tick, s.dwell, s.multiplier) {
			updates = append(updates, v.update(s.multiplier))
		}
	}
	s.mu.Unlock()

	for _, upd := range updates {
		s.sink.Apply(upd)
	}
	if s.metrics != nil {
		s.metrics.ObserveTick(time.Since(start))
	}
}

func (s *Simulator) startLocked() {
	if s.running {
		if !s.loopExited() {
			return
		}
		s.cancel()
		s.wg.Wait()
		s.running = false
	}
	parent := s.parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.running = true
	if s.metrics != nil {
		s.metrics.SetRunning(true)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		s.loop(ctx)
		if parent.Err() != nil {
			if s.metrics != nil {
				s.metrics.SetRunning(false)
			}
			logrus.Info("simulator: loop ended with its context")
		}
	}()
	logrus.WithField("tick", s.tick).Info("simulator: started")
}

func (s *Simulator) stopLocked() {
	if !s.running {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.running = false
	if s.metrics != nil {
		s.metrics.SetRunning(false)
	}
	logrus.Info("simulator: stopped")
}

func (s *Simulator) loopExited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Simulator) loop(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

func statusOf(v *simVehicle, multiplier float64) VehicleStatus {
	speed := v.speedKmph * multiplier
	if v.state == Dwelling {
		speed = 0
	}
	return VehicleStatus{
		ID:        v.id,
		RouteID:   v.routeID,
		State:     v.state,
		Direction: v.dir,
		Index:     v.index,
		Lat:       v.pos.Lat,
		Lon:       v.pos.Lon,
		SpeedKmph: speed,
		Heading:   v.heading,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
