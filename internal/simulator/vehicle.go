package simulator

import (
	"time"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
)

// Direction of travel along the polyline.
type Direction string

const (
	Forward Direction = "forward"
	Reverse Direction = "reverse"
)

// State of a simulated vehicle.
type State string

const (
	Moving   State = "moving"
	Dwelling State = "dwelling"
)

// SnapKm is the distance at which a vehicle snaps onto its next waypoint.
const SnapKm = 0.01

// simVehicle is one vehicle's FSM. index is the last waypoint reached.
type simVehicle struct {
	id         string
	routeID    string
	path       []geo.Point
	pos        geo.Point
	index      int
	dir        Direction
	state      State
	speedKmph  float64
	heading    float64
	dwellUntil time.Time
}

func (v *simVehicle) target() int {
	if v.dir == Forward {
		return v.index + 1
	}
	return v.index - 1
}

func (v *simVehicle) atTerminus() bool {
	return (v.dir == Forward && v.index >= len(v.path)-1) ||
		(v.dir == Reverse && v.index <= 0)
}

func (v *simVehicle) flip() {
	if v.dir == Forward {
		v.dir = Reverse
	} else {
		v.dir = Forward
	}
}

// step advances the FSM by one tick of length interval at the given
// multiplier and reports whether anything changed.
func (v *simVehicle) step(now time.Time, interval, dwell time.Duration, multiplier float64) bool {
	if v.state == Dwelling {
		if now.Before(v.dwellUntil) {
			return false
		}
		v.state = Moving
	}

	// a vehicle parked on a terminus turns around before moving
	if v.atTerminus() {
		v.flip()
	}

	next := v.path[v.target()]
	v.heading = geo.BearingDegrees(v.pos, next)

	stepKm := v.speedKmph * multiplier * interval.Hours()
	remaining := geo.DistanceKm(v.pos, next)

	if remaining <= stepKm || remaining < SnapKm {
		v.pos = next
		v.index = v.target()
		if v.atTerminus() {
			v.flip()
		}
		v.state = Dwelling
		v.dwellUntil = now.Add(time.Duration(float64(dwell) / multiplier))
		return true
	}

	v.pos = geo.Interpolate(v.pos, next, stepKm/remaining)
	return true
}

func (v *simVehicle) update(multiplier float64) models.TelemetryUpdate {
	speed, status := v.speedKmph*multiplier, models.StatusMoving
	if v.state == Dwelling {
		speed, status = 0, models.StatusStopped
	}
	return models.TelemetryUpdate{
		VehicleID: v.id,
		Lat:       models.Float(v.pos.Lat),
		Lon:       models.Float(v.pos.Lon),
		SpeedKmph: models.Float(speed),
		Heading:   models.Float(v.heading),
		Status:    models.String(status),
		RouteID:   models.String(v.routeID),
		Simulated: true,
		Source:    "simulator",
	}
}
