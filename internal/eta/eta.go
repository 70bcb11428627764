// Package eta estimates arrival times and classifies whether a vehicle is
// heading toward a stop.
package eta

import (
	"math"
	"sort"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
)

const (
	// DefaultFallbackKmph is used when a vehicle reports no usable speed.
	DefaultFallbackKmph = 10.0
	// DefaultFloorKmph bounds the effective speed from below.
	DefaultFloorKmph = 8.0
	// ArrivedKm is the radius inside which a vehicle always counts as approaching.
	ArrivedKm = 0.05
	// MaxApproachAngle is the widest heading offset still counted as approaching.
	MaxApproachAngle = 90.0
)

// Stop-detail classifications.
const (
	Coming = "coming"
	Gone   = "gone"
)

// Estimator computes straight-line ETAs.
type Estimator struct {
	FallbackKmph float64
	FloorKmph    float64
}

func New() Estimator {
	return Estimator{FallbackKmph: DefaultFallbackKmph, FloorKmph: DefaultFloorKmph}
}

// EffectiveSpeed is max(speed or fallback, floor).
func (e Estimator) EffectiveSpeed(speedKmph float64) float64 {
	speed := speedKmph
	if speed <= 0 || math.IsNaN(speed) {
		speed = e.FallbackKmph
	}
	return math.Max(speed, e.FloorKmph)
}

// Minutes returns the rounded travel time for distKm at speedKmph, never below 1.
func (e Estimator) Minutes(distKm, speedKmph float64) int {
	hours := distKm / e.EffectiveSpeed(speedKmph)
	m := int(math.Round(hours * 60))
	if m < 1 {
		return 1
	}
	return m
}

// EtaMinutes estimates minutes until v reaches stop.
func (e Estimator) EtaMinutes(v models.Vehicle, stop models.Stop) int {
	return e.Minutes(geo.DistanceKm(v.Point(), stop.Point()), v.SpeedKmph)
}

// IsApproaching reports whether v is heading toward stop. Vehicles inside
// ArrivedKm always approach; without a heading the answer is true.
func IsApproaching(v models.Vehicle, stop models.Stop) bool {
	if geo.DistanceKm(v.Point(), stop.Point()) < ArrivedKm {
		return true
	}
	if v.Heading == nil {
		return true
	}
	brg := geo.BearingDegrees(v.Point(), stop.Point())
	return geo.AngleDiff(brg, *v.Heading) <= MaxApproachAngle
}

// Classify returns Coming or Gone.
func Classify(v models.Vehicle, stop models.Stop) string {
	if IsApproaching(v, stop) {
		return Coming
	}
	return Gone
}

// Arrival is one vehicle's standing relative to a stop.
type Arrival struct {
	Status     string
	EtaMinutes int
}

// SortArrivals orders items with Coming first, each group by ascending ETA.
// Equal keys keep their input order.
func SortArrivals[T any](items []T, key func(T) Arrival) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := key(items[i]), key(items[j])
		if a.Status != b.Status {
			return a.Status == Coming
		}
		return a.EtaMinutes < b.EtaMinutes
	})
}
