package vehicles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit_tracker/internal/models"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestApplyTelemetryMerge(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(fixedClock(t0)))

	v := s.ApplyTelemetry(models.TelemetryUpdate{
		VehicleID: "BUS-001",
		Lat:       models.Float(23.02),
		Lon:       models.Float(72.57),
		SpeedKmph: models.Float(20),
		Heading:   models.Float(90),
		RouteID:   models.String("R1"),
	})
	assert.Equal(t, "moving", v.Status)
	assert.True(t, v.IsMoving)
	assert.Equal(t, t0, v.LastSeen)

	s.now = fixedClock(t0.Add(time.Minute))
	v = s.ApplyTelemetry(models.TelemetryUpdate{VehicleID: "BUS-001", SpeedKmph: models.Float(0)})

	assert.Equal(t, 23.02, v.Lat, "absent fields keep prior values")
	assert.Equal(t, "R1", v.RouteID)
	require.NotNil(t, v.Heading)
	assert.Equal(t, 90.0, *v.Heading)
	assert.Equal(t, "stopped", v.Status)
	assert.False(t, v.IsMoving)
	assert.Equal(t, t0.Add(time.Minute), v.LastSeen)
}

func TestApplyTelemetryExplicitStatus(t *testing.T) {
	s := NewStore()
	v := s.ApplyTelemetry(models.TelemetryUpdate{
		VehicleID: "V1",
		SpeedKmph: models.Float(30),
		Status:    models.String("stopped"),
	})
	assert.Equal(t, "stopped", v.Status)
	assert.False(t, v.IsMoving)
}

func TestApplyTelemetryIdempotent(t *testing.T) {
	s := NewStore(WithClock(fixedClock(time.Unix(0, 0))))
	upd := models.TelemetryUpdate{VehicleID: "V1", Lat: models.Float(1), Lon: models.Float(2)}

	first := s.ApplyTelemetry(upd)
	second := s.ApplyTelemetry(upd)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.Len())
}

func TestStoreReads(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.ApplyTelemetry(models.TelemetryUpdate{VehicleID: "b", Heading: models.Float(10)})
	s.ApplyTelemetry(models.TelemetryUpdate{VehicleID: "a"})

	assert.Equal(t, []string{"a", "b"}, s.IDs())
	all := s.All()
	require.Len(t, all, 2)

	// snapshot heading is a copy
	*all["b"].Heading = 200
	v, _ := s.Get("b")
	assert.Equal(t, 10.0, *v.Heading)
}

func TestRouteForVehicle(t *testing.T) {
	s := NewStore()
	r := NewResolver(s, map[string]string{"V1": "R1", "V2": "R1"})

	s.ApplyTelemetry(models.TelemetryUpdate{VehicleID: "V1", RouteID: models.String("R2")})

	assert.Equal(t, "R2", r.RouteForVehicle("V1"), "telemetry route wins")
	assert.Equal(t, "R1", r.RouteForVehicle("V2"), "fallback without telemetry")
	assert.Empty(t, r.RouteForVehicle("V3"))

	r.SetMapping("V1", "R5")
	assert.Equal(t, "R2", r.RouteForVehicle("V1"), "mapping does not alter telemetry")
	v, _ := s.Get("V1")
	assert.Equal(t, "R2", v.RouteID)

	r.SetMapping("V3", "R3")
	assert.Equal(t, "R3", r.RouteForVehicle("V3"))
	assert.Equal(t, map[string]string{"V1": "R5", "V2": "R1", "V3": "R3"}, r.Mappings())
}
