package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
	"transit_tracker/internal/registry"
	"transit_tracker/internal/vehicles"
)

const kmPerDegree = 111.19492664455873

func newService(fallback map[string]string) (*Service, *registry.Registry, *vehicles.Store) {
	reg := registry.New()
	store := vehicles.NewStore()
	return NewService(reg, store, vehicles.NewResolver(store, fallback)), reg, store
}

func addR1(reg *registry.Registry) {
	reg.AddRoute(models.Route{ID: "R1", Name: "Line 1", Color: "#ff0000", Stops: []models.Stop{
		{ID: "S1", Name: "West", Lat: 0, Lon: 0, Seq: 0},
		{ID: "S2", Name: "East", Lat: 0, Lon: 1, Seq: 1},
	}})
}

func track(store *vehicles.Store, id string, lat, lon, speed float64, heading *float64, route string) {
	upd := models.TelemetryUpdate{
		VehicleID: id,
		Lat:       models.Float(lat),
		Lon:       models.Float(lon),
		SpeedKmph: models.Float(speed),
		Heading:   heading,
	}
	if route != "" {
		upd.RouteID = models.String(route)
	}
	store.ApplyTelemetry(upd)
}

func TestStopDetailComingVehicle(t *testing.T) {
	svc, reg, store := newService(map[string]string{"V1": "R1"})
	addR1(reg)
	track(store, "V1", 0, 0.0005, 20, models.Float(90), "")

	detail, err := svc.StopDetail("S2", "")
	require.NoError(t, err)
	assert.Equal(t, "R1", detail.RouteID)
	assert.Equal(t, "Line 1", detail.RouteName)
	assert.Equal(t, "#ff0000", detail.Color)

	require.Len(t, detail.Buses, 1)
	bus := detail.Buses[0]
	assert.Equal(t, "V1", bus.VehicleID)
	assert.Equal(t, "coming", bus.Status)
	assert.GreaterOrEqual(t, bus.EtaToStop, 1)
	assert.Nil(t, bus.EtaToDest)
}

func TestStopDetailOrdering(t *testing.T) {
	svc, reg, store := newService(nil)
	addR1(reg)

	west := func(km float64) float64 { return 1 - km/kmPerDegree }
	track(store, "a-gone", 0, 1+2/kmPerDegree, 60, models.Float(90), "R1")
	track(store, "b-12", 0, west(12), 60, models.Float(90), "R1")
	track(store, "c-3", 0, west(3), 60, models.Float(90), "R1")
	track(store, "d-7", 0, west(7), 60, models.Float(90), "R1")
	track(store, "other-route", 0, west(1), 60, models.Float(90), "R2")

	detail, err := svc.StopDetail("S2", "")
	require.NoError(t, err)

	var ids []string
	var etas []int
	for _, b := range detail.Buses {
		ids = append(ids, b.VehicleID)
		etas = append(etas, b.EtaToStop)
	}
	assert.Equal(t, []string{"c-3", "d-7", "b-12", "a-gone"}, ids)
	assert.Equal(t, []int{3, 7, 12}, etas[:3])
	assert.Equal(t, "gone", detail.Buses[3].Status)
}

func TestStopDetailDestination(t *testing.T) {
	svc, reg, store := newService(nil)
	addR1(reg)
	reg.AddRoute(models.Route{ID: "R2", Stops: []models.Stop{{ID: "X1", Lat: 5, Lon: 5}}})
	track(store, "V1", 0, 0.5, 60, nil, "R1")

	detail, err := svc.StopDetail("S1", "S2")
	require.NoError(t, err)
	require.Len(t, detail.Buses, 1)
	require.NotNil(t, detail.Buses[0].EtaToDest)
	assert.Equal(t, 56, *detail.Buses[0].EtaToDest)

	detail, err = svc.StopDetail("S1", "X1")
	require.NoError(t, err)
	assert.Nil(t, detail.Buses[0].EtaToDest, "destination on another route is ignored")
}

func TestStopDetailUnknownStop(t *testing.T) {
	svc, reg, _ := newService(nil)
	addR1(reg)

	_, err := svc.StopDetail("S404", "")
	assert.ErrorIs(t, err, ErrStopNotFound)
}

func TestStopDetailNoVehicles(t *testing.T) {
	svc, reg, _ := newService(nil)
	addR1(reg)

	detail, err := svc.StopDetail("S1", "")
	require.NoError(t, err)
	assert.NotNil(t, detail.Buses)
	assert.Empty(t, detail.Buses)
}

func TestNearestStop(t *testing.T) {
	svc, reg, _ := newService(nil)

	_, err := svc.NearestStop(geo.Point{}, 0)
	assert.ErrorIs(t, err, ErrNoStops)

	addR1(reg)

	res, err := svc.NearestStop(geo.Point{Lat: 0, Lon: 0.9}, 0)
	require.NoError(t, err)
	assert.Equal(t, "S2", res.Stop.ID)
	assert.Equal(t, "R1", res.RouteID)
	assert.InDelta(t, 11.12, res.DistanceKm, 0.01)
	assert.Equal(t, 11119, res.DistanceM)
	assert.Equal(t, 133, res.WalkMinutes)

	res, err = svc.NearestStop(geo.Point{Lat: 0, Lon: 0.00001}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.WalkMinutes, "walk time floors at one minute")

	_, err = svc.NearestStop(geo.Point{Lat: 0, Lon: 0.5}, 1)
	assert.ErrorIs(t, err, ErrNoStopInRadius)
}

func TestEnvelopes(t *testing.T) {
	svc, _, store := newService(map[string]string{"B": "R1"})
	track(store, "B", 1, 1, 0, nil, "")
	track(store, "A", 1, 1, 0, nil, "R9")

	envs := svc.Envelopes()
	require.Len(t, envs, 2)
	assert.Equal(t, "A", envs[0].VehicleID)
	assert.Equal(t, "R9", envs[0].Route)
	assert.Equal(t, "R1", envs[1].Route)
	assert.Equal(t, "telemetry", envs[1].Type)
}

func TestPassThroughReads(t *testing.T) {
	svc, reg, store := newService(nil)
	addR1(reg)
	track(store, "V2", 0, 0, 0, nil, "")
	track(store, "V1", 0, 0, 0, nil, "")

	assert.Equal(t, []string{"V1", "V2"}, svc.ListVehicleIDs())
	assert.Len(t, svc.Snapshot(), 2)
	assert.Len(t, svc.ListRoutes(), 1)
	assert.Len(t, svc.ListStops(), 2)
	assert.Len(t, svc.SearchStops("eas"), 1)

	_, err := svc.Route("R1")
	assert.NoError(t, err)
	_, err = svc.Route("R2")
	assert.ErrorIs(t, err, ErrRouteNotFound)

	_, err = svc.Vehicle("V9")
	assert.ErrorIs(t, err, ErrVehicleUnknown)
}
