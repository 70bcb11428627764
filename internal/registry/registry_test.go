package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
)

func sampleRoute(id string, stops ...models.Stop) models.Route {
	return models.Route{ID: id, Name: "Route " + id, Stops: stops}
}

func TestAddRouteAndList(t *testing.T) {
	r := New()
	r.AddRoute(sampleRoute("R1",
		models.Stop{ID: "S1", Name: "Lal Darwaja", Lat: 0, Lon: 0},
		models.Stop{ID: "S2", Name: "Income Tax", Lat: 0, Lon: 1, Seq: 1},
	))
	r.AddRoute(sampleRoute("R2", models.Stop{ID: "S3", Name: "Maninagar", Lat: 1, Lon: 1}))

	routes := r.ListRoutes()
	require.Len(t, routes, 2)
	assert.Equal(t, "R1", routes[0].ID)
	assert.Equal(t, "R2", routes[1].ID)

	stops := r.ListStops()
	require.Len(t, stops, 3)
	assert.Equal(t, "R1", stops[0].RouteID)
	assert.Equal(t, "R2", stops[2].RouteID)

	got, ok := r.GetRoute("R1")
	require.True(t, ok)
	assert.Empty(t, got.Stops[0].RouteID, "stored stops are not tagged")

	_, ok = r.GetRoute("nope")
	assert.False(t, ok)
}

func TestAddRouteReplace(t *testing.T) {
	r := New()
	r.AddRoute(sampleRoute("R1", models.Stop{ID: "S1", Lat: 0, Lon: 0}))
	r.AddRoute(sampleRoute("R2", models.Stop{ID: "S2", Lat: 1, Lon: 1}))
	r.AddRoute(sampleRoute("R1", models.Stop{ID: "S9", Lat: 2, Lon: 2}))

	routes := r.ListRoutes()
	require.Len(t, routes, 2)
	assert.Equal(t, "R1", routes[0].ID, "replacement keeps listing position")

	_, _, ok := r.FindStop("S1")
	assert.False(t, ok, "old stops are unindexed")
	stop, route, ok := r.FindStop("S9")
	require.True(t, ok)
	assert.Equal(t, "R1", route.ID)
	assert.Equal(t, "R1", stop.RouteID)
	assert.Equal(t, 2, r.StopCount())
}

func TestAddRouteNormalizesSequence(t *testing.T) {
	r := New()
	route := r.AddRoute(models.Route{ID: "R1", Stops: []models.Stop{
		{ID: "C", Seq: 7},
		{ID: "A", Seq: 2},
		{ID: "B", Seq: 2},
	}})

	assert.Equal(t, "R1", route.Name, "name defaults to id")
	ids := []string{route.Stops[0].ID, route.Stops[1].ID, route.Stops[2].ID}
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	for i, s := range route.Stops {
		assert.Equal(t, i, s.Seq)
	}
}

func TestReturnedRoutesAreCopies(t *testing.T) {
	r := New()
	r.AddRoute(sampleRoute("R1", models.Stop{ID: "S1", Name: "orig"}))

	got, _ := r.GetRoute("R1")
	got.Stops[0].Name = "mutated"

	again, _ := r.GetRoute("R1")
	assert.Equal(t, "orig", again.Stops[0].Name)
}

func TestFindNearestStop(t *testing.T) {
	t.Run("empty registry", func(t *testing.T) {
		_, ok := New().FindNearestStop(geo.Point{}, 0)
		assert.False(t, ok)
	})

	r := New()
	r.AddRoute(sampleRoute("R1",
		models.Stop{ID: "S1", Lat: 0, Lon: 0},
		models.Stop{ID: "S2", Lat: 0, Lon: 1, Seq: 1},
	))
	r.AddRoute(sampleRoute("R2", models.Stop{ID: "S3", Lat: 0, Lon: 1}))

	t.Run("closest wins", func(t *testing.T) {
		n, ok := r.FindNearestStop(geo.Point{Lat: 0, Lon: 0.1}, 0)
		require.True(t, ok)
		assert.Equal(t, "S1", n.Stop.ID)
		assert.Equal(t, "R1", n.RouteID)
		assert.InDelta(t, 11.12, n.DistanceKm, 0.01)
	})

	t.Run("tie goes to first in registry order", func(t *testing.T) {
		n, ok := r.FindNearestStop(geo.Point{Lat: 0, Lon: 1}, 0)
		require.True(t, ok)
		assert.Equal(t, "S2", n.Stop.ID)
	})

	t.Run("outside radius", func(t *testing.T) {
		_, ok := r.FindNearestStop(geo.Point{Lat: 10, Lon: 10}, 5)
		assert.False(t, ok)
	})
}

func TestSearchStops(t *testing.T) {
	r := New()
	var stops []models.Stop
	for i := 0; i < 15; i++ {
		stops = append(stops, models.Stop{ID: string(rune('a' + i)), Name: "Cross Road", Seq: i})
	}
	stops = append(stops, models.Stop{ID: "z", Name: "Navrangpura", Seq: 99})
	r.AddRoute(models.Route{ID: "R1", Stops: stops})

	assert.Len(t, r.SearchStops("cross", 0), DefaultSearchLimit)
	assert.Len(t, r.SearchStops("CROSS", 3), 3)

	found := r.SearchStops("navrang", 0)
	require.Len(t, found, 1)
	assert.Equal(t, "R1", found[0].RouteID)

	assert.Empty(t, r.SearchStops("  ", 0))
}

func TestAddedRouteIsImmediatelyQueryable(t *testing.T) {
	r := New()
	r.AddRoute(sampleRoute("R9", models.Stop{ID: "S90", Lat: 23.05, Lon: 72.55}))

	var ids []string
	for _, route := range r.ListRoutes() {
		ids = append(ids, route.ID)
	}
	assert.Contains(t, ids, "R9")

	n, ok := r.FindNearestStop(geo.Point{Lat: 23.0501, Lon: 72.5501}, 5)
	require.True(t, ok)
	assert.Equal(t, "S90", n.Stop.ID)
}

func TestReplacedRouteReturnsSharedStopToRemainingOwner(t *testing.T) {
	reg := New()
	reg.AddRoute(models.Route{ID: "A", Stops: []models.Stop{{ID: "S1", Lat: 1, Lon: 1}}})
	reg.AddRoute(models.Route{ID: "B", Stops: []models.Stop{{ID: "S1", Lat: 1, Lon: 1}}})

	_, route, ok := reg.FindStop("S1")
	require.True(t, ok)
	assert.Equal(t, "B", route.ID, "last write wins")

	reg.AddRoute(models.Route{ID: "B", Stops: []models.Stop{{ID: "S2", Lat: 2, Lon: 2}}})

	_, route, ok = reg.FindStop("S1")
	require.True(t, ok)
	assert.Equal(t, "A", route.ID)
	assert.Equal(t, 2, reg.StopCount())
}
