package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit_tracker/internal/hub"
	"transit_tracker/internal/models"
	"transit_tracker/internal/vehicles"
)

type recordingBroadcaster struct {
	sent []hub.Envelope
}

func (r *recordingBroadcaster) Publish(env hub.Envelope) { r.sent = append(r.sent, env) }

type recordingMetrics struct {
	ingested map[string]int
	dropped  map[string]int
	vehicles int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ingested: map[string]int{}, dropped: map[string]int{}}
}

func (m *recordingMetrics) Ingested(source string) { m.ingested[source]++ }
func (m *recordingMetrics) Dropped(reason string)  { m.dropped[reason]++ }
func (m *recordingMetrics) SetVehicles(n int)      { m.vehicles = n }

func newAdapter() (*Adapter, *vehicles.Store, *recordingBroadcaster, *recordingMetrics) {
	store := vehicles.NewStore()
	resolver := vehicles.NewResolver(store, map[string]string{"BUS-101": "R1"})
	b := &recordingBroadcaster{}
	m := newRecordingMetrics()
	return NewAdapter(store, resolver, b, m), store, b, m
}

func TestHandleMessageApplies(t *testing.T) {
	a, store, b, m := newAdapter()

	err := a.HandleMessage("vehicles.BUS-101.telemetry", []byte(`{"vehicle_id":"BUS-101","lat":23.02,"lon":72.57,"speed_kmph":20}`))
	require.NoError(t, err)

	v, ok := store.Get("BUS-101")
	require.True(t, ok)
	assert.Equal(t, 20.0, v.SpeedKmph)
	assert.Equal(t, "moving", v.Status)

	require.Len(t, b.sent, 1)
	assert.Equal(t, hub.TypeTelemetry, b.sent[0].Type)
	assert.Equal(t, "R1", b.sent[0].Route, "route resolved through fallback table")
	assert.Equal(t, 1, m.ingested[SourceBroker])
	assert.Equal(t, 1, m.vehicles)
}

func TestHandleMessageDropsMalformed(t *testing.T) {
	a, store, b, m := newAdapter()

	err := a.HandleMessage("vehicles.x.telemetry", []byte(`{"lat":1`))
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Zero(t, store.Len())
	assert.Empty(t, b.sent)
	assert.Equal(t, 1, m.dropped["malformed"])
}

func TestApplyRedeliveryIsHarmless(t *testing.T) {
	a, store, b, _ := newAdapter()
	payload := []byte(`{"vehicle_id":"V1","lat":1,"lon":2,"routeId":"R2"}`)

	require.NoError(t, a.HandleMessage("s", payload))
	first, _ := store.Get("V1")
	require.NoError(t, a.HandleMessage("s", payload))
	second, _ := store.Get("V1")

	assert.Equal(t, first.Lat, second.Lat)
	assert.Equal(t, first.RouteID, second.RouteID)
	assert.Equal(t, 1, store.Len())
	assert.Len(t, b.sent, 2)
}

func TestApplySimulatedSource(t *testing.T) {
	a, _, b, m := newAdapter()

	v := a.Apply(models.TelemetryUpdate{
		VehicleID: "SBUS-001",
		Lat:       models.Float(1),
		Lon:       models.Float(1),
		RouteID:   models.String("R1"),
		Simulated: true,
		Source:    SourceSimulator,
	})
	assert.True(t, v.Simulated)
	assert.True(t, b.sent[0].Simulated)
	assert.Equal(t, 1, m.ingested[SourceSimulator])
}

func TestDecodeTagsSourceAndCountsMalformed(t *testing.T) {
	a, _, _, m := newAdapter()

	upd, err := a.Decode([]byte(`{"vehicle_id":"V1","lat":1,"lon":2}`), SourceHTTP)
	require.NoError(t, err)
	assert.Equal(t, SourceHTTP, upd.Source)
	assert.Equal(t, 0, m.dropped["malformed"])

	_, err = a.Decode([]byte(`{"vehicle_id":"V1"}`), SourceHTTP)
	require.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, 1, m.dropped["malformed"])
}
