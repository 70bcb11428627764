// Package ingest applies inbound telemetry to the vehicle store and forwards
// it to observers.
package ingest

import (
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"transit_tracker/internal/hub"
	"transit_tracker/internal/models"
	"transit_tracker/internal/vehicles"
)

// Update sources.
const (
	SourceBroker    = "broker"
	SourceHTTP      = "http"
	SourceSimulator = "simulator"
)

// Broadcaster receives every accepted update.
type Broadcaster interface {
	Publish(env hub.Envelope)
}

// Metrics is the subset of the collector the adapter reports to.
type Metrics interface {
	Ingested(source string)
	Dropped(reason string)
	SetVehicles(n int)
}

type Adapter struct {
	store       *vehicles.Store
	resolver    *vehicles.Resolver
	broadcaster Broadcaster
	metrics     Metrics
}

func NewAdapter(store *vehicles.Store, resolver *vehicles.Resolver, b Broadcaster, m Metrics) *Adapter {
	return &Adapter{store: store, resolver: resolver, broadcaster: b, metrics: m}
}

// Apply merges upd into the store, resolves the vehicle's route and
// broadcasts the full record. Real and simulated updates share this path.
func (a *Adapter) Apply(upd models.TelemetryUpdate) models.Vehicle {
	v := a.store.ApplyTelemetry(upd)
	route := a.resolver.RouteForVehicle(v.VehicleID)

	if a.broadcaster != nil {
		a.broadcaster.Publish(hub.NewEnvelope(v, route))
	}
	if a.metrics != nil {
		source := upd.Source
		if source == "" {
			source = SourceBroker
		}
		a.metrics.Ingested(source)
		a.metrics.SetVehicles(a.store.Len())
	}
	return v
}

// Decode parses one payload from source. Malformed input is counted as
// dropped and the error returned.
func (a *Adapter) Decode(data []byte, source string) (models.TelemetryUpdate, error) {
	upd, err := ParsePayload(data)
	if err != nil {
		if a.metrics != nil {
			a.metrics.Dropped("malformed")
		}
		return models.TelemetryUpdate{}, err
	}
	upd.Source = source
	return upd, nil
}

// HandleMessage parses and applies one broker message. Malformed input is
// logged and dropped; the returned error is informational only.
func (a *Adapter) HandleMessage(subject string, data []byte) error {
	upd, err := a.Decode(data, SourceBroker)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"subject": subject,
			"payload": truncate(string(data), 256),
		}).Warn("ingest: dropping malformed telemetry")
		return err
	}
	v := a.Apply(upd)
	logrus.WithFields(logrus.Fields{
		"subject":    subject,
		"vehicle_id": v.VehicleID,
		"lat":        v.Lat,
		"lon":        v.Lon,
	}).Debug("ingest: telemetry applied")
	return nil
}

// Subscribe attaches the adapter to subject (wildcards allowed) on nc.
func (a *Adapter) Subscribe(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		_ = a.HandleMessage(m.Subject, m.Data)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithField("subject", subject).Info("ingest: subscribed to telemetry")
	return sub, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
