// Package broker owns the NATS connection used for telemetry ingress and
// the publisher used by the demo feeder.
package broker

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// DefaultSubject is the wildcard subscription for vehicle telemetry.
const DefaultSubject = "vehicles.*.telemetry"

// Metrics is the subset of the collector the connection reports to.
type Metrics interface {
	SetConnected(connected bool)
}

// Connect dials url and keeps retrying on a fixed backoff of reconnectWait,
// forever, including when the server is not up yet.
func Connect(url, name string, reconnectWait time.Duration, m Metrics) (*nats.Conn, error) {
	log := logrus.WithField("url", url)
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.ReconnectJitter(0, 0),
		nats.ConnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			log.Info("broker: connected")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.SetConnected(false)
			}
			log.WithError(err).Warn("broker: disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			log.Info("broker: reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Info("broker: connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	if nc.IsConnected() && m != nil {
		m.SetConnected(true)
	}
	return nc, nil
}

// Close drains pending messages and closes nc.
func Close(nc *nats.Conn) {
	if nc == nil {
		return
	}
	if err := nc.Drain(); err != nil {
		logrus.WithError(err).Warn("broker: drain failed")
	}
	nc.Close()
}

// TelemetrySubject returns the per-vehicle subject, vehicles.<id>.telemetry.
func TelemetrySubject(vehicleID string) string {
	return fmt.Sprintf("vehicles.%s.telemetry", subjectToken(vehicleID))
}

// Publisher sends telemetry messages for the feeder.
type Publisher struct {
	nc *nats.Conn
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// TelemetryMessage is the JSON shape the ingest adapter accepts.
type TelemetryMessage struct {
	VehicleID string   `json:"vehicle_id"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	SpeedKmph float64  `json:"speed_kmph"`
	Heading   *float64 `json:"heading,omitempty"`
	Status    string   `json:"status,omitempty"`
	RouteID   string   `json:"routeId,omitempty"`
}

func (p *Publisher) PublishTelemetry(msg TelemetryMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.nc.Publish(TelemetrySubject(msg.VehicleID), b)
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS tokens cannot contain spaces, '>', '*' or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
