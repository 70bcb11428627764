package main

import (
	"context"
	"flag"
	"math"
	"math/rand/v2"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"transit_tracker/internal/broker"
	"transit_tracker/internal/geo"
)

type feedVehicle struct {
	id      string
	pos     geo.Point
	heading float64
	speed   float64
}

// step moves the vehicle along its heading for interval and jitters the
// heading and speed a little.
func (v *feedVehicle) step(interval time.Duration) {
	v.heading = geo.NormalizeBearing(v.heading + rand.Float64()*30 - 15)
	v.speed = min(45, max(0, v.speed+rand.Float64()*8-4))

	v.pos = destination(v.pos, v.heading, v.speed*interval.Hours())
}

// destination projects p by km along bearing on a flat local approximation.
func destination(p geo.Point, bearing, km float64) geo.Point {
	kmPerDegree := geo.EarthRadiusKm * math.Pi / 180
	rad := bearing * math.Pi / 180
	dLat := km * math.Cos(rad) / kmPerDegree
	dLon := km * math.Sin(rad) / (kmPerDegree * math.Cos(p.Lat*math.Pi/180))
	return geo.Point{Lat: p.Lat + dLat, Lon: p.Lon + dLon}
}

func main() {
	url := flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
	ids := flag.String("vehicles", "BUS-001,BUS-101", "comma-separated vehicle ids")
	interval := flag.Duration("interval", 2*time.Second, "publish interval")
	lat := flag.Float64("lat", 23.0225, "starting latitude")
	lon := flag.Float64("lon", 72.5714, "starting longitude")
	route := flag.String("route", "", "route id to attach to every message (optional)")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	nc, err := broker.Connect(*url, "transit-feeder", 2*time.Second, nil)
	if err != nil {
		logrus.Fatalf("nats error: %v", err)
	}
	defer broker.Close(nc)
	pub := broker.NewPublisher(nc)

	var fleet []*feedVehicle
	for _, id := range strings.Split(*ids, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		fleet = append(fleet, &feedVehicle{
			id:      id,
			pos:     geo.Point{Lat: *lat + rand.Float64()*0.01, Lon: *lon + rand.Float64()*0.01},
			heading: rand.Float64() * 360,
			speed:   15 + rand.Float64()*15,
		})
	}
	if len(fleet) == 0 {
		logrus.Fatal("no vehicle ids given")
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logrus.Info("feeder stopped")
			return
		case <-ticker.C:
		}
		for _, v := range fleet {
			v.step(*interval)
			heading := v.heading
			err := pub.PublishTelemetry(broker.TelemetryMessage{
				VehicleID: v.id,
				Lat:       v.pos.Lat,
				Lon:       v.pos.Lon,
				SpeedKmph: v.speed,
				Heading:   &heading,
				RouteID:   *route,
			})
			if err != nil {
				logrus.WithError(err).WithField("vehicle_id", v.id).Warn("publish failed")
				continue
			}
			logrus.WithFields(logrus.Fields{
				"vehicle_id": v.id,
				"lat":        v.pos.Lat,
				"lon":        v.pos.Lon,
			}).Debug("telemetry published")
		}
	}
}
