package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
)

// ErrMalformed marks telemetry that cannot be applied.
var ErrMalformed = errors.New("malformed telemetry")

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexString accepts a JSON string or number, as some trackers send numeric ids.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("vehicle_id must be a string or number")
	}
	*s = flexString(n.String())
	return nil
}

type telemetryPayload struct {
	VehicleID  flexString `json:"vehicle_id"`
	Lat        *flexFloat `json:"lat"`
	Latitude   *flexFloat `json:"latitude"`
	Lon        *flexFloat `json:"lon"`
	Longitude  *flexFloat `json:"longitude"`
	SpeedKmph  *flexFloat `json:"speed_kmph"`
	Heading    *flexFloat `json:"heading"`
	Status     *string    `json:"status"`
	RouteID    *string    `json:"routeId"`
	RouteIDAlt *string    `json:"route_id"`
}

// ParsePayload decodes one inbound telemetry message. A vehicle_id and a
// valid coordinate are required; lat/latitude and lon/longitude are
// interchangeable, as are routeId/route_id.
func ParsePayload(data []byte) (models.TelemetryUpdate, error) {
	var p telemetryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.TelemetryUpdate{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	id := strings.TrimSpace(string(p.VehicleID))
	if id == "" {
		return models.TelemetryUpdate{}, fmt.Errorf("%w: vehicle_id required", ErrMalformed)
	}

	lat, lon := first(p.Lat, p.Latitude), first(p.Lon, p.Longitude)
	if lat == nil || lon == nil {
		return models.TelemetryUpdate{}, fmt.Errorf("%w: lat and lon required", ErrMalformed)
	}
	if err := geo.ValidatePoint(geo.Point{Lat: *lat, Lon: *lon}, ""); err != nil {
		return models.TelemetryUpdate{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	upd := models.TelemetryUpdate{VehicleID: id, Lat: lat, Lon: lon}

	if p.SpeedKmph != nil {
		speed := float64(*p.SpeedKmph)
		if math.IsNaN(speed) || math.IsInf(speed, 0) {
			return models.TelemetryUpdate{}, fmt.Errorf("%w: speed_kmph must be finite", ErrMalformed)
		}
		upd.SpeedKmph = models.Float(math.Max(speed, 0))
	}
	if p.Heading != nil {
		h := float64(*p.Heading)
		if math.IsNaN(h) || math.IsInf(h, 0) {
			return models.TelemetryUpdate{}, fmt.Errorf("%w: heading must be finite", ErrMalformed)
		}
		upd.Heading = models.Float(geo.NormalizeBearing(h))
	}
	if p.Status != nil && *p.Status != "" {
		upd.Status = p.Status
	}
	if r := firstString(p.RouteID, p.RouteIDAlt); r != nil {
		upd.RouteID = r
	}
	return upd, nil
}

func first(vals ...*flexFloat) *float64 {
	for _, v := range vals {
		if v != nil {
			return models.Float(float64(*v))
		}
	}
	return nil
}

func firstString(vals ...*string) *string {
	for _, v := range vals {
		if v != nil && strings.TrimSpace(*v) != "" {
			return models.String(strings.TrimSpace(*v))
		}
	}
	return nil
}
