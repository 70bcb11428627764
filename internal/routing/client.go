// Package routing asks an OSRM-compatible service for road legs and falls
// back to a straight line when the service is unavailable.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"transit_tracker/internal/geo"
)

// DefaultBaseURL is the public OSRM demo server.
const DefaultBaseURL = "https://router.project-osrm.org"

// Profiles and their straight-line fallback speeds in m/s.
var fallbackSpeeds = map[string]float64{
	"walking": 1.4,
	"cycling": 4.0,
	"driving": 11.0,
}

// DefaultProfile is used when the caller gives none.
const DefaultProfile = "walking"

var errNoRoute = errors.New("no route found")

// Metrics is the subset of the collector the client reports to.
type Metrics interface {
	RoutingResult(result string)
}

// Leg is a routed (or estimated) trip between two points.
type Leg struct {
	Profile   string          `json:"profile"`
	DistanceM float64         `json:"distance"`
	DurationS float64         `json:"duration"`
	Geometry  json.RawMessage `json:"geometry"`
	Fallback  bool            `json:"fallback"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    Metrics
}

func NewClient(baseURL string, timeout time.Duration, m Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
	}
}

// ValidProfile reports whether profile is supported.
func ValidProfile(profile string) bool {
	_, ok := fallbackSpeeds[profile]
	return ok
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

// Route returns the road leg from → to. It never fails: any upstream problem
// yields the straight-line estimate with Fallback set.
func (c *Client) Route(ctx context.Context, from, to geo.Point, profile string) Leg {
	if !ValidProfile(profile) {
		profile = DefaultProfile
	}
	leg, err := c.fetch(ctx, from, to, profile)
	if err != nil {
		logrus.WithError(err).WithField("profile", profile).Warn("routing: upstream failed, using straight line")
		c.record("fallback")
		return Fallback(from, to, profile)
	}
	c.record("ok")
	return leg
}

func (c *Client) fetch(ctx context.Context, from, to geo.Point, profile string) (Leg, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, profile, from.Lon, from.Lat, to.Lon, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Leg{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Leg{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Leg{}, fmt.Errorf("osrm status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Leg{}, fmt.Errorf("decode osrm response: %w", err)
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return Leg{}, fmt.Errorf("%w (code %q)", errNoRoute, out.Code)
	}

	r := out.Routes[0]
	path, err := geo.PathFromGeoJSON(r.Geometry)
	if err != nil {
		return Leg{}, err
	}
	geometry, err := geo.PathToGeoJSON(path)
	if err != nil {
		return Leg{}, err
	}
	return Leg{Profile: profile, DistanceM: r.Distance, DurationS: r.Duration, Geometry: geometry}, nil
}

// Fallback estimates a straight-line leg at the profile's typical speed.
func Fallback(from, to geo.Point, profile string) Leg {
	speed, ok := fallbackSpeeds[profile]
	if !ok {
		profile, speed = DefaultProfile, fallbackSpeeds[DefaultProfile]
	}
	dist := geo.DistanceKm(from, to) * 1000

	geometry, err := geo.PathToGeoJSON([]geo.Point{from, to})
	if err != nil {
		geometry = nil
	}
	return Leg{
		Profile:   profile,
		DistanceM: dist,
		DurationS: dist / speed,
		Geometry:  geometry,
		Fallback:  true,
	}
}

func (c *Client) record(result string) {
	if c.metrics != nil {
		c.metrics.RoutingResult(result)
	}
}
