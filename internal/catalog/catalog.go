// Package catalog loads the static route network: routes, the fallback
// vehicle to route table and the simulated fleet.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"transit_tracker/internal/models"
	"transit_tracker/internal/registry"
	"transit_tracker/internal/simulator"
)

//go:embed default.yaml
var defaultCatalog []byte

type Simulation struct {
	Vehicles []simulator.VehicleConfig `yaml:"vehicles" validate:"dive"`
}

type Catalog struct {
	Routes        []models.Route    `yaml:"routes" validate:"dive"`
	VehicleRoutes map[string]string `yaml:"vehicle_routes"`
	Simulation    Simulation        `yaml:"simulation"`
}

// Load reads the catalog at path, or the embedded demo network when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field rules and that stop ids are unique across routes.
func (c *Catalog) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	owner := make(map[string]string)
	for _, r := range c.Routes {
		for _, s := range r.Stops {
			if prev, ok := owner[s.ID]; ok {
				return fmt.Errorf("invalid catalog: stop %s appears in routes %s and %s", s.ID, prev, r.ID)
			}
			owner[s.ID] = r.ID
		}
	}
	return nil
}

// Merge adds other's routes, mappings and simulated vehicles on top of c.
// Entries in other win on id clashes.
func (c *Catalog) Merge(other *Catalog) {
	if other == nil {
		return
	}
	index := make(map[string]int, len(c.Routes))
	for i, r := range c.Routes {
		index[r.ID] = i
	}
	for _, r := range other.Routes {
		if i, ok := index[r.ID]; ok {
			c.Routes[i] = r
			continue
		}
		index[r.ID] = len(c.Routes)
		c.Routes = append(c.Routes, r)
	}
	if c.VehicleRoutes == nil {
		c.VehicleRoutes = make(map[string]string)
	}
	for k, v := range other.VehicleRoutes {
		c.VehicleRoutes[k] = v
	}
	c.Simulation.Vehicles = append(c.Simulation.Vehicles, other.Simulation.Vehicles...)
}

// Install registers every route and returns how many were added.
// Mappings to routes the registry does not know are kept but logged.
func (c *Catalog) Install(reg *registry.Registry) int {
	for _, r := range c.Routes {
		reg.AddRoute(r)
	}
	for vehicleID, routeID := range c.VehicleRoutes {
		if _, ok := reg.GetRoute(routeID); !ok {
			logrus.WithFields(logrus.Fields{
				"vehicle_id": vehicleID,
				"route_id":   routeID,
			}).Warn("catalog: vehicle mapped to unknown route")
		}
	}
	logrus.WithFields(logrus.Fields{
		"routes": len(c.Routes),
		"stops":  reg.StopCount(),
	}).Info("catalog: routes installed")
	return len(c.Routes)
}
