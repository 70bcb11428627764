package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"transit_tracker/internal/geo"
	"transit_tracker/internal/models"
)

// routeRow maps the routes table. Geometry is a WKB LINESTRING.
type routeRow struct {
	ID        uint
	Name      string
	Geometry  []byte
	DeletedAt gorm.DeletedAt
	Stages    []stageRow `gorm:"foreignKey:RouteID"`
}

func (routeRow) TableName() string { return "routes" }

// stageRow maps the stages table; a stage is a stop on one route.
type stageRow struct {
	ID        uint
	Name      string
	Seq       int
	Lat       float64
	Lng       float64
	RouteID   uint
	DeletedAt gorm.DeletedAt
}

func (stageRow) TableName() string { return "stages" }

// vehicleRow maps the vehicles table; only in-service vehicles with a
// route become fallback mappings.
type vehicleRow struct {
	VehicleNo string
	RouteID   uint
	InService bool
	DeletedAt gorm.DeletedAt
}

func (vehicleRow) TableName() string { return "vehicles" }

// LoadPostgres reads routes, stages and vehicles from an existing database.
// The schema is only read, never migrated.
func LoadPostgres(ctx context.Context, dsn string) (*Catalog, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect catalog database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var routes []routeRow
	err = db.WithContext(ctx).
		Preload("Stages", func(tx *gorm.DB) *gorm.DB { return tx.Order("seq, id") }).
		Order("id").
		Find(&routes).Error
	if err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}

	var vehicles []vehicleRow
	err = db.WithContext(ctx).
		Where("in_service = ? AND route_id <> 0", true).
		Find(&vehicles).Error
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}

	c := fromRows(routes, vehicles)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"routes":   len(c.Routes),
		"mappings": len(c.VehicleRoutes),
	}).Info("catalog: loaded from postgres")
	return c, nil
}

func routeID(id uint) string { return fmt.Sprintf("R%d", id) }

func stopID(id uint) string { return fmt.Sprintf("ST%d", id) }

// fromRows converts table rows into a catalog. Routes without stages are
// skipped; unreadable geometry only drops the path.
func fromRows(routes []routeRow, vehicles []vehicleRow) *Catalog {
	c := &Catalog{VehicleRoutes: make(map[string]string)}
	for _, r := range routes {
		if len(r.Stages) == 0 {
			logrus.WithField("route_id", r.ID).Debug("catalog: skipping route without stages")
			continue
		}
		route := models.Route{ID: routeID(r.ID), Name: r.Name}
		for _, s := range r.Stages {
			route.Stops = append(route.Stops, models.Stop{
				ID:   stopID(s.ID),
				Name: s.Name,
				Lat:  s.Lat,
				Lon:  s.Lng,
				Seq:  s.Seq,
			})
		}
		path, err := geo.PathFromWKB(r.Geometry)
		if err != nil {
			logrus.WithError(err).WithField("route_id", r.ID).Warn("catalog: ignoring route geometry")
		}
		route.Path = path
		c.Routes = append(c.Routes, route)
	}
	for _, v := range vehicles {
		if v.VehicleNo == "" || v.RouteID == 0 {
			continue
		}
		c.VehicleRoutes[v.VehicleNo] = routeID(v.RouteID)
	}
	return c
}
