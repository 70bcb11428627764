package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"transit_tracker/internal/broker"
	"transit_tracker/internal/catalog"
	"transit_tracker/internal/config"
	"transit_tracker/internal/controllers"
	"transit_tracker/internal/hub"
	"transit_tracker/internal/ingest"
	"transit_tracker/internal/logger"
	"transit_tracker/internal/metrics"
	"transit_tracker/internal/query"
	"transit_tracker/internal/registry"
	"transit_tracker/internal/routes"
	"transit_tracker/internal/routing"
	"transit_tracker/internal/simulator"
	"transit_tracker/internal/vehicles"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	// Initialize structured logging to file
	logWriter := logger.Setup(cfg.LogFile, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector()

	// Route network: file (or embedded) catalog, overlaid with the database seed
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		logrus.Fatalf("catalog error: %v", err)
	}
	if cfg.CatalogDSN != "" {
		dbCat, err := catalog.LoadPostgres(ctx, cfg.CatalogDSN)
		if err != nil {
			logrus.WithError(err).Error("Failed to load catalog from database, continuing with file catalog")
		} else {
			cat.Merge(dbCat)
		}
	}
	reg := registry.New()
	cat.Install(reg)

	store := vehicles.NewStore()
	resolver := vehicles.NewResolver(store, cat.VehicleRoutes)
	svc := query.NewService(reg, store, resolver)

	h := hub.New(svc.Envelopes, collector)
	go h.Run(ctx)

	adapter := ingest.NewAdapter(store, resolver, h, collector)

	sim := simulator.New(reg, adapter, simulator.Config{
		Tick:            cfg.SimTick,
		Dwell:           cfg.SimDwell,
		SpeedMultiplier: cfg.SimSpeedMultiplier,
	}, collector)
	for _, vc := range cat.Simulation.Vehicles {
		if _, err := sim.AddVehicle(vc); err != nil {
			logrus.WithError(err).WithField("vehicle_id", vc.ID).Warn("Skipping simulated vehicle")
		}
	}
	if cfg.SimEnabled {
		sim.Start(ctx)
	}

	// Telemetry broker is optional; without it only HTTP and the simulator feed the store
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = broker.Connect(cfg.NATSURL, "transit-tracker", cfg.NATSReconnectWait, collector)
		if err != nil {
			logrus.Fatalf("nats error: %v", err)
		}
		if _, err := adapter.Subscribe(nc, cfg.NATSSubject); err != nil {
			logrus.Fatalf("nats subscribe error: %v", err)
		}
	}
	brokerState := func() string {
		switch {
		case nc == nil:
			return controllers.BrokerDisabled
		case nc.IsConnected():
			return controllers.BrokerConnected
		default:
			return controllers.BrokerDisconnected
		}
	}

	ctl := controllers.New(controllers.Deps{
		Ctx:         ctx,
		Query:       svc,
		Registry:    reg,
		Resolver:    resolver,
		Ingest:      adapter,
		Simulator:   sim,
		Routing:     routing.NewClient(cfg.RoutingURL, cfg.RoutingTimeout, collector),
		Hub:         h,
		BrokerState: brokerState,
	})

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = collector.Handler()
	}
	r := routes.SetupRouter(ctl, metricsHandler, logWriter)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Infof("Server running at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("http server shutdown")
	}
	sim.Stop()
	broker.Close(nc)
}
