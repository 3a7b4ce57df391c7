package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/colinandrus/StravaRouter/api"
	"github.com/colinandrus/StravaRouter/config"
	"github.com/colinandrus/StravaRouter/metrics"
	"github.com/colinandrus/StravaRouter/network"
	"github.com/colinandrus/StravaRouter/publisher"
	"github.com/colinandrus/StravaRouter/routing"
	"github.com/colinandrus/StravaRouter/store"
	"github.com/colinandrus/StravaRouter/strava"
)

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// graphProvider serves a preloaded graph when GRAPH_FILE is set and queries Overpass otherwise.
func graphProvider(cfg *config.Config, log *logrus.Logger) (network.GraphProvider, error) {
	if cfg.GraphFile != "" {
		log.WithField("file", cfg.GraphFile).Info("Loading pre-generated road network...")
		graph, err := network.LoadGraphFromFile(cfg.GraphFile)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"nodes": len(graph.Nodes),
			"edges": graph.EdgeCount(),
		}).Info("Road network loaded")
		return network.NewStaticProvider(graph), nil
	}
	log.WithField("url", cfg.OverpassURL).Info("Road networks will be fetched from Overpass per request")
	return network.NewOverpassClient(network.OverpassConfig{
		URL:     cfg.OverpassURL,
		Timeout: cfg.OverpassTimeout,
		Padding: cfg.GraphPadding,
	}, log), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := newLogger(cfg)
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewCollector()

	provider, err := graphProvider(cfg, log)
	if err != nil {
		log.Fatalf("Failed to load road network: %v", err)
	}

	deps := api.Deps{
		Planner: routing.NewPlanner(log, routing.WithWorkers(cfg.PlannerWorkers), routing.WithObserver(m)),
		Network: provider,
		Metrics: m,
		Log:     log,
	}

	if cfg.StravaConfigured() {
		deps.Segments = strava.NewClient(strava.Config{
			ClientID:     cfg.StravaClientID,
			ClientSecret: cfg.StravaClientSecret,
			RefreshToken: cfg.StravaRefreshToken,
			BaseURL:      cfg.StravaBaseURL,
			AuthURL:      cfg.StravaAuthURL,
			ActivityType: cfg.StravaActivityType,
		}, log)
		log.Info("Strava segment search enabled")
	} else {
		log.Warn("Strava credentials not set, /update-segments is disabled")
	}

	if dsn := cfg.DatabaseURL.Value(); dsn != "" {
		routes, err := store.Open(ctx, dsn, log)
		if err != nil {
			log.Fatalf("Failed to open route archive: %v", err)
		}
		defer routes.Close()
		deps.Archive = routes
	}

	if cfg.NATSURL != "" {
		events, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, m, log)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer events.Close()
		deps.Events = events
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = m.Serve(cfg.MetricsAddr, log)
	}

	h := api.NewHandler(deps)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(h, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Segment router starting on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Metrics server shutdown failed")
		}
	}
	log.Info("Stopped")
}
