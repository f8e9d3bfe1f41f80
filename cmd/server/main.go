package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc/api"
	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc/config"
	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc/registry"
	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc/sparkplug"
	s3storage "github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc/storage/s3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(log)

	store, err := s3storage.New(cfg.S3Config())
	if err != nil {
		log.Error("failed to initialise object store", "error", err)
		os.Exit(1)
	}

	reg, err := registry.New(cfg.RegistryClientConfig(), registry.WithLogger(log))
	if err != nil {
		log.Error("failed to initialise registry client", "error", err)
		os.Exit(1)
	}

	var publisher filesvc.Publisher
	if cfg.Sparkplug.BrokerURL != "" {
		spClient, err := sparkplug.New(cfg.SparkplugClientConfig(), sparkplug.WithLogger(log))
		if err != nil {
			log.Error("failed to initialise sparkplug client", "error", err)
			os.Exit(1)
		}

		// Announcements are best-effort: a broker outage must not block
		// uploads and downloads.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := spClient.Connect(ctx); err != nil {
			log.Warn("could not connect to MQTT broker, continuing without announcements", "error", err)
		}
		cancel()
		defer spClient.Close()
		publisher = spClient
	} else {
		log.Warn("MQTT_BROKER_URL not set, file announcements disabled")
	}

	svc, err := filesvc.New(
		filesvc.WithObjectStore(store),
		filesvc.WithRegistry(reg),
		filesvc.WithPublisher(publisher),
		filesvc.WithLogger(log),
	)
	if err != nil {
		log.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(svc, cfg.InstanceUUID(), filesvc.Version, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Mount("/", handler.Routes())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		log.Info("files service starting", "port", cfg.Port, "version", filesvc.Version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exiting")
}
