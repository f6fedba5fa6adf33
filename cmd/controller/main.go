// Package main is the entry point for the simplane controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simplane/internal/config"
	"simplane/internal/controller"
	"simplane/internal/controller/handlers"
	"simplane/internal/logger"
	"simplane/internal/observability"
	"simplane/internal/registry"
	"simplane/internal/store"
	"simplane/internal/store/file"
	"simplane/internal/store/postgres"
	"simplane/internal/worker"
	"simplane/internal/worker/generator"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()
	ctx := context.Background()

	// Store: postgres when configured, JSON files otherwise.
	var (
		jobStore store.JobStore
		pinger   handlers.Pinger
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer pg.Close()

		if *migrateFlag {
			log.Println("Running database migrations...")
			if err := postgres.Migrate(pg.DB()); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			log.Println("Migrations completed successfully")
		}
		jobStore = pg
		pinger = pg
	} else {
		fs, err := file.New(cfg.StateDir)
		if err != nil {
			log.Fatalf("Failed to open state dir: %v", err)
		}
		jobStore = fs
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "simplane-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	_, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Generators: REST against a platform when configured, synthetic otherwise.
	platformTokens := cfg.ParsePlatformTokens()
	factory := func(job *store.Job) generator.Generator {
		if cfg.PlatformURL != "" && job.Platform != "synthetic" {
			return generator.NewRest(job.Config.Industry, cfg.PlatformURL, platformTokens, cfg.APIToken)
		}
		return generator.NewSynthetic(job.Config.Industry)
	}

	reg := registry.New(jobStore, factory, worker.Config{}, slogger)

	counter, err := observability.NewActivityCounter()
	if err != nil {
		log.Printf("Failed to create activity counter: %v", err)
	} else {
		reg.SetActivityCounter(counter)
	}
	if err := observability.RegisterActiveJobsGauge(reg.Count); err != nil {
		log.Printf("Failed to register active jobs gauge: %v", err)
	}

	// Relaunch runners for jobs that were live before the last shutdown.
	if err := reg.ReconcileOnBoot(ctx); err != nil {
		log.Fatalf("Boot reconcile failed: %v", err)
	}

	h := handlers.New(reg, jobStore, pinger)
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(controller.Config{
		Addr:      addr,
		APIToken:  cfg.APIToken,
		RateLimit: float64(cfg.RateLimit),
	}, h)

	go func() {
		log.Printf("Simplane Controller starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down controller...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Runners drain without touching job statuses, so the next boot
	// reconcile resumes them where they left off.
	reg.Shutdown(10 * time.Second)
	log.Println("Server exited properly")
}
