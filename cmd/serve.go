package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"accountability-service/internal/escalation"
	"accountability-service/internal/handler"
	"accountability-service/internal/messaging"
	"accountability-service/internal/service"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, escalation sweep and event relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveRun(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("==============================================")
	log.Println("  ACCOUNTABILITY SERVICE - Starting Up")
	log.Println("  Features: SLA escalation, Outbox, Tracking")
	log.Println("==============================================")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.postgres != nil {
		applied, err := a.postgres.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		for _, name := range applied {
			log.Printf("Applied migration %s", name)
		}
	}

	var publisher messaging.Publisher = messaging.LogPublisher{}
	if cfg.RabbitMQ.Enabled {
		rmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.User, cfg.RabbitMQ.Password)
		if err != nil {
			return err
		}
		defer rmq.Close()
		publisher = rmq
		log.Println("Connected to RabbitMQ")
	}

	retry := cfg.RetryPolicy()
	complaintService := service.NewComplaintService(a.store, a.machine, a.clock, a.authorizer, a.cache, retry)
	trackingService := service.NewTrackingService(a.store, a.machine, a.clock)
	dashboardService := service.NewDashboardService(a.store, a.cache)

	outboxWorker := messaging.NewOutboxWorker(a.store, publisher, messaging.OutboxOptions{
		Interval: cfg.RabbitMQ.PublishInterval.Std(),
	})
	outboxWorker.Start()
	defer outboxWorker.Stop()

	engine := escalation.NewEngine(a.store, a.machine, a.clock, escalation.Options{
		Interval:     cfg.Escalation.Interval.Std(),
		Retry:        retry,
		SweepOnStart: cfg.Escalation.SweepOnStart,
		Invalidator:  a.cache,
	})
	engine.Start()
	defer engine.Stop()

	router := handler.NewRouter(
		handler.NewComplaintHandler(complaintService),
		handler.NewTrackingHandler(trackingService),
		handler.NewDashboardHandler(dashboardService, a.store),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("==============================================")
		log.Printf("  Accountability service listening on %s", srv.Addr)
		log.Println("==============================================")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutdown signal received...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	log.Println("Accountability service stopped gracefully")
	return nil
}
