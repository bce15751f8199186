package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"headroom-havens-backend/config"
	"headroom-havens-backend/internal/api"
	"headroom-havens-backend/internal/catalog"
	"headroom-havens-backend/internal/db"
	"headroom-havens-backend/internal/engagement"
	"headroom-havens-backend/internal/lead"
	"headroom-havens-backend/internal/notification"
	"headroom-havens-backend/internal/session"
	"headroom-havens-backend/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return serve(configPath)
		},
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml"
	}
	cmd.Flags().String("config", defaultPath, "Path to the YAML configuration file")
	return cmd
}

func serve(configPath string) error {
	logger := log.New(os.Stdout, "havens ", log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Collector.URL == "" {
		return errors.New("collector.url must be configured")
	}
	client, err := collectorClient(cfg.Collector)
	if err != nil {
		return err
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	listings := catalog.MustSeed()
	logger.Printf("catalog seeded with %d listings", listings.Len())

	var webpushOptions *webpush.Options
	var alerts session.Dispatcher
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, listings, webpushOptions)
		pool.Start(ctx)
		alerts = pool
		logger.Printf("lead alert worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured; operator lead alerts are disabled")
	}

	sessions := session.NewManager(session.Deps{
		Catalog:   listings,
		Store:     appStore,
		Submitter: lead.NewGateway(cfg.Collector.URL, client),
		Alerts:    alerts,
		Engagement: engagement.Options{
			Delay:    cfg.Engagement.Delay,
			Cooldown: cfg.Engagement.Cooldown,
		},
		BookingURL: cfg.Affiliate.BookingURL,
	}, cfg.Sessions.IdleTTL)
	defer sessions.CloseAll()

	handler := api.NewHandler(appStore, sessions, listings, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(cfg.Server, handler),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Println("Shutdown signal received, stopping services...")
	case err := <-serveErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	logger.Println("Server gracefully stopped")
	return nil
}

// collectorClient builds the HTTP client for lead submissions, routed
// through cfg.HTTPProxy when one is set.
func collectorClient(cfg config.CollectorConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid collector.http_proxy: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport}, nil
}
