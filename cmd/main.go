/**
 * @description
 * This is the main entry point for the console service. It initializes and
 * wires together all the components of the application: configuration, the
 * onepay gateway client, the console views, metrics, and the HTTP router.
 * Finally, it starts the HTTP server to listen for incoming requests.
 */
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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paydeck/console-service/internal/api"
	"github.com/paydeck/console-service/internal/app"
	"github.com/paydeck/console-service/internal/config"
	"github.com/paydeck/console-service/internal/observability"
	"github.com/paydeck/console-service/pkg/onepayclient"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load a local .env if one exists, then read configuration from the
	// environment
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, relying on environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Set up channel to listen for OS signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Initialize metrics on a private registry
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	// Initialize the gateway client and the console components
	gateway := onepayclient.NewClient(cfg.OnepayBaseURL, cfg.OnepayAuthToken, cfg.OnepayAppID)
	gateway.Logger = logger
	gateway.Metrics = metrics

	listView := app.NewListView(gateway, logger)

	// The service runs headless, so "opening" a hosted payment page means
	// surfacing the URL; the HTTP response already carries it to the browser.
	openPaymentPage := func(url string) {
		logger.Info("hosted payment page ready", "url", url)
	}

	handler := api.NewHandler(gateway, listView, logger, metrics, cfg.SettleDelay(), openPaymentPage)
	router := api.NewRouter(handler, metrics)

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for a termination signal
	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	// Stop the views from applying any in-flight results, then drain the
	// server
	listView.Dismantle()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
