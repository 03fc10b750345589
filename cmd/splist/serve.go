package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/spf13/cobra"

	"spmodel/interfaces/web/handlers"
	"spmodel/interfaces/web/presenters"
	"spmodel/logging"
)

const FlagAddr = "addr"

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the list inspector over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.HTTPAddr = addr
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, FlagAddr, "", "(optional) listen address, overrides HTTP_ADDR")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	appCtx, appCancel := context.WithCancel(ctx)
	defer appCancel()

	activityPresenter := presenters.NewActivityPresenter()
	sseManager := handlers.NewSSEManager(activityPresenter)

	app, err := buildApp(c.cfg, c.logger, sseManager)
	if err != nil {
		c.logger.Error("Failed to build application", "error", err)
		sseManager.CloseAll()
		return err
	}
	defer app.Close()

	routes := handlers.Routes{
		Lists: handlers.NewListHandlers(app.Catalog, c.cfg.Environment, presenters.NewListPresenter(app.Location)),
		Site: handlers.NewSiteHandlers(app.Users, app.Activity, app.Catalog, app.DatabaseHealth,
			presenters.NewSitePresenter(), activityPresenter),
		SSE: sseManager,
	}

	var middlewares []func(http.Handler) http.Handler
	if mw := setupHTTPLogging(c.cfg.HTTPLogPath, c.logger); mw != nil {
		middlewares = append(middlewares, mw)
	}
	router := handlers.NewRouter(routes, middlewares...)

	return startServer(appCtx, router, c.cfg.HTTPAddr, c.logger, sseManager, appCancel)
}

func setupHTTPLogging(path string, logger *logging.Logger) func(http.Handler) http.Handler {
	if path == "" {
		return nil
	}

	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Error("Failed to open HTTP log file", "error", err, "path", path)
		return nil
	}
	// logFile stays open for the server lifetime

	httpLogger := httplog.NewLogger("splist", httplog.Options{
		Writer: logFile,
		JSON:   true,
	})
	logger.Info("HTTP request logging enabled", "path", path)
	return httplog.RequestLogger(httpLogger)
}

func startServer(ctx context.Context, router http.Handler, addr string, logger *logging.Logger,
	sseManager *handlers.SSEManager, appCancel context.CancelFunc) error {
	server := &http.Server{Addr: addr, Handler: router}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	shutdownErr := make(chan error, 1)
	go func() {
		select {
		case <-sig:
			logger.Info("Shutdown signal received")
		case <-ctx.Done():
		}

		appCancel()

		logger.Info("Closing SSE connections...")
		sseManager.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	logger.Info("Server starting", "address", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		appCancel()
		return err
	}

	if err := <-shutdownErr; err != nil {
		logger.Error("Server shutdown error", "error", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}
