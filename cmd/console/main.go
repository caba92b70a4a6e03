package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timetracker/internal/config"
	"timetracker/internal/downloads"
	"timetracker/internal/logging"
	"timetracker/internal/remote"
	"timetracker/internal/server"
	"timetracker/internal/session"
)

func main() {
	cfg, err := config.LoadConsole()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	addrFlag := flag.String("addr", cfg.Addr, "HTTP listen address")
	apiFlag := flag.String("api", cfg.APIURL, "Remote API base URL")
	staticFlag := flag.String("static", cfg.StaticDir, "Directory with built frontend")
	secureFlag := flag.Bool("secure-cookie", cfg.SecureCookie, "Mark the session cookie Secure (behind TLS)")
	flag.Parse()

	logger, logCloser := logging.New(cfg.Log, os.Stdout)
	defer logCloser.Close()
	logger.Info("time tracker console starting", slog.String("api", *apiFlag))

	client, err := remote.New(remote.Options{
		BaseURL: *apiFlag,
		Token:   cfg.APIToken,
		Timeout: cfg.APITimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("invalid remote api configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sessions := session.NewRegistry(client, cfg.SessionTTL, logger)
	defer sessions.CloseAll()

	srv := server.New(server.Deps{
		API:          client,
		Sessions:     sessions,
		Downloads:    downloads.NewCatalog(cfg.DownloadBaseURL, cfg.MacDownloadURL),
		Logger:       logger,
		StaticDir:    *staticFlag,
		SecureCookie: *secureFlag,
	})

	httpServer := &http.Server{
		Addr:              *addrFlag,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Cancel in-flight view requests before draining connections.
	sessions.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
