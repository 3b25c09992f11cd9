// Package app assembles the server from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/netutil"

	"drone-spoof/internal/api"
	"drone-spoof/internal/config"
	"drone-spoof/internal/hub"
	"drone-spoof/internal/logstore"
	"drone-spoof/internal/metrics"
	"drone-spoof/internal/sim"
)

// NewLogger builds the process logger from the logging section.
func NewLogger(w io.Writer, cfg config.Logging) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	formatter := log.TextFormatter
	if cfg.Format == "json" {
		formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "dronespoof",
	})
}

type App struct {
	cfg     config.File
	logger  *log.Logger
	store   logstore.Store
	metrics *metrics.Metrics
	hub     *hub.Hub
	handler http.Handler
}

func New(cfg config.File, logger *log.Logger, clock sim.Clock) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}
	store, err := logstore.Open(cfg.LogStore.Backend, cfg.LogStore.DSN)
	if err != nil {
		return nil, fmt.Errorf("open log store: %w", err)
	}
	m := metrics.New()
	h := hub.New(cfg.Catalog(), cfg.Zone, hub.Options{
		Logger:     logger,
		Metrics:    m,
		Clock:      clock,
		SendBuffer: cfg.Server.SendBuffer,
	})
	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: m,
		hub:     h,
		handler: api.NewServer(store, h, m, logger, cfg.Server.CORSOrigins).Router(),
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Serve runs the hub and the HTTP server on ln until ctx is done, then
// shuts both down within the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	defer a.store.Close()

	ln = netutil.LimitListener(ln, a.cfg.Server.MaxConnections)
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", ln.Addr().String(), "max_connections", a.cfg.Server.MaxConnections, "log_store", a.cfg.LogStore.Backend)
		serveErr <- srv.Serve(ln)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Error("http shutdown", "err", shutdownErr)
	}
	stopHub()
	<-hubDone

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Run listens on the configured address and serves until ctx is done.
func Run(ctx context.Context, cfg config.File, logger *log.Logger) error {
	a, err := New(cfg, logger, nil)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		a.store.Close()
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}
