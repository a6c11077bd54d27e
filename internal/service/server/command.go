package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
	"github.com/oshokin/alarm-clock/internal/service/common"
	"github.com/oshokin/alarm-clock/internal/service/instance"
)

// Options controls the alarm-clockd process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// EnvFiles lists .env files loaded before the settings; empty means ".env" and ".env.local".
	EnvFiles []string
	// WatchConfig hot-reloads runtime settings when the settings file changes.
	WatchConfig bool
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// metricsShutdownTimeout bounds the graceful stop of the metrics endpoint.
const metricsShutdownTimeout = 5 * time.Second

// Run starts the daemon and blocks until context is canceled or the server stops.
// Loads configuration first, then determines listen address from config or override.
//
//nolint:funlen // Linear startup sequence reads better in one place.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-clockd")

	if err := config.LoadEnvFiles(opts.EnvFiles...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if !logger.Configure(settings.Log.Level, settings.Log.Format) {
		logger.WarnKV(ctx, "Unknown log level, using info", "level", settings.Log.Level)
	}

	if !settings.AllowMultipleInstances {
		if err := checkSingleInstance(); err != nil {
			return err
		}
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	d, err := newDaemon(ctx, settings, clockwork.NewRealClock())
	if err != nil {
		return fmt.Errorf("initialise daemon: %w", err)
	}

	defer d.stop(context.WithoutCancel(ctx))

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	var background sync.WaitGroup

	defer background.Wait()

	// Background workers stop with the server, including when Serve fails.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.start(ctx)

	background.Go(func() {
		d.announceUpcoming(ctx)
	})

	if opts.WatchConfig {
		background.Go(func() {
			watchErr := config.Watch(ctx, opts.ConfigPath, func(updated *config.Config) {
				d.applySettings(ctx, updated)
			})
			if watchErr != nil {
				logger.ErrorKV(ctx, "Settings watcher stopped", "error", watchErr)
			}
		})
	}

	if settings.MetricsAddress != "" {
		background.Go(func() {
			serveMetrics(ctx, settings.MetricsAddress, d)
		})
	}

	// Create and configure gRPC server with the lifecycle service.
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(common.ActorInterceptor))
	api.Register(grpcServer, api.NewServer(d.coordinator, d.dispatcher))

	logger.InfoKV(ctx, "Alarm daemon listening",
		"listen_address", listenAddress,
		"store", settings.Store.Driver,
		"audio", settings.Ringing.Audio)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// checkSingleInstance refuses to start next to another daemon of the same executable.
func checkSingleInstance() error {
	guard, err := instance.NewGuard()
	if err != nil {
		return err
	}

	return guard.Check()
}

// serveMetrics exposes the Prometheus registry until the context is canceled.
func serveMetrics(ctx context.Context, address string, d *daemon) {
	server := &http.Server{
		Addr:              address,
		Handler:           metrics.Handler(d.registry),
		ReadHeaderTimeout: metricsShutdownTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "Metrics endpoint listening", "metrics_address", address)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorKV(ctx, "Metrics endpoint failed", "error", err)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "clock.local:7070" -> ":7070").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
