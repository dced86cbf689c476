package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mezonai/cubix/api"
	"github.com/mezonai/cubix/config"
	"github.com/mezonai/cubix/events"
	"github.com/mezonai/cubix/exception"
	"github.com/mezonai/cubix/logx"
	"github.com/mezonai/cubix/mempool"
	"github.com/mezonai/cubix/monitoring"
	"github.com/mezonai/cubix/ratelimit"
	"github.com/mezonai/cubix/stack"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the stack engine with its HTTP API and metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runEngine(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func loadTunables() (*config.WriterConfig, *config.RateLimitConfig, error) {
	writerCfg, err := config.LoadWriterConfig(engineFlags.IniPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &config.WriterConfig{QueueSize: config.DefaultQueueSize},
			&config.RateLimitConfig{MaxRequests: config.DefaultMaxRequests, WindowMs: config.DefaultWindowMs}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	rlCfg, err := config.LoadRateLimitConfig(engineFlags.IniPath)
	if err != nil {
		return nil, nil, err
	}
	return writerCfg, rlCfg, nil
}

func runEngine(ctx context.Context) error {
	monitoring.InitMetrics()

	writerCfg, rlCfg, err := loadTunables()
	if err != nil {
		return fmt.Errorf("failed to load tunables: %w", err)
	}

	bus := events.NewEventBus()
	e, err := openEngine(stack.WithPublisher(bus))
	if err != nil {
		return err
	}
	defer e.Close()

	writer := mempool.NewWriter(e.manager, writerCfg.QueueSize)
	writer.Start()
	defer writer.Stop()

	limiter := ratelimit.NewRateLimiter(&ratelimit.RateLimiterConfig{
		MaxRequests: rlCfg.MaxRequests,
		WindowSize:  time.Duration(rlCfg.WindowMs) * time.Millisecond,
	})
	defer limiter.Stop()

	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)
	exception.SafeGo("EventLogger", func() {
		for ev := range ch {
			switch ev.Type() {
			case events.EventFaceCompleted, events.EventCubeCompleted:
				logx.Debug("EVENTS", fmt.Sprintf("%s | level=%d | digest=%s", ev.Type(), ev.Level(), ev.Hash().Short()))
			}
		}
	})

	server := api.NewAPIServer(writer, e.manager, e.manager.Hasher(), limiter, e.cfg.API.ListenAddr)
	server.Start()

	var metricsServer *http.Server
	if addr := e.cfg.Metrics.ListenAddr; addr != "" && addr != e.cfg.API.ListenAddr {
		mux := http.NewServeMux()
		monitoring.RegisterMetrics(mux)
		metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		exception.SafeGo("MetricsServer", func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.Error("METRICS", "Metrics server stopped:", err)
			}
		})
	}

	logx.Info("RUN", fmt.Sprintf("Engine running | api=%s | metrics=%s | store=%s | levels=%d",
		e.cfg.API.ListenAddr, e.cfg.Metrics.ListenAddr, e.cfg.Store.Type, len(e.manager.Levels())))
	<-ctx.Done()
	logx.Info("RUN", "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Warn("RUN", "API shutdown:", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logx.Warn("RUN", "Metrics shutdown:", err)
		}
	}
	return nil
}
