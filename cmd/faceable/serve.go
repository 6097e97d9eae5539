package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kpatel2913/Faceable/internal/bus"
	"github.com/kpatel2913/Faceable/internal/config"
	"github.com/kpatel2913/Faceable/internal/metrics"
	"github.com/kpatel2913/Faceable/internal/stream"
)

const statusInterval = 30 * time.Second

func serveCmd() *cobra.Command {
	var (
		addr    string
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the frame stream server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), !noWatch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the config file on change")

	return cmd
}

func runServe(ctx context.Context, watch bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewEventBus()
	metrics.Attach(b)

	srv := stream.NewServer(cfg.Server, stream.SessionConfigFromConfig(cfg), b, log.Zerolog())
	srv.SetLogHistory(log)

	b.SubscribeMultiple([]bus.EventType{bus.EventTypeSessionStarted, bus.EventTypeSessionEnded}, func(e bus.Event) {
		log.Debug("serve", string(e.Type), e.Data)
	})

	if watch {
		if err := watchConfig(srv, b); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				log.Debug("serve", "Status", map[string]interface{}{
					"sessions": srv.ActiveSessions(),
				})
			}
		}
	})

	log.Info("serve", "Faceable server started", map[string]interface{}{
		"addr":    cfg.Server.Addr,
		"ws":      cfg.Server.WSPath,
		"metrics": cfg.Server.MetricsPath,
		"logFile": log.GetLogPath(),
	})

	if err := g.Wait(); err != nil {
		log.Error("serve", "Server stopped", err, nil)
		return err
	}
	log.Info("serve", "Server stopped", nil)
	return nil
}

// watchConfig applies config file changes to streams opened afterwards.
// Server and logging settings need a restart.
func watchConfig(srv *stream.Server, b *bus.EventBus) error {
	// The watcher needs a file; writing the defaults keeps env overrides in effect.
	if _, err := os.Stat(loader.Path()); os.IsNotExist(err) {
		next, err := loader.Load()
		if err != nil {
			return err
		}
		cfg = next
		srv.SetSessionConfig(stream.SessionConfigFromConfig(next))
	}

	loader.Watch(func(next *config.Config, err error) {
		if err != nil {
			log.Warn("config", "Ignoring invalid config change", map[string]interface{}{
				"error": err.Error(),
			})
			b.Publish(bus.Event{Type: bus.EventTypeConfigReloaded, Data: map[string]any{"error": err.Error()}})
			return
		}

		srv.SetSessionConfig(stream.SessionConfigFromConfig(next))
		b.Publish(bus.Event{Type: bus.EventTypeConfigReloaded, Data: map[string]any{"path": loader.Path()}})
		log.Info("config", "Config reloaded", map[string]interface{}{
			"path": loader.Path(),
		})
	})
	return nil
}
