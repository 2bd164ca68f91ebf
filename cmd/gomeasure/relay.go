package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/philipparndt/gomeasure/internal/logger"
	"github.com/philipparndt/gomeasure/internal/relay"
)

const shutdownTimeout = 5 * time.Second

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the relay server",
	Long: `Run the websocket relay. Clients join a room with ws://host/ws?room=<name>.
The relay assigns measurement ids, keeps the room state for late joiners and
broadcasts every accepted change in one order to all members.

Prometheus metrics are served at /metrics and a liveness probe at /healthz.`,
	Args: cobra.NoArgs,
	RunE: runRelay,
}

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().String("listen", ":8080", "address to listen on")
}

func runRelay(cmd *cobra.Command, args []string) error {
	rlog := logger.For(log, logger.AreaRelay)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := relay.NewServer(relay.Options{
		MaxMessageSize:    cfg.Relay.MaxMessageSize,
		PongWait:          cfg.Relay.PongWait,
		SendBuffer:        cfg.Relay.SendBuffer,
		MessagesPerSecond: cfg.Relay.MessagesPerSecond,
		Burst:             cfg.Relay.Burst,
	}, reg, log)

	httpSrv := &http.Server{
		Addr:              cfg.Relay.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	rlog.Info("relay listening", "addr", cfg.Relay.Listen)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-cmd.Context().Done():
	}

	rlog.Info("shutting down", "rooms", srv.Rooms())
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}
