package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hupe1980/tileconn"
	"github.com/hupe1980/tileconn/blobstore"
	tcprom "github.com/hupe1980/tileconn/metrics/prometheus"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		snapshot string
		build    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve connectivity queries over HTTP",
		Long: `Serve loads the published snapshot and answers color queries over HTTP.
Prometheus metrics are exposed on /metrics. POST /v1/reload picks up a newly
published snapshot. With --build the map is built from the tile store when no
snapshot has been published yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			mc, err := tcprom.NewCollector(reg, "tileconn")
			if err != nil {
				return err
			}

			m, tiles, err := a.newMap(ctx, tileconn.WithMetricsCollector(mc))
			if err != nil {
				return err
			}
			defer tiles.Close()

			snaps, err := a.snapshotStore(ctx)
			if err != nil {
				return err
			}
			defer snaps.Close()

			if err := loadSnapshot(ctx, m, snaps, snapshot, build); err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.Serve.Addr
			}
			s := &server{m: m, snaps: snaps, logger: a.logger.Logger}
			srv := &http.Server{
				Addr:              addr,
				Handler:           s.handler(reg),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return listenAndServe(ctx, srv, a.logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVarP(&snapshot, "snapshot", "s", "", "snapshot name (default: CURRENT)")
	cmd.Flags().BoolVar(&build, "build", false, "build and publish when no snapshot is published")
	return cmd
}

func loadSnapshot(ctx context.Context, m *tileconn.Map, snaps blobstore.BlobStore, name string, build bool) error {
	if name != "" {
		return m.Load(ctx, snaps, name)
	}
	err := m.LoadCurrent(ctx, snaps)
	if err == nil || !build || !errors.Is(err, blobstore.ErrNotFound) {
		return err
	}
	if _, err := m.Build(ctx); err != nil {
		return err
	}
	_, err = m.Publish(ctx, snaps)
	return err
}

func listenAndServe(ctx context.Context, srv *http.Server, logger *tileconn.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
