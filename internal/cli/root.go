// Package cli implements the tileconn command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/tileconn"
	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/internal/config"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

// app carries state shared by all subcommands.
type app struct {
	cfg    config.Config
	logger *tileconn.Logger

	configPath string
	envFiles   []string
	logLevel   string
	logFormat  string
}

// Execute runs the tileconn CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd returns the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tileconn",
		Short:         "tileconn colors routing graph tiles by connectivity",
		Long:          `tileconn scans the tiles of a hierarchical routing graph, labels every tile with the connected region it belongs to and answers reachability queries from the result.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("tileconn %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a TOML config file")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(newBuildCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newQueryCmd(a))
	root.AddCommand(newServeCmd(a))

	return root
}

func (a *app) init(stderr io.Writer) error {
	if err := config.LoadEnv(a.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		a.logger = tileconn.NewLogger(slog.NewJSONHandler(stderr, opts))
	} else {
		a.logger = tileconn.NewLogger(slog.NewTextHandler(stderr, opts))
	}
	return nil
}

// newMap opens the tile store and returns a map over it. The closer releases
// the store connection.
func (a *app) newMap(ctx context.Context, extra ...tileconn.Option) (*tileconn.Map, io.Closer, error) {
	h, err := a.cfg.Hierarchy.Build()
	if err != nil {
		return nil, nil, err
	}
	rc := a.cfg.Build.ResourceController()
	store, closer, err := config.OpenStore(ctx, a.cfg.Tiles, a.cfg.Cache, rc)
	if err != nil {
		return nil, nil, fmt.Errorf("open tile store: %w", err)
	}

	opts := []tileconn.Option{
		tileconn.WithLogger(a.logger),
		tileconn.WithResourceController(rc),
	}
	if a.cfg.Build.Concurrency > 0 {
		opts = append(opts, tileconn.WithConcurrency(a.cfg.Build.Concurrency))
	}
	m, err := tileconn.NewFromStore(h, store, append(opts, extra...)...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return m, closer, nil
}

// snapshotStore opens the store snapshots are published to. Without a
// dedicated section the tile store is used.
func (a *app) snapshotStore(ctx context.Context) (storeCloser, error) {
	sc := a.cfg.Snapshots
	if sc.Backend == "" {
		sc = a.cfg.Tiles
	}
	store, closer, err := config.OpenStore(ctx, sc, config.CacheConfig{}, nil)
	if err != nil {
		return storeCloser{}, fmt.Errorf("open snapshot store: %w", err)
	}
	return storeCloser{BlobStore: store, Closer: closer}, nil
}

// loadMap opens a map and loads a snapshot into it: the named one, or the
// published CURRENT snapshot when name is empty.
func (a *app) loadMap(ctx context.Context, name string, extra ...tileconn.Option) (*tileconn.Map, func(), error) {
	m, tiles, err := a.newMap(ctx, extra...)
	if err != nil {
		return nil, nil, err
	}
	snaps, err := a.snapshotStore(ctx)
	if err != nil {
		_ = tiles.Close()
		return nil, nil, err
	}
	release := func() {
		_ = snaps.Close()
		_ = tiles.Close()
	}

	if name == "" {
		err = m.LoadCurrent(ctx, snaps)
	} else {
		err = m.Load(ctx, snaps, name)
	}
	if err != nil {
		release()
		return nil, nil, err
	}
	return m, release, nil
}

type storeCloser struct {
	blobstore.BlobStore
	io.Closer
}
