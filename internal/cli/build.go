package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		levels  []uint
		output  string
		noWrite bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the connectivity map and publish the snapshot",
		Long: `Build scans every tile of the configured levels, colors them by connected
region and publishes the result to the snapshot store. With --output the
snapshot is written under that name instead and CURRENT is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			m, tiles, err := a.newMap(ctx)
			if err != nil {
				return err
			}
			defer tiles.Close()

			ids := a.cfg.Build.Levels
			if cmd.Flags().Changed("levels") {
				ids = make([]uint8, 0, len(levels))
				for _, l := range levels {
					if l > 255 {
						return fmt.Errorf("level %d out of range", l)
					}
					ids = append(ids, uint8(l))
				}
			}

			stats, err := m.BuildLevels(ctx, ids...)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LEVEL\tTILES\tREADABLE\tABSENT\tUNREADABLE\tREGIONS\tDURATION")
			for _, s := range stats.Levels {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
					s.Level, s.Tiles, s.Readable, s.Absent, s.Unreadable, s.Regions, s.Duration.Round(1e6))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if noWrite {
				return nil
			}
			snaps, err := a.snapshotStore(ctx)
			if err != nil {
				return err
			}
			defer snaps.Close()

			name := output
			if name == "" {
				name, err = m.Publish(ctx, snaps)
			} else {
				err = m.Save(ctx, snaps, name)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s written to %s\n", stats.Snapshot, name)
			return nil
		},
	}

	cmd.Flags().UintSliceVarP(&levels, "levels", "l", nil, "levels to build (default: every level)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "save the snapshot under this name instead of publishing it")
	cmd.Flags().BoolVar(&noWrite, "dry-run", false, "build without writing a snapshot")
	return cmd
}
