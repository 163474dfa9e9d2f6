package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/tileconn"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		level    uint8
		snapshot string
		output   string
	)

	cmd := &cobra.Command{
		Use:       "export <geojson|regions|flat>",
		Short:     "Export a level of the published snapshot",
		Long:      `Export writes the colors of one level as per-tile GeoJSON, as one GeoJSON feature per region, or as a flat little-endian uint32 array indexed by tile.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"geojson", "regions", "flat"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, release, err := a.loadMap(ctx, snapshot)
			if err != nil {
				return err
			}
			defer release()

			if output == "" || output == "-" {
				return export(cmd.OutOrStdout(), m, args[0], level)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			bw := bufio.NewWriter(f)
			if err := export(bw, m, args[0], level); err != nil {
				return err
			}
			if err := bw.Flush(); err != nil {
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().Uint8VarP(&level, "level", "l", 0, "hierarchy level to export")
	cmd.Flags().StringVarP(&snapshot, "snapshot", "s", "", "snapshot name (default: CURRENT)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file")
	return cmd
}

func export(w io.Writer, m *tileconn.Map, format string, level uint8) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "geojson":
		data, err = m.ExportGeoJSON(level)
	case "regions":
		data, err = m.ExportRegionsGeoJSON(level)
	case "flat":
		return m.WriteFlat(w, level)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
