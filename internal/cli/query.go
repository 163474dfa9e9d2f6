package cli

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/hupe1980/tileconn/graphid"
)

func newQueryCmd(a *app) *cobra.Command {
	var snapshot string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the published snapshot",
	}
	cmd.PersistentFlags().StringVarP(&snapshot, "snapshot", "s", "", "snapshot name (default: CURRENT)")

	cmd.AddCommand(&cobra.Command{
		Use:   "color <graph-id>",
		Short: "Print the color of the tile containing a graph id",
		Long:  `The graph id is either "level/tile/id" or its numeric value.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGraphID(args[0])
			if err != nil {
				return err
			}
			m, release, err := a.loadMap(cmd.Context(), snapshot)
			if err != nil {
				return err
			}
			defer release()

			c, err := m.ColorOf(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c)
			return nil
		},
	})

	var (
		level    uint8
		lon, lat float64
		radius   float64
	)
	radiusCmd := &cobra.Command{
		Use:   "radius",
		Short: "Print the colors of the tiles within a radius of a point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, release, err := a.loadMap(cmd.Context(), snapshot)
			if err != nil {
				return err
			}
			defer release()

			set, err := m.ColorsInRadius(level, orb.Point{lon, lat}, radius)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), set)
			return nil
		},
	}
	radiusCmd.Flags().Uint8VarP(&level, "level", "l", 0, "hierarchy level")
	radiusCmd.Flags().Float64Var(&lon, "lon", 0, "longitude in degrees")
	radiusCmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	radiusCmd.Flags().Float64VarP(&radius, "radius", "r", 0, "radius in meters")
	cmd.AddCommand(radiusCmd)

	return cmd
}

func parseGraphID(s string) (graphid.GraphID, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		if v >= uint64(graphid.Invalid) {
			return graphid.Invalid, fmt.Errorf("invalid graph id %s", s)
		}
		return graphid.GraphID(v), nil
	}
	return graphid.Parse(s)
}
