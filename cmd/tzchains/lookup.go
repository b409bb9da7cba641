package main

import (
	"fmt"
	"strconv"
	"tzchains/internal/coordsys"
	"tzchains/internal/ipgeo"
	"tzchains/internal/pipeline"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var lookupFlags struct {
	from  string
	ip    string
	out   string
	coord string
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [lat lon]",
	Short: "Print the zone containing a coordinate or an IP address",
	Args: func(cmd *cobra.Command, args []string) error {
		if lookupFlags.ip == "" && len(args) != 2 {
			return fmt.Errorf("need lat and lon, or --ip")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("out") {
			cfg.Output.Path = lookupFlags.out
		}
		var lat, lon float64
		if lookupFlags.ip != "" {
			loc, err := ipgeo.Open(cfg.MMDB.Path, cfg.MMDB.Mode)
			if err != nil {
				l.Error("mmdb_open_error", "path", cfg.MMDB.Path, "err", err)
				return err
			}
			defer loc.Close()
			if lat, lon, err = loc.Locate(lookupFlags.ip); err != nil {
				return err
			}
		} else {
			var err1, err2 error
			lat, err1 = strconv.ParseFloat(args[0], 64)
			lon, err2 = strconv.ParseFloat(args[1], 64)
			if err1 != nil || err2 != nil {
				return fmt.Errorf("bad coordinate %q %q", args[0], args[1])
			}
			var err error
			if lat, lon, err = coordsys.ToWGS84(lookupFlags.coord, lat, lon); err != nil {
				return err
			}
		}
		t, err := loadTopology(cmd.Context(), lookupFlags.from)
		if err != nil {
			return err
		}
		zone, found := t.ZoneAt(lat, lon)
		return gojson.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"zone": zone, "found": found, "lat": lat, "lon": lon,
		})
	},
}

var verifyFlags struct {
	from   string
	source string
	out    string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a built graph against its polygon source",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("source") {
			cfg.Source.Path = verifyFlags.source
		}
		if cmd.Flags().Changed("out") {
			cfg.Output.Path = verifyFlags.out
		}
		t, err := loadTopology(cmd.Context(), verifyFlags.from)
		if err != nil {
			return err
		}
		src, err := pipeline.OpenSource(cfg.Source.Path, cfg.Source.Format, cfg.Source.IDField)
		if err != nil {
			return err
		}
		return pipeline.VerifyOutput(cmd.Context(), src, t)
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupFlags.from, "from", fromFile, "topology source: file | store | redis")
	lookupCmd.Flags().StringVar(&lookupFlags.ip, "ip", "", "locate this IP via the configured mmdb")
	lookupCmd.Flags().StringVarP(&lookupFlags.out, "out", "o", "", "built output path")
	lookupCmd.Flags().StringVar(&lookupFlags.coord, "coord", "", "coordinate system of lat/lon: wgs84 | gcj02 | bd09")
	verifyCmd.Flags().StringVar(&verifyFlags.from, "from", fromFile, "topology source: file | store | redis")
	verifyCmd.Flags().StringVar(&verifyFlags.source, "source", "", "polygon source path")
	verifyCmd.Flags().StringVarP(&verifyFlags.out, "out", "o", "", "built output path")
}
