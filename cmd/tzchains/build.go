package main

import (
	"tzchains/internal/metrics"
	"tzchains/internal/objstore"
	"tzchains/internal/pipeline"
	"tzchains/internal/store"
	"tzchains/internal/utils"

	"github.com/spf13/cobra"
)

var buildFlags struct {
	source, format, idField string
	out, layout             string
	noVerify                bool
	storeDriver, storeDSN   string
	name                    string
	metricsTextfile         string
}

var buildCmd = &cobra.Command{
	Use:   "build [source]",
	Short: "Build the boundary graph from a polygon source and publish it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyBuildFlags(cmd, args)
		ctx := cmd.Context()
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
				l.Error("metrics_textfile_error", "err", err)
			}
		}()

		src, err := pipeline.OpenSource(cfg.Source.Path, cfg.Source.Format, cfg.Source.IDField)
		if err != nil {
			return err
		}
		l.Info("build_begin", "source", cfg.Source.Path, "format", cfg.Source.Format, "verify", cfg.Verify)
		res, err := pipeline.Build(ctx, src, cfg.Verify)
		if err != nil {
			return err
		}

		sinks := pipeline.Sinks{Output: cfg.Output, StoreName: cfg.Store.Name, RedisKey: cfg.Redis.Key}
		if cfg.Store.Driver != "" {
			st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
			if err != nil {
				l.Error("db_open_error", "err", err)
				return err
			}
			defer st.Close()
			sinks.Store = st
		}
		if rc := utils.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); rc != nil {
			defer rc.Close()
			sinks.Redis = rc
		}
		mc, err := utils.OpenMinIO(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Secure)
		if err != nil {
			l.Error("minio_open_error", "err", err)
			return err
		}
		if mc != nil {
			sinks.Objects = objstore.NewStore(mc, cfg.MinIO.Bucket, cfg.MinIO.Prefix)
		}
		if err := pipeline.Publish(ctx, res.Topology, sinks); err != nil {
			return err
		}
		l.Info("build_done", "zones", res.Stats.Zones, "chains", res.Stats.Chains, "out", cfg.Output.Path)
		return nil
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildFlags.source, "source", "", "polygon source path (.shp, .zip, .geojson)")
	f.StringVar(&buildFlags.format, "format", "", "source format: shp | zip | geojson (default by extension)")
	f.StringVar(&buildFlags.idField, "id-field", "", "attribute holding the zone identifier")
	f.StringVarP(&buildFlags.out, "out", "o", "", "output path; .zst / .lz4 suffix compresses")
	f.StringVar(&buildFlags.layout, "layout", "", "output layout: json | packed")
	f.BoolVar(&buildFlags.noVerify, "no-verify", false, "skip round-trip verification")
	f.StringVar(&buildFlags.storeDriver, "store-driver", "", "also save to database: postgres | sqlite3")
	f.StringVar(&buildFlags.storeDSN, "store-dsn", "", "database DSN or sqlite path")
	f.StringVar(&buildFlags.name, "name", "", "topology name in the database")
	f.StringVar(&buildFlags.metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file when done")
}

// applyBuildFlags 用显式给出的参数覆盖配置
func applyBuildFlags(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		cfg.Source.Path = args[0]
	}
	f := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	set("source", &cfg.Source.Path, buildFlags.source)
	set("format", &cfg.Source.Format, buildFlags.format)
	set("id-field", &cfg.Source.IDField, buildFlags.idField)
	set("out", &cfg.Output.Path, buildFlags.out)
	set("layout", &cfg.Output.Layout, buildFlags.layout)
	set("store-driver", &cfg.Store.Driver, buildFlags.storeDriver)
	set("store-dsn", &cfg.Store.DSN, buildFlags.storeDSN)
	set("name", &cfg.Store.Name, buildFlags.name)
	set("metrics-textfile", &cfg.MetricsTextfile, buildFlags.metricsTextfile)
	if buildFlags.noVerify {
		cfg.Verify = false
	}
}
