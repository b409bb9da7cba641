package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"tzchains/internal/api"
	"tzchains/internal/cache"
	"tzchains/internal/ipgeo"
	"tzchains/internal/logger"
	"tzchains/internal/middleware"
	"tzchains/internal/utils"

	"github.com/spf13/cobra"
)

// lruEntries 为未接 Redis 时本地结果缓存的容量
const lruEntries = 4096

var serveFlags struct {
	from string
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve zone lookups over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveFlags.addr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		t, err := loadTopology(ctx, serveFlags.from)
		if err != nil {
			return err
		}

		var loc ipgeo.Locator
		if cfg.MMDB.Path != "" {
			if loc, err = ipgeo.Open(cfg.MMDB.Path, cfg.MMDB.Mode); err != nil {
				l.Error("mmdb_open_error", "path", cfg.MMDB.Path, "err", err)
				return err
			}
			defer loc.Close()
			l.Info("mmdb_ready", "path", cfg.MMDB.Path, "mode", cfg.MMDB.Mode)
		}

		svc, err := api.NewService(t, nil, loc)
		if err != nil {
			return err
		}
		svc.Cache = cache.NewLRU(lruEntries, cfg.Server.CacheTTLSeconds)
		if rc := utils.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); rc != nil {
			defer rc.Close()
			if err := rc.Ping(ctx).Err(); err != nil {
				l.Error("redis_ping_error", "err", err, "fallback", "lru")
			} else {
				l.Info("redis_ping_ok")
				prefix := "tzchains:zone:" + cache.Fingerprint(svc.Document()) + ":"
				svc.Cache = cache.NewRedisCache(rc, prefix, cfg.Server.CacheTTLSeconds)
			}
		}

		allow := middleware.NewAllowlist(l, cfg.Server.AllowIPs, cfg.Server.AllowCIDRs, cfg.Server.RealIPHeader)
		base := cfg.Server.APIBase
		mux := http.NewServeMux()
		mux.Handle(base+"/", http.StripPrefix(base, api.BuildRoutes(svc, allow.Guard)))

		var handler http.Handler = middleware.WithEdgeGeo(mux)
		handler = logger.AccessMiddleware(l)(handler)
		if cfg.Server.RateLimitEnabled {
			handler = middleware.RateLimit(handler, cfg.Server.RateLimitQPS)
		}
		s := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Shutdown(sctx)
		}()

		cert, key := cfg.Server.TLSCert, cfg.Server.TLSKey
		if cfg.Server.TLSSelfSigned {
			if cert == "" {
				cert = filepath.Join("data", "certs", "server.crt")
			}
			if key == "" {
				key = filepath.Join("data", "certs", "server.key")
			}
			if err := utils.EnsureSelfSignedCert(cert, key, "tzchains.local"); err != nil {
				l.Error("tls_cert_error", "err", err)
				return err
			}
		}
		if cert != "" && key != "" {
			l.Info("listening_tls", "addr", cfg.Server.Addr, "base", base, "cert", cert)
			err = s.ListenAndServeTLS(cert, key)
		} else {
			l.Info("listening", "addr", cfg.Server.Addr, "base", base)
			err = s.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			l.Info("server_stopped")
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.from, "from", fromFile, "topology source: file | store | redis")
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address (default $ADDR or :8080)")
}
