package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/trialviz/internal/server"
	"github.com/matzehuels/trialviz/pkg/cache"
	promhooks "github.com/matzehuels/trialviz/pkg/observability/prometheus"
	"github.com/matzehuels/trialviz/pkg/pipeline"
)

const shutdownTimeout = 10 * time.Second

type serveOpts struct {
	addr        string
	redisURL    string
	maxSessions int
	noMetrics   bool
	noCache     bool
	viewer      viewerFlags
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host viewer sessions over HTTP",
		Long: `Serve starts an HTTP server hosting viewer sessions.

Settings are read from the environment (and from a .env file when present):
  PORT       listen port when --addr is not given (default 8080)
  REDIS_URL  share the response and export cache through Redis

Prometheus metrics are exposed under /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if opts.addr == "" {
				opts.addr = ":" + getenv("PORT", "8080")
			}
			if opts.redisURL == "" {
				opts.redisURL = os.Getenv("REDIS_URL")
			}
			cfg, err := opts.viewer.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), opts, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.addr, "addr", "", "listen address (default :$PORT)")
	fs.StringVar(&opts.redisURL, "redis", "", "Redis URL for the shared cache (default $REDIS_URL)")
	fs.IntVar(&opts.maxSessions, "max-sessions", server.DefaultMaxSessions, "maximum number of live sessions")
	fs.BoolVar(&opts.noMetrics, "no-metrics", false, "do not expose /metrics")
	fs.BoolVar(&opts.noCache, "no-cache", false, "disable the response and export cache")
	opts.viewer.register(cmd)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts, cfg fileConfig) error {
	logger := loggerFromContext(ctx)

	cc, err := c.serveCache(ctx, opts)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(cc, nil, logger)
	defer runner.Close()

	sopts := []server.Option{
		server.WithLogger(logger),
		server.WithConfig(cfg.Viewer),
		server.WithMaxSessions(opts.maxSessions),
	}
	if !opts.noMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		promhooks.New(reg).Install()
		sopts = append(sopts, server.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           server.New(runner, sopts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	printSuccess("Listening on %s", StyleHighlight.Render(opts.addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

// serveCache picks Redis when a URL is configured, else the file cache.
func (c *CLI) serveCache(ctx context.Context, opts serveOpts) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redisURL == "" {
		return newCache(false)
	}
	ropts, err := redis.ParseURL(opts.redisURL)
	if err != nil {
		return nil, err
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     ropts.Addr,
		Password: ropts.Password,
		DB:       ropts.DB,
		Prefix:   appName + ":",
	})
	if err != nil {
		return nil, err
	}
	loggerFromContext(ctx).Info("using redis cache", "addr", ropts.Addr)
	return rc, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
