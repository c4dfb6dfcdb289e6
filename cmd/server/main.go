package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rushcms/rush-web/internal/blocks"
	"github.com/rushcms/rush-web/internal/cfg"
	"github.com/rushcms/rush-web/internal/cms"
	"github.com/rushcms/rush-web/internal/health"
	"github.com/rushcms/rush-web/internal/httpmw"
	"github.com/rushcms/rush-web/internal/httpserver"
	"github.com/rushcms/rush-web/internal/log"
	"github.com/rushcms/rush-web/internal/metrics"
	"github.com/rushcms/rush-web/internal/opshttp"
	"github.com/rushcms/rush-web/internal/otelx"
	"github.com/rushcms/rush-web/internal/prof"
	"github.com/rushcms/rush-web/internal/ratelimit"
	"github.com/rushcms/rush-web/internal/revalidate"
	"github.com/rushcms/rush-web/internal/secrets"
	"github.com/rushcms/rush-web/internal/sitehandler"
	"github.com/rushcms/rush-web/internal/tagcache"
	v "github.com/rushcms/rush-web/internal/version"
	"github.com/rushcms/rush-web/internal/webapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Get build/version info
	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	// Fill in config from environment variables with prefix RUSHWEB_ and validate
	cfg.FillFromEnv(flag.CommandLine, "RUSHWEB_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	// validate config
	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		os.Exit(1)
	}
	stLvl, err := log.ParseLevel(conf.StacktraceLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid stacktrace level %s: %v\n", conf.StacktraceLevel, err)
		os.Exit(1)
	}
	lg, err := log.New(log.Options{
		App:             v.AppName,
		Version:         v.Version,
		Commit:          v.Commit,
		Level:           lvl,
		StacktraceLevel: stLvl,
		JsonFormat:      conf.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	// no-op for slog/stderr, but here if we swap backends in the future to ensure any buffered logs are flushed on shutdown
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	// secrets stay out of this line; the CMS token and webhook secret are
	// logged only as "configured or not"
	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"commit_date", vi.CommitDate,
		"build_id", vi.BuildId,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"pyro_server", conf.PyroServer,
		"pyro_tenant", conf.PyroTenantID,
		"trace_sample", conf.TraceSample,
		"trusted_hops", conf.TrustedHops,
		"dev_mode", conf.DevMode,
		"api_base_url", conf.APIBaseURL,
		"site_id", conf.SiteID,
		"site_slug", conf.SiteSlug,
		"cache_ttl_seconds", conf.CacheTTLSeconds,
		"public_base_url", conf.PublicBaseURL,
		"revalidate_configured", conf.RevalidateSecret != "",
	)

	// Setup pyroscope profiling
	stopProf, profErr := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		AuthToken:     "",
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"build_id":  vi.BuildId,
			"source":    "go-agent",
		},
	})
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer func() { stopProf() }()

	// Setup otel for tracing
	// Insecure is true because we are only writing to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// Setup metrics
	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", vi)
	m.SetProfilingActive(conf.EnablePyroscope && profErr == nil)

	// Resolve ssm:// secret refs before anything touches them. Literal
	// values pass through untouched, so AWS is only required when a ref
	// is actually configured.
	if secrets.IsRef(conf.APIToken) || secrets.IsRef(conf.RevalidateSecret) {
		resolver, err := secrets.NewResolver(ctx, secrets.Options{Logger: L})
		if err != nil {
			L.Error(ctx, err, "failed to create secrets resolver")
			os.Exit(1)
		}
		if err := resolver.ResolveAll(ctx, map[string]*string{
			"api_token":         &conf.APIToken,
			"revalidate_secret": &conf.RevalidateSecret,
		}); err != nil {
			L.Error(ctx, err, "failed to resolve secrets")
			os.Exit(1)
		}
	}

	// Shared response cache; the revalidation webhook invalidates it by
	// tag or path out-of-band. TTL 0 disables caching entirely, the client
	// and the webhook both tolerate running without a store.
	var cache *tagcache.Store
	if conf.CacheTTLSeconds > 0 {
		cache = tagcache.New(time.Duration(conf.CacheTTLSeconds) * time.Second)
	}

	cmsClient, err := cms.New(cms.Options{
		BaseURL:    conf.APIBaseURL,
		Token:      conf.APIToken,
		SiteID:     conf.SiteID,
		SiteSlug:   conf.SiteSlug,
		Cache:      cache,
		DefaultTTL: time.Duration(conf.CacheTTLSeconds) * time.Second,
		Logger:     L,
		Metrics:    m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create cms client")
		os.Exit(1)
	}

	registry := blocks.NewRegistry(blocks.Options{
		DevMode: conf.DevMode,
		Logger:  L,
		Metrics: m,
	})

	// revalidation webhook with its own sliding-window limiter
	revalLimiter := revalidate.NewLimiter(ctx,
		revalidate.WithOnDenied(func(ip string) {
			L.Warn(ctx, "revalidation webhook rate limited", "ip", ip)
		}),
	)
	revalHandler := revalidate.NewHandler(revalidate.Options{
		Secret:  conf.RevalidateSecret,
		Cache:   cache,
		Limiter: revalLimiter,
		Logger:  L,
		Metrics: m,
	})

	api := webapi.New(webapi.Options{
		Logger:     L,
		Client:     cmsClient,
		Revalidate: revalHandler,
		Metrics:    m,
	})

	site, err := sitehandler.New(sitehandler.Options{
		Logger:        L,
		Client:        cmsClient,
		Blocks:        registry,
		SiteName:      conf.SiteName,
		PublicBaseURL: conf.PublicBaseURL,
		DevMode:       conf.DevMode,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	// setup toggle for server shutdown
	var gate health.ShutdownGate
	// not ready while draining or if the upstream config somehow went away
	readiness := health.All(
		gate.Probe(),
		health.Fixed(conf.APIBaseURL != "" && conf.APIToken != "", "cms upstream not configured"),
	)

	// Setup rate limiter middleware for the public listener
	limiter := ratelimit.New(ctx,
		// increment prometheus counter on each denied request
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		// only log the first time an ip is denied each time it is cleaned from the bucket
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
		}),
	)

	// start public http server
	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		VersionInfo:  vi,
		Site:         site,
		API:          api,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// start admin/ops listener to serve metrics, health checks and pprof
	// sg restricts inbound to internal monitoring infrastructure; the
	// listener itself rejects public source addresses in case the sg is
	// ever misconfigured
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	// notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		// log and dont exit, worst case systemd will kill the process after timeout
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	// block until signal so we dont exit
	sigCtx, stopSig := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSig()
	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	L.Info(context.Background(), "shutdown signal received")

	// fail readiness so the load balancer stops sending new requests
	gate.Set("draining")
	L.Info(context.Background(), "shutdown gate closed")

	L.Info(context.Background(), "sleeping 30s for in-flight and load balancer health checks to drain")
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(30 * time.Second):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "app http server shutdown")
	}

	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}

	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}

	stopProf()

	L.Info(context.Background(), "shutdown complete")
	os.Exit(0)
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set, skipping systemd notify")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	conn.Write([]byte("READY=1"))
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
