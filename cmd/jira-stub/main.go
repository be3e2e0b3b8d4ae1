// Command jira-stub serves canned Jira Agile boards and issues for
// integration testing of kanban tooling.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/jira-stub/fixtures"
	"github.com/Sternrassler/jira-stub/pkg/config"
	"github.com/Sternrassler/jira-stub/pkg/fixture"
	"github.com/Sternrassler/jira-stub/pkg/logging"
	"github.com/Sternrassler/jira-stub/pkg/registry"
	"github.com/Sternrassler/jira-stub/pkg/server"
	"github.com/Sternrassler/jira-stub/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "jira-stub",
		Short:        "Mock Jira Agile REST API serving fixture boards",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.resolve(cmd.Flags())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	opts.bind(cmd.Flags())
	return cmd
}

// options holds the command line flags.
type options struct {
	configPath string
	overrides  config.Config
}

func (o *options) bind(f *pflag.FlagSet) {
	f.StringVar(&o.configPath, "config", "", "YAML config file (values may reference ${ENV_VARS})")
	f.StringVarP(&o.overrides.Port, "port", "p", "", "listen port (env PORT)")
	f.StringSliceVar(&o.overrides.Profiles, "profiles", nil, "comma separated fixture profiles (env PROFILES)")
	f.StringVar(&o.overrides.FixturesDir, "fixtures-dir", "", "directory holding one folder per profile (env FIXTURES_DIR)")
	f.StringVar(&o.overrides.LogLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	f.BoolVar(&o.overrides.LogPretty, "log-pretty", false, "human readable logs (env LOG_PRETTY)")
	f.StringVar(&o.overrides.RedisURL, "redis-url", "", "Redis host:port for sessions (env REDIS_URL)")
	f.StringVar(&o.overrides.TLSCertFile, "tls-cert", "", "TLS certificate file (env TLS_CERT_FILE)")
	f.StringVar(&o.overrides.TLSKeyFile, "tls-key", "", "TLS key file (env TLS_KEY_FILE)")
}

// resolve loads the config file and environment, applies the flags set on
// the command line, and validates the result.
func (o *options) resolve(f *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}

	if f.Changed("port") {
		cfg.Port = o.overrides.Port
	}
	if f.Changed("profiles") {
		cfg.Profiles = config.SplitList(strings.Join(o.overrides.Profiles, ","))
	}
	if f.Changed("fixtures-dir") {
		cfg.FixturesDir = o.overrides.FixturesDir
	}
	if f.Changed("log-level") {
		cfg.LogLevel = o.overrides.LogLevel
	}
	if f.Changed("log-pretty") {
		cfg.LogPretty = o.overrides.LogPretty
	}
	if f.Changed("redis-url") {
		cfg.RedisURL = o.overrides.RedisURL
	}
	if f.Changed("tls-cert") {
		cfg.TLSCertFile = o.overrides.TLSCertFile
	}
	if f.Changed("tls-key") {
		cfg.TLSKeyFile = o.overrides.TLSKeyFile
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// app is a fully wired stub ready to serve.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	registry *registry.Registry
	server   *server.Server
	closers  []func() error
}

// fixtureFS returns the configured fixture directory, or the embedded profiles.
func fixtureFS(cfg config.Config) fs.FS {
	if cfg.FixturesDir == "" {
		return fixtures.FS
	}
	return os.DirFS(cfg.FixturesDir)
}

// newApp loads the fixtures and connects the session store. Components log
// through the global logger configured by logging.Setup.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger := logging.NewLogger("jira-stub")
	a := &app{cfg: cfg, logger: logger}

	source := cfg.FixturesDir
	if source == "" {
		source = "embedded"
	}
	logger.Info().Str("fixtures", source).Strs("profiles", cfg.Profiles).Msg("Loading fixtures")

	loader := fixture.NewLoader(fixtureFS(cfg), logging.NewLogger("loader"))
	reg, err := registry.Load(loader, cfg.Profiles, logging.NewLogger("registry"))
	if err != nil {
		return nil, err
	}
	a.registry = reg

	store, err := a.sessionStore(ctx)
	if err != nil {
		return nil, err
	}

	auth := session.NewAuthenticator(session.Config{
		Username: cfg.Username,
		Password: cfg.Password,
		TTL:      cfg.SessionTTL,
	}, store, logging.NewLogger("session"))

	a.server = server.New(reg, auth, logging.NewLogger("server"))
	return a, nil
}

func (a *app) sessionStore(ctx context.Context) (session.Store, error) {
	if a.cfg.RedisURL == "" {
		a.logger.Info().Msg("Using in-memory session store")
		return session.NewMemoryStore(), nil
	}

	redisClient := redis.NewClient(&redis.Options{Addr: a.cfg.RedisURL})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.RedisURL, err)
	}
	a.closers = append(a.closers, redisClient.Close)
	a.logger.Info().Str("redis_url", a.cfg.RedisURL).Msg("Connected to Redis session store")
	return session.NewRedisStore(redisClient), nil
}

// usageURL is the issue listing URL of the first registered board.
func (a *app) usageURL() string {
	id := int64(1)
	if ids := a.registry.BoardIDs(); len(ids) > 0 {
		id = ids[0]
	}
	return fmt.Sprintf("%s://localhost:%s/rest/agile/latest/board/%d/issue", a.cfg.Scheme(), a.cfg.Port, id)
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn().Err(err).Msg("Close failed")
		}
	}
}

// serve accepts connections on ln until ctx is done, then shuts down gracefully.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv := a.server.HTTPServer(ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if a.cfg.TLSEnabled() {
			errCh <- srv.ServeTLS(ln, a.cfg.TLSCertFile, a.cfg.TLSKeyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	a.logger.Info().
		Str("addr", ln.Addr().String()).
		Bool("tls", a.cfg.TLSEnabled()).
		Ints64("boards", a.registry.BoardIDs()).
		Msg("Jira stub listening")
	a.logger.Info().Msgf("USAGE: %s", a.usageURL())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// run wires the stub from cfg and serves until ctx is done.
func run(ctx context.Context, cfg config.Config) error {
	logging.Setup(logging.ConfigFor(cfg.LogLevel, cfg.LogPretty))

	a, err := newApp(ctx, cfg)
	if err != nil {
		logger := logging.NewLogger("jira-stub")
		logger.Error().Err(err).Msg("Startup failed")
		return err
	}
	defer a.close()

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}
	return a.serve(ctx, ln)
}
