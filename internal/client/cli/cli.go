// Package cli реализует командный интерфейс дашборда поверх Gate и Executor.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/cvewatch/internal/client/api"
	"github.com/iudanet/cvewatch/internal/client/auth"
	"github.com/iudanet/cvewatch/internal/client/config"
	"github.com/iudanet/cvewatch/internal/client/iocli"
	"github.com/iudanet/cvewatch/internal/client/session"
	"github.com/iudanet/cvewatch/internal/client/storage"
	"github.com/iudanet/cvewatch/internal/client/storage/boltdb"
	"github.com/iudanet/cvewatch/internal/logging"
	"github.com/iudanet/cvewatch/internal/telemetry"
)

const serviceName = "cvewatch"

// annotationNoSession помечает команды, которым не нужны хранилище и сессия
const annotationNoSession = "cvewatch/no-session"

// Options - параметры запуска CLI
type Options struct {
	IO       iocli.IO
	Version  string
	Args     []string
	EnvFiles []string
}

// App - зависимости, собранные перед выполнением команды
type App struct {
	io       iocli.IO
	cfg      *config.Config
	logger   *slog.Logger
	db       *boltdb.Storage
	prefs    storage.PreferencesStorage
	manager  *auth.Manager
	gate     *session.Gate
	exec     *api.Executor
	shutdown telemetry.ShutdownFunc
	now      func() time.Time
	version  string
	envFiles []string
	flags    globalFlags
}

// globalFlags - значения persistent флагов. Применяются поверх конфигурации,
// только если флаг задан явно.
type globalFlags struct {
	server     string
	db         string
	logLevel   string
	logFormat  string
	retryDelay time.Duration
	timeout    time.Duration
	rateLimit  float64
	maxRetries int
	verbose    bool
}

// Execute собирает дерево команд и выполняет его
func Execute(ctx context.Context, opts Options) error {
	if opts.IO == nil {
		opts.IO = iocli.NewStdio()
	}
	app := &App{
		io:       opts.IO,
		version:  opts.Version,
		envFiles: opts.EnvFiles,
		now:      time.Now,
	}

	root := app.rootCmd()
	if opts.Args != nil {
		root.SetArgs(opts.Args)
	}
	root.SetOut(opts.IO)
	root.SetErr(opts.IO)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, app.close(context.WithoutCancel(ctx)))
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cvewatch",
		Short: "CVE dashboard client",
		Long:  "cvewatch browses, searches and analyses CVEs on a CVE dashboard server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipSetup(cmd) {
				return nil
			}
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.server, "server", "", "Server URL (or CVEWATCH_SERVER env)")
	pf.StringVar(&a.flags.db, "db", "", "Path to local database (or CVEWATCH_DB env)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "Log format (text, json)")
	pf.IntVar(&a.flags.maxRetries, "max-retries", api.DefaultMaxRetries, "Retries for failed requests")
	pf.DurationVar(&a.flags.retryDelay, "retry-delay", api.DefaultRetryDelayBase, "Base delay between retries")
	pf.DurationVar(&a.flags.timeout, "timeout", api.DefaultTimeout, "HTTP request timeout")
	pf.Float64Var(&a.flags.rateLimit, "rate-limit", 0, "Max requests per second, 0 disables")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.newLoginCmd(),
		a.newLogoutCmd(),
		a.newStatusCmd(),
		a.newDashboardCmd(),
		a.newSearchCmd(),
		a.newCVECmd(),
		a.newWatchlistCmd(),
		a.newAnalyzeCmd(),
		a.newPoCCmd(),
		a.newNotificationsCmd(),
		a.newChatCmd(),
		a.newPrefsCmd(),
		a.newVersionCmd(),
	)
	return root
}

// skipSetup - встроенные help/completion и команды с annotationNoSession
func skipSetup(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == "completion" {
			return true
		}
		if _, ok := c.Annotations[annotationNoSession]; ok {
			return true
		}
	}
	return false
}

// loadConfig читает конфигурацию и накладывает явно заданные флаги
func (a *App) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("server") {
		cfg.ServerURL = a.flags.server
	}
	if changed("db") {
		cfg.DBPath = a.flags.db
	}
	if changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = a.flags.logFormat
	}
	if changed("max-retries") {
		cfg.MaxRetries = a.flags.maxRetries
	}
	if changed("retry-delay") {
		cfg.RetryDelay = a.flags.retryDelay
	}
	if changed("timeout") {
		cfg.Timeout = a.flags.timeout
	}
	if changed("rate-limit") {
		cfg.RateLimit = a.flags.rateLimit
	}
	if changed("verbose") {
		cfg.Verbose = a.flags.verbose
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup открывает хранилище и собирает слой сессии
func (a *App) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	a.shutdown = telemetry.Setup(ctx, serviceName, a.version, cfg.OTLPEndpoint, a.logger)

	db, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	a.prefs = db

	var creds storage.CredentialStorage = db
	if cfg.StorePassphrase != "" {
		sealed, err := auth.OpenSealedStore(ctx, db, db, cfg.StorePassphrase)
		if err != nil {
			return err
		}
		creds = sealed
	}

	client := api.NewClient(cfg.ServerURL,
		api.WithTimeout(cfg.Timeout),
		api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		api.WithLogger(a.logger),
	)
	a.manager = auth.NewManager(client, creds,
		auth.WithLogger(a.logger),
		auth.WithRefreshWindow(cfg.RefreshWindow),
	)
	a.gate = session.NewGate(a.manager, a.logger)

	a.exec = api.NewExecutor(client, a.manager,
		api.WithMaxRetries(cfg.MaxRetries),
		api.WithRetryDelay(cfg.RetryDelay),
		api.WithAuthFailureHook(a.gate.HandleAuthFailure),
		api.WithExecutorLogger(a.logger),
	)

	if _, err := a.gate.Restore(ctx); err != nil {
		if !errors.Is(err, storage.ErrCorruptRecord) {
			return fmt.Errorf("failed to restore session: %w", err)
		}
		// Нечитаемую запись перезапишет login или удалит logout
		a.logger.Warn("stored session is unreadable", "error", err)
	}
	return nil
}

// close освобождает ресурсы, открытые в setup
func (a *App) close(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
		a.db = nil
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown telemetry: %w", err))
		}
		a.shutdown = nil
	}
	return errors.Join(errs...)
}
