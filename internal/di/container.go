package di

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mikey/junk-scan/internal/adapters/report"
	"github.com/mikey/junk-scan/internal/config"
	"github.com/mikey/junk-scan/internal/core"
	"github.com/mikey/junk-scan/internal/factory"
	"github.com/mikey/junk-scan/internal/ignore"
	"github.com/mikey/junk-scan/internal/logging"
)

// CLIFlags contains all command line flags for the scanner
type CLIFlags struct {
	// Mail server flags
	Server   string
	Port     string
	Username string
	Folder   string

	// Scan flags
	PageSize    int
	PageDelay   string
	MaxRetries  int
	BackoffBase string
	Ignore      string

	// Store flags
	StoreType  string
	StoreDir   string
	SQLitePath string
	MySQLDSN   string

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Mail server flags
	flag.StringVar(&flags.Server, "server", "", "IMAP server host")
	flag.StringVar(&flags.Port, "port", "993", "IMAP server port")
	flag.StringVar(&flags.Username, "username", "", "Mailbox address to scan")
	flag.StringVar(&flags.Folder, "folder", "Junk", "Junk folder name")

	// Scan flags
	flag.IntVar(&flags.PageSize, "page-size", 100, "Messages fetched per page (smaller = slower but less likely to throttle)")
	flag.StringVar(&flags.PageDelay, "page-delay", "1s", "Pause between pages")
	flag.IntVar(&flags.MaxRetries, "max-retries", 5, "Consecutive throttling failures tolerated before giving up")
	flag.StringVar(&flags.BackoffBase, "backoff-base", "10s", "Backoff unit after a throttling failure")
	flag.StringVar(&flags.Ignore, "ignore", "", "Comma-separated list of domains to leave out of the tally")

	// Store flags
	flag.StringVar(&flags.StoreType, "store", "file", "Scan-state store (file, sqlite, mysql)")
	flag.StringVar(&flags.StoreDir, "store-dir", ".", "Directory for file store state")
	flag.StringVar(&flags.SQLitePath, "sqlite-path", "junk_scan.db", "Path for sqlite store")
	flag.StringVar(&flags.MySQLDSN, "mysql-dsn", "", "DSN for mysql store")

	// Output flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags) (*config.Config, error) {
		var cfg *config.Config
		if flags.ConfigFile != "" {
			var err error
			cfg, err = config.New(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
		} else {
			cfg = createConfigFromFlags(flags)
		}
		if err := resolvePassword(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger; in config-file mode the logging section of the
	// file drives level and format.
	if err := container.Provide(func(flags *CLIFlags, cfg *config.Config) (*zap.Logger, error) {
		if flags.ConfigFile == "" {
			return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
		}
		logger, err := logging.InitLogger(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
		return logger, nil
	}); err != nil {
		return nil, err
	}

	// Register scan configuration
	if err := container.Provide(func(cfg *config.Config) (config.ScanConfig, error) {
		return cfg.GetScan()
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewPagerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewNotifyFactory); err != nil {
		return nil, err
	}

	// Register folder pager
	if err := container.Provide(func(f *factory.PagerFactory) (core.FolderPager, error) {
		return f.CreateFolderPager()
	}); err != nil {
		return nil, err
	}

	// Register stores
	if err := container.Provide(func(f *factory.StoreFactory) (*factory.Stores, error) {
		return f.CreateStores()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *factory.Stores) core.CheckpointStore {
		return s.Checkpoints
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *factory.Stores) core.ResultStore {
		return s.Results
	}); err != nil {
		return nil, err
	}

	// Register notifier
	if err := container.Provide(func(f *factory.NotifyFactory) (core.Notifier, error) {
		return f.CreateNotifier()
	}); err != nil {
		return nil, err
	}

	// Register retry policy
	if err := container.Provide(func(scanCfg config.ScanConfig) *core.RetryPolicy {
		return core.NewRetryPolicy(scanCfg.MaxRetries, scanCfg.BackoffBase)
	}); err != nil {
		return nil, err
	}

	// Register address extractor
	if err := container.Provide(core.NewExtractor); err != nil {
		return nil, err
	}

	// Register ignore-list checker
	if err := container.Provide(func(scanCfg config.ScanConfig, logger *zap.Logger) core.DomainFilter {
		return ignore.NewChecker(scanCfg.IgnoredDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register report writer
	if err := container.Provide(func() *report.Writer {
		return report.NewWriter(os.Stdout)
	}); err != nil {
		return nil, err
	}

	// Register scan engine
	if err := container.Provide(func(
		pager core.FolderPager,
		checkpoints core.CheckpointStore,
		results core.ResultStore,
		retry *core.RetryPolicy,
		extractor *core.Extractor,
		filter core.DomainFilter,
		logger *zap.Logger,
		scanCfg config.ScanConfig,
	) *core.Engine {
		return core.NewEngine(
			pager,
			checkpoints,
			results,
			retry,
			extractor,
			filter,
			logger,
			scanCfg.PageSize,
			scanCfg.PageDelay,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("imap.host", flags.Server)
	v.Set("imap.port", flags.Port)
	v.Set("imap.username", flags.Username)
	v.Set("imap.folder", flags.Folder)

	v.Set("scan.page_size", flags.PageSize)
	v.Set("scan.page_delay", flags.PageDelay)
	v.Set("scan.max_retries", flags.MaxRetries)
	v.Set("scan.backoff_base", flags.BackoffBase)
	if flags.Ignore != "" {
		domains := strings.Split(flags.Ignore, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("scan.ignored_domains", domains)
	}

	v.Set("store.type", flags.StoreType)
	v.Set("store.dir", flags.StoreDir)
	v.Set("store.sqlite_path", flags.SQLitePath)
	if flags.MySQLDSN != "" {
		v.Set("store.mysql_dsn", flags.MySQLDSN)
	}

	return config.NewFromViper(v)
}

// resolvePassword fills imap.password from the environment or an
// interactive no-echo prompt. The password is never a flag so it stays
// out of shell history and process listings.
func resolvePassword(cfg *config.Config) error {
	if cfg.GetString("imap.password") != "" {
		return nil
	}
	if pw := os.Getenv("JUNK_SCAN_IMAP_PASSWORD"); pw != "" {
		cfg.GetViper().Set("imap.password", pw)
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("no password: set JUNK_SCAN_IMAP_PASSWORD or run interactively")
	}

	fmt.Fprint(os.Stderr, "Enter your password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	cfg.GetViper().Set("imap.password", string(pwBytes))
	return nil
}
