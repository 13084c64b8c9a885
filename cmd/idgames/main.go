package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/idgames/internal/cache"
	"github.com/pders01/idgames/internal/client"
	"github.com/pders01/idgames/internal/config"
	"github.com/pders01/idgames/internal/debuglog"
	"github.com/pders01/idgames/internal/metrics"
	"github.com/pders01/idgames/internal/search"
	"github.com/pders01/idgames/internal/storage"
	"github.com/pders01/idgames/internal/validation"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

type globalOptions struct {
	configPath  string
	cacheDir    string
	logLevel    string
	metricsAddr string
	refresh     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "idgames: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "idgames",
		Short: "Browse the idgames archive",
		Long: `idgames is a client for the idgames archive API. It lists directories,
shows the latest uploads and votes, searches the archive and keeps a disk cache
of every response. Run "idgames tui" for the interactive browser.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default ~/.config/idgames/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "", "Override the response cache directory")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.PersistentFlags().BoolVar(&opts.refresh, "refresh", false, "Ignore cached responses")

	cmd.AddCommand(
		newListCmd(opts),
		newLatestCmd(opts),
		newGetCmd(opts),
		newSearchCmd(opts),
		newOpenCmd(opts),
		newCacheCmd(opts),
		newTUICmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.cacheDir != "" {
		cfg.Cache.Dir = opts.cacheDir
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.refresh {
		cfg.MaxAge = config.MaxAgeConfig{}
	}

	if err := validation.CheckConfig(cfg, validation.NewPermissivePathValidator(), validation.NewEndpointValidator()); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// env holds everything a command needs to talk to the archive.
type env struct {
	cfg      *config.Config
	client   *client.Client
	cache    *cache.Cache
	store    *storage.Store
	searcher search.Searcher

	closers []func() error
}

// setup builds the client stack: cache, file index, search engine and
// metrics endpoint. Components that cannot be opened are skipped with a
// warning, except for the cache whose directory the user asked for.
func setup(opts *globalOptions) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	e := &env{cfg: cfg}
	e.closers = append(e.closers, func() error { return debuglog.Setup(debuglog.LevelOff) })

	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				debuglog.Errorf("metrics server: %v", err)
			}
		}()
		e.closers = append(e.closers, srv.Close)
	}

	var clientOpts []client.Option
	if cfg.Cache.Dir != "" {
		c, err := cache.New(cfg.Cache.Dir, cfg.Cache.MaxSize, cfg.Cache.Version)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		e.cache = c
		clientOpts = append(clientOpts, client.WithCache(c))
	}

	if cfg.Database.Path != "" {
		store, err := storage.NewStore(cfg.Database.Path, cfg.Database.Timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file index unavailable: %v\n", err)
		} else {
			e.store = store
			clientOpts = append(clientOpts, client.WithListener(store))

			searcher, closeSearch := search.Open(store, cfg.Database.SearchIndex)
			e.searcher = searcher
			if l, ok := searcher.(search.UpdateListener); ok {
				clientOpts = append(clientOpts, client.WithListener(l))
			}
			// The index closes before the store it reads from.
			e.closers = append(e.closers, store.Close, closeSearch)
		}
	}

	e.client = client.New(cfg, clientOpts...)
	debuglog.Infof("idgames %s started against %s", Version, cfg.API.BaseURL)
	return e, nil
}

// titles returns the store as a title lookup, or nil when there is no store.
func (e *env) titles() client.TitleLookup {
	if e.store == nil {
		return nil
	}
	return e.store
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
