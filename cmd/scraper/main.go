package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/api"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/browser"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/config"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/events"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/scraper"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/store"
	"github.com/upgradewatch/unity-upgrade-scraper/pkg/logger"
)

var (
	flagNoHeadless bool
	flagPublishers string
	flagOutDir     string
	flagStatusAddr string
	flagBatchSize  int
)

func main() {
	root := &cobra.Command{
		Use:          "unity-upgrade-scraper",
		Short:        "Crawl storefront publishers and record upgrade discounts",
		SilenceUsage: true,
		RunE:         runScrape,
	}

	root.Flags().BoolVar(&flagNoHeadless, "no-headless", false, "force a visible browser")
	root.Flags().StringVar(&flagPublishers, "publishers", "", "path to publishers file (name,url per line)")
	root.Flags().StringVar(&flagOutDir, "out-dir", "", "directory for output files")
	root.Flags().StringVar(&flagStatusAddr, "status-addr", "", "listen address for the status API (disabled when empty)")
	root.Flags().IntVar(&flagBatchSize, "batch-size", 0, "assets visited concurrently per batch")

	login := &cobra.Command{
		Use:          "login",
		Short:        "Run the interactive login and save the browser session",
		SilenceUsage: true,
		RunE:         runLogin,
	}

	root.AddCommand(login)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("publishers") {
		cfg.Output.PublishersFile = flagPublishers
	}
	if cmd.Flags().Changed("out-dir") {
		cfg.Output.Dir = flagOutDir
	}
	if cmd.Flags().Changed("status-addr") {
		cfg.API.Addr = flagStatusAddr
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.Scraper.BatchSize = flagBatchSize
	}
	if flagNoHeadless {
		cfg.Browser.Headless = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func browserOptions(cfg *config.Config) *browser.Options {
	return &browser.Options{
		Headless:         cfg.Browser.Headless,
		SlowMo:           cfg.Browser.SlowMo,
		NavTimeout:       cfg.Browser.NavTimeout,
		UserAgent:        cfg.Browser.UserAgent,
		ViewportWidth:    cfg.Browser.ViewportWidth,
		ViewportHeight:   cfg.Browser.ViewportHeight,
		StorageStatePath: cfg.Browser.StorageStatePath,
	}
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting upgrade-discount scraper")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publishers, err := config.LoadPublishers(cfg.Output.PublishersFile)
	if err != nil {
		return err
	}
	log.Info("loaded publishers", "count", len(publishers))

	opts := browserOptions(cfg)

	// First run without a saved session needs a headed browser for the
	// manual login, whatever mode was requested.
	firstRun := !opts.HasSession()
	wantHeadless := opts.Headless
	if firstRun {
		log.Info("no saved session found, forcing headed browser for login")
		opts.Headless = false
	}

	b, err := browser.New(opts)
	if err != nil {
		return err
	}
	defer b.Close()

	if firstRun {
		if err := b.InteractiveLogin(config.SignInURL, promptEnter); err != nil {
			return err
		}
		if err := b.Relaunch(wantHeadless); err != nil {
			return err
		}
	}

	st, err := store.Open(cfg.TextPath(), cfg.CSVPath(), cfg.ProgressPath())
	if err != nil {
		return err
	}
	defer st.Close()

	var sink scraper.EventSink
	if cfg.Events.RedisAddr != "" {
		pub, err := events.Connect(ctx, cfg.Events.RedisAddr, cfg.Events.Stream)
		if err != nil {
			log.Warn("redis unavailable, events disabled", "addr", cfg.Events.RedisAddr, "error", err)
		} else {
			defer pub.Close()
			sink = pub
		}
	}

	orch := scraper.NewOrchestrator(b, st, sink, cfg.Scraper, config.StoreOrigin)

	if cfg.API.Addr != "" {
		handlers := api.NewHandlers(orch.Progress(), st)
		go api.Serve(ctx, cfg.API.Addr, handlers.Router())
	}

	if err := orch.Run(ctx, publishers); err != nil {
		return err
	}

	log.Info("run finished",
		"text", cfg.TextPath(),
		"csv", cfg.CSVPath(),
		"progress", cfg.ProgressPath())
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger.New(cfg.Logging.Level, cfg.Logging.Format)

	opts := browserOptions(cfg)
	opts.Headless = false

	b, err := browser.New(opts)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.InteractiveLogin(config.SignInURL, promptEnter); err != nil {
		return err
	}

	slog.Info("login session saved", "path", opts.StorageStatePath)
	return nil
}

func promptEnter() error {
	fmt.Println("Log in manually in the browser window, then press Enter here to continue...")
	_, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return err
}
