package browser

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless         bool
	SlowMo           time.Duration
	NavTimeout       time.Duration
	UserAgent        string
	ViewportWidth    int
	ViewportHeight   int
	StorageStatePath string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:         true,
		SlowMo:           30 * time.Millisecond,
		NavTimeout:       120 * time.Second,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		ViewportWidth:    1920,
		ViewportHeight:   1080,
		StorageStatePath: "storage_state.json",
	}
}

// HasSession reports whether a saved storage state exists on disk, meaning
// a previous run already went through the manual login.
func (o *Options) HasSession() bool {
	_, err := os.Stat(o.StorageStatePath)
	return err == nil
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	b := &Browser{
		pw:     pw,
		opts:   opts,
		logger: slog.Default().With("component", "browser"),
	}

	if err := b.launch(opts.Headless); err != nil {
		pw.Stop()
		return nil, err
	}

	return b, nil
}

func (b *Browser) launch(headless bool) error {
	browser, err := b.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		SlowMo:   playwright.Float(float64(b.opts.SlowMo.Milliseconds())),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  b.opts.ViewportWidth,
			Height: b.opts.ViewportHeight,
		},
	}

	if b.opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(b.opts.UserAgent)
	}

	if b.opts.HasSession() {
		contextOpts.StorageStatePath = playwright.String(b.opts.StorageStatePath)
		b.logger.Info("restoring saved login session", "path", b.opts.StorageStatePath)
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	b.browser = browser
	b.context = context
	return nil
}

// InteractiveLogin opens the sign-in page, blocks on prompt (the operator
// logging in by hand), then saves the session's storage state to disk.
func (b *Browser) InteractiveLogin(signInURL string, prompt func() error) error {
	page, err := b.NewPage()
	if err != nil {
		return err
	}
	defer page.Close()

	if _, err := page.Goto(signInURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("failed to open sign-in page: %w", err)
	}

	if err := prompt(); err != nil {
		return err
	}

	if _, err := b.context.StorageState(b.opts.StorageStatePath); err != nil {
		return fmt.Errorf("failed to save storage state: %w", err)
	}

	b.logger.Info("saved login session", "path", b.opts.StorageStatePath)
	return nil
}

// Relaunch tears down the current browser and starts a fresh one in the
// given headless mode, restoring the saved session. Used after the first
// headed login to continue the run headless.
func (b *Browser) Relaunch(headless bool) error {
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			b.logger.Warn("failed to close context before relaunch", "error", err)
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			b.logger.Warn("failed to close browser before relaunch", "error", err)
		}
	}

	return b.launch(headless)
}

func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.opts.NavTimeout.Milliseconds()))

	return page, nil
}

func (b *Browser) Context() playwright.BrowserContext {
	return b.context
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
