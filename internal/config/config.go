package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
)

// DefaultPublisher is used when publishers.txt is absent or empty.
var DefaultPublisher = models.Publisher{
	Name: "ARTnGAME",
	URL:  "https://assetstore.unity.com/publishers/6503?pageSize=96",
}

const (
	StoreOrigin = "https://assetstore.unity.com"
	SignInURL   = StoreOrigin + "/sign-in"
)

type Config struct {
	Scraper Scraper
	Browser Browser
	Output  Output
	Events  Events
	API     API
	Logging Logging
}

type Scraper struct {
	BatchSize    int
	PageSize     int
	SettleDelay  time.Duration
	PageWaitMin  time.Duration
	PageWaitMax  time.Duration
	BatchWaitMin time.Duration
	BatchWaitMax time.Duration
}

type Browser struct {
	Headless         bool
	SlowMo           time.Duration
	NavTimeout       time.Duration
	UserAgent        string
	ViewportWidth    int
	ViewportHeight   int
	StorageStatePath string
}

type Output struct {
	Dir            string
	TextFile       string
	CSVFile        string
	ProgressFile   string
	PublishersFile string
}

type Events struct {
	RedisAddr string
	Stream    string
}

type API struct {
	Addr string
}

type Logging struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Scraper: Scraper{
			BatchSize:    getIntOrDefault("SCRAPER_BATCH_SIZE", 10),
			PageSize:     getIntOrDefault("SCRAPER_PAGE_SIZE", 96),
			SettleDelay:  getDurationOrDefault("SCRAPER_SETTLE_DELAY", 10*time.Second),
			PageWaitMin:  getDurationOrDefault("SCRAPER_PAGE_WAIT_MIN", 1*time.Second),
			PageWaitMax:  getDurationOrDefault("SCRAPER_PAGE_WAIT_MAX", 2*time.Second),
			BatchWaitMin: getDurationOrDefault("SCRAPER_BATCH_WAIT_MIN", 1*time.Second),
			BatchWaitMax: getDurationOrDefault("SCRAPER_BATCH_WAIT_MAX", 3*time.Second),
		},
		Browser: Browser{
			Headless:         getBoolOrDefault("BROWSER_HEADLESS", true),
			SlowMo:           getDurationOrDefault("BROWSER_SLOW_MO", 30*time.Millisecond),
			NavTimeout:       getDurationOrDefault("BROWSER_NAV_TIMEOUT", 120*time.Second),
			UserAgent:        getEnvOrDefault("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"),
			ViewportWidth:    getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight:   getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			StorageStatePath: getEnvOrDefault("BROWSER_STORAGE_STATE", "storage_state.json"),
		},
		Output: Output{
			Dir:            getEnvOrDefault("OUTPUT_DIR", "."),
			TextFile:       getEnvOrDefault("OUTPUT_TEXT_FILE", "unity_upgrade_discounts.txt"),
			CSVFile:        getEnvOrDefault("OUTPUT_CSV_FILE", "unity_upgrade_discounts.csv"),
			ProgressFile:   getEnvOrDefault("OUTPUT_PROGRESS_FILE", "processed_assets.txt"),
			PublishersFile: getEnvOrDefault("PUBLISHERS_FILE", "publishers.txt"),
		},
		Events: Events{
			RedisAddr: getEnvOrDefault("REDIS_ADDR", ""),
			Stream:    getEnvOrDefault("REDIS_STREAM", "stream:upgrade_discounts"),
		},
		API: API{
			Addr: getEnvOrDefault("STATUS_ADDR", ""),
		},
		Logging: Logging{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.BatchSize < 1 {
		return fmt.Errorf("SCRAPER_BATCH_SIZE must be at least 1")
	}

	if c.Scraper.PageSize < 1 {
		return fmt.Errorf("SCRAPER_PAGE_SIZE must be at least 1")
	}

	if c.Scraper.PageWaitMin > c.Scraper.PageWaitMax {
		return fmt.Errorf("SCRAPER_PAGE_WAIT_MIN cannot be greater than SCRAPER_PAGE_WAIT_MAX")
	}

	if c.Scraper.BatchWaitMin > c.Scraper.BatchWaitMax {
		return fmt.Errorf("SCRAPER_BATCH_WAIT_MIN cannot be greater than SCRAPER_BATCH_WAIT_MAX")
	}

	return nil
}

// TextPath returns the absolute-ish path of the pipe-delimited output file.
func (c *Config) TextPath() string { return filepath.Join(c.Output.Dir, c.Output.TextFile) }

// CSVPath returns the path of the CSV output file.
func (c *Config) CSVPath() string { return filepath.Join(c.Output.Dir, c.Output.CSVFile) }

// ProgressPath returns the path of the processed-set file.
func (c *Config) ProgressPath() string { return filepath.Join(c.Output.Dir, c.Output.ProgressFile) }

// LoadPublishers reads publishers.txt (lines of "name,url"; blanks and
// '#'-comments skipped). A missing file or a file with no usable lines
// falls back to DefaultPublisher.
func LoadPublishers(path string) ([]models.Publisher, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Publisher{DefaultPublisher}, nil
		}
		return nil, fmt.Errorf("failed to open publishers file: %w", err)
	}
	defer f.Close()

	var publishers []models.Publisher

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, url, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}

		name = strings.TrimSpace(name)
		url = strings.TrimSpace(url)
		if name == "" || url == "" {
			continue
		}

		publishers = append(publishers, models.Publisher{Name: name, URL: url})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read publishers file: %w", err)
	}

	if len(publishers) == 0 {
		return []models.Publisher{DefaultPublisher}, nil
	}

	return publishers, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
