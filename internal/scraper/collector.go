package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/playwright-community/playwright-go"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/ratelimit"
)

// ListingPage is the slice of playwright.Page the collector needs; tests
// substitute a fake.
type ListingPage interface {
	Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error)
	Content() (string, error)
}

// Collector walks a publisher's paginated listing and accumulates the
// deduplicated set of asset page URLs.
type Collector struct {
	origin     string
	pageSize   int
	renderWait time.Duration
	limiter    ratelimit.RateLimiter
	progress   *Progress
	logger     *slog.Logger
}

func NewCollector(origin string, pageSize int, limiter ratelimit.RateLimiter, progress *Progress) *Collector {
	return &Collector{
		origin:     origin,
		pageSize:   pageSize,
		renderWait: 2 * time.Second,
		limiter:    limiter,
		progress:   progress,
		logger:     slog.Default().With("component", "collector"),
	}
}

// CollectAssetLinks fetches successive listing pages until one yields zero
// links or fewer than the page size, and returns the sorted deduplicated
// asset URLs.
func (c *Collector) CollectAssetLinks(ctx context.Context, page ListingPage, baseURL string) ([]string, error) {
	links := mapset.NewThreadUnsafeSet[string]()

	for pageNum := 1; ; pageNum++ {
		url := listingPageURL(baseURL, pageNum)
		c.logger.Info("visiting listing page", "page", pageNum, "url", url)

		if _, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		}); err != nil {
			return nil, fmt.Errorf("failed to load listing page %d: %w", pageNum, err)
		}

		// Asset tiles render client-side after domcontentloaded.
		if err := sleepCtx(ctx, c.renderWait); err != nil {
			return nil, err
		}

		html, err := page.Content()
		if err != nil {
			return nil, fmt.Errorf("failed to read listing page %d: %w", pageNum, err)
		}

		pageLinks, err := ParseAssetLinks(html, c.origin)
		if err != nil {
			return nil, fmt.Errorf("failed to parse listing page %d: %w", pageNum, err)
		}

		if c.progress != nil {
			c.progress.AddListingPage()
		}

		if len(pageLinks) == 0 {
			c.logger.Info("no assets on listing page, stopping", "page", pageNum)
			break
		}

		c.logger.Info("found assets on listing page", "page", pageNum, "count", len(pageLinks))
		links.Append(pageLinks...)

		if len(pageLinks) < c.pageSize {
			c.logger.Info("short listing page, reached last page", "page", pageNum)
			break
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	out := links.ToSlice()
	sort.Strings(out)

	c.logger.Info("listing crawl done", "total_assets", len(out))
	return out, nil
}

// ParseAssetLinks extracts absolutized asset page URLs from listing HTML.
func ParseAssetLinks(html, origin string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	set := mapset.NewThreadUnsafeSet[string]()
	doc.Find(`a[href^="/packages/"]`).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && strings.Contains(href, "/packages/") {
			set.Add(origin + href)
		}
	})

	return set.ToSlice(), nil
}

func listingPageURL(baseURL string, pageNum int) string {
	sep := "&"
	if !strings.Contains(baseURL, "?") {
		sep = "?"
	}
	return fmt.Sprintf("%s%spage=%d", baseURL, sep, pageNum)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
