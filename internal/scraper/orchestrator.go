package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/browser"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/config"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/extract"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/queue"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/ratelimit"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/store"
)

// EventSink receives a notification for every recorded asset. Publishing is
// best effort; implementations must not fail the run.
type EventSink interface {
	DiscountFound(ctx context.Context, res *models.AssetResult)
}

// Orchestrator drives the whole crawl: listing collection per publisher,
// batched concurrent page visits with response interception, and sequential
// persistence.
type Orchestrator struct {
	browser   *browser.Browser
	store     *store.Store
	events    EventSink
	collector *Collector
	progress  *Progress

	origin       string
	cfg          config.Scraper
	batchLimiter ratelimit.RateLimiter
	logger       *slog.Logger
}

func NewOrchestrator(b *browser.Browser, st *store.Store, events EventSink, cfg config.Scraper, origin string) *Orchestrator {
	progress := NewProgress()

	return &Orchestrator{
		browser:      b,
		store:        st,
		events:       events,
		collector:    NewCollector(origin, cfg.PageSize, ratelimit.NewSimpleRateLimiter(cfg.PageWaitMin, cfg.PageWaitMax), progress),
		progress:     progress,
		origin:       origin,
		cfg:          cfg,
		batchLimiter: ratelimit.NewSimpleRateLimiter(cfg.BatchWaitMin, cfg.BatchWaitMax),
		logger:       slog.Default().With("component", "orchestrator"),
	}
}

func (o *Orchestrator) Progress() *Progress {
	return o.progress
}

// Run crawls every publisher in order. A publisher failure is logged and
// the next publisher is attempted; cancellation stops the run.
func (o *Orchestrator) Run(ctx context.Context, publishers []models.Publisher) error {
	for _, pub := range publishers {
		if err := o.runPublisher(ctx, pub); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			o.logger.Error("publisher crawl failed", "publisher", pub.Name, "error", err)
		}
	}

	o.logger.Info("all publishers processed",
		"assets", o.progress.Snapshot().AssetsProcessed,
		"rows", o.progress.Snapshot().RowsWritten)
	return nil
}

func (o *Orchestrator) runPublisher(ctx context.Context, pub models.Publisher) error {
	o.logger.Info("starting publisher", "publisher", pub.Name, "url", pub.URL)
	o.progress.SetPublisher(pub.Name)

	page, err := o.browser.NewPage()
	if err != nil {
		return err
	}

	links, err := o.collector.CollectAssetLinks(ctx, page, pub.URL)
	page.Close()
	if err != nil {
		return err
	}

	o.progress.AddLinks(len(links))

	q, skipped := pendingTasks(links, pub, o.store.IsProcessed)

	o.logger.Info("queued assets", "publisher", pub.Name, "pending", q.Size(), "already_processed", skipped)

	batches := queue.NewBatchQueue(q, o.cfg.BatchSize)
	batchNum := 0

	for {
		tasks, err := batches.PopBatch()
		if err != nil {
			if errors.Is(err, queue.ErrQueueEmpty) {
				break
			}
			return err
		}

		batchNum++
		if err := o.processBatch(ctx, batchNum, tasks); err != nil {
			return err
		}

		o.progress.AddBatch()

		if err := o.batchLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	o.logger.Info("publisher done", "publisher", pub.Name, "batches", batchNum)
	return nil
}

// pendingTasks queues every link not in the processed set, preserving
// order, and reports how many were skipped. A processed link never enters
// a batch.
func pendingTasks(links []string, pub models.Publisher, isProcessed func(string) bool) (*queue.FIFOQueue, int) {
	q := queue.NewFIFOQueue()
	skipped := 0

	for _, link := range links {
		if isProcessed(link) {
			skipped++
			continue
		}
		q.Push(queue.NewTask(link, pub))
	}
	q.Close()

	return q, skipped
}

// visit is one in-flight asset page: the page, its fact sink, and the
// navigation outcome.
type visit struct {
	task   *queue.Task
	page   playwright.Page
	facts  *extract.Facts
	navErr error
}

// openAsset creates a page for a task and attaches the response
// interceptor before navigation so no early response is missed.
func (o *Orchestrator) openAsset(task *queue.Task) *visit {
	v := &visit{
		task:  task,
		facts: extract.NewFacts(o.origin),
	}

	page, err := o.browser.NewPage()
	if err != nil {
		v.navErr = err
		return v
	}
	v.page = page

	facts := v.facts
	page.OnResponse(func(resp playwright.Response) {
		// Extraction is best effort: any failure just yields no facts
		// for this response.
		headers, err := resp.AllHeaders()
		if err != nil {
			return
		}
		if !strings.Contains(headers["content-type"], "application/json") {
			return
		}

		body, err := resp.Body()
		if err != nil || !extract.LooksRelevant(body) {
			return
		}

		var data any
		if err := json.Unmarshal(body, &data); err != nil {
			return
		}

		facts.Collect(data)
	})

	return v
}

func (o *Orchestrator) processBatch(ctx context.Context, batchNum int, tasks []*queue.Task) error {
	o.logger.Info("processing batch", "batch", batchNum, "size", len(tasks), "publisher", tasks[0].Publisher.Name)

	visits := make([]*visit, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		visits[i] = o.openAsset(task)
		if visits[i].navErr != nil {
			continue
		}

		wg.Add(1)
		go func(v *visit) {
			defer wg.Done()
			o.logger.Info("opening asset", "url", v.task.Link)
			if _, err := v.page.Goto(v.task.Link, playwright.PageGotoOptions{
				WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			}); err != nil {
				v.navErr = err
			}
		}(visits[i])
	}

	wg.Wait()

	// Give late background responses time to arrive before reading facts.
	o.logger.Info("waiting for network responses", "delay", o.cfg.SettleDelay)
	if err := sleepCtx(ctx, o.cfg.SettleDelay); err != nil {
		o.closePages(visits)
		return err
	}

	for _, v := range visits {
		if v.navErr != nil {
			o.progress.AddNavFailure()
			o.logger.Warn("asset navigation failed, recording empty facts", "url", v.task.Link, "error", v.navErr)
		}

		res := o.resultFromVisit(v)

		rows, err := o.store.Record(res)
		if err != nil {
			o.logger.Error("failed to record asset", "url", v.task.Link, "error", err)
		} else {
			o.progress.AddAsset(len(rows))
			for _, row := range rows {
				o.logger.Info("recorded", "row", row.Text)
			}
			if o.events != nil {
				o.events.DiscountFound(ctx, res)
			}
		}

		if v.page != nil {
			v.page.Close()
		}
	}

	o.logger.Info("batch done", "batch", batchNum)
	return nil
}

func (o *Orchestrator) resultFromVisit(v *visit) *models.AssetResult {
	return &models.AssetResult{
		Name:      v.facts.Name(store.FallbackName(v.task.Link)),
		URL:       v.task.Link,
		Prices:    v.facts.Prices(),
		Upgrades:  v.facts.Upgrades(),
		Publisher: v.task.Publisher,
		VisitedAt: time.Now(),
	}
}

func (o *Orchestrator) closePages(visits []*visit) {
	for _, v := range visits {
		if v.page != nil {
			v.page.Close()
		}
	}
}
