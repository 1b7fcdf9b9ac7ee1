package scraper

import (
	"sync"
	"time"
)

// Progress tracks run counters for logging and the status API.
type Progress struct {
	mu               sync.Mutex
	startedAt        time.Time
	currentPublisher string
	listingPages     int
	linksFound       int
	assetsProcessed  int
	rowsWritten      int
	batchesDone      int
	navFailures      int
}

func NewProgress() *Progress {
	return &Progress{startedAt: time.Now()}
}

type ProgressSnapshot struct {
	StartedAt        time.Time `json:"started_at"`
	CurrentPublisher string    `json:"current_publisher"`
	ListingPages     int       `json:"listing_pages"`
	LinksFound       int       `json:"links_found"`
	AssetsProcessed  int       `json:"assets_processed"`
	RowsWritten      int       `json:"rows_written"`
	BatchesDone      int       `json:"batches_done"`
	NavFailures      int       `json:"nav_failures"`
}

func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressSnapshot{
		StartedAt:        p.startedAt,
		CurrentPublisher: p.currentPublisher,
		ListingPages:     p.listingPages,
		LinksFound:       p.linksFound,
		AssetsProcessed:  p.assetsProcessed,
		RowsWritten:      p.rowsWritten,
		BatchesDone:      p.batchesDone,
		NavFailures:      p.navFailures,
	}
}

func (p *Progress) SetPublisher(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentPublisher = name
}

func (p *Progress) AddListingPage() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listingPages++
}

func (p *Progress) AddLinks(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.linksFound += n
}

func (p *Progress) AddAsset(rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assetsProcessed++
	p.rowsWritten += rows
}

func (p *Progress) AddBatch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batchesDone++
}

func (p *Progress) AddNavFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navFailures++
}
