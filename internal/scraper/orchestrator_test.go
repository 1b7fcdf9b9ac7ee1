package scraper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
	"github.com/upgradewatch/unity-upgrade-scraper/internal/queue"
)

var testPub = models.Publisher{Name: "ARTnGAME", URL: "https://assetstore.unity.com/publishers/6503"}

func assetLinks(n int) []string {
	links := make([]string, n)
	for i := range links {
		links[i] = fmt.Sprintf("https://assetstore.unity.com/packages/%d", i)
	}
	return links
}

func TestPendingTasksExcludesProcessed(t *testing.T) {
	links := assetLinks(5)
	processed := map[string]bool{
		links[1]: true,
		links[3]: true,
	}

	q, skipped := pendingTasks(links, testPub, func(link string) bool { return processed[link] })

	assert.Equal(t, 2, skipped)
	assert.Equal(t, 3, q.Size())

	for _, want := range []string{links[0], links[2], links[4]} {
		task, err := q.Pop()
		require.NoError(t, err)
		assert.Equal(t, want, task.Link)
		assert.Equal(t, testPub, task.Publisher)
	}
}

func TestPendingTasksAllProcessed(t *testing.T) {
	links := assetLinks(3)

	q, skipped := pendingTasks(links, testPub, func(string) bool { return true })

	assert.Equal(t, 3, skipped)
	assert.Equal(t, 0, q.Size())

	// A fully-skipped publisher drains immediately: no batch runs.
	batches := queue.NewBatchQueue(q, 10)
	_, err := batches.PopBatch()
	assert.ErrorIs(t, err, queue.ErrQueueEmpty)
}

func TestPendingTasksBatchPartition(t *testing.T) {
	q, _ := pendingTasks(assetLinks(25), testPub, func(string) bool { return false })
	batches := queue.NewBatchQueue(q, 10)

	var sizes []int
	for {
		tasks, err := batches.PopBatch()
		if err != nil {
			break
		}
		sizes = append(sizes, len(tasks))
	}

	assert.Equal(t, []int{10, 10, 5}, sizes)
}

func TestProgressSnapshot(t *testing.T) {
	p := NewProgress()
	p.SetPublisher("ARTnGAME")
	p.AddListingPage()
	p.AddListingPage()
	p.AddLinks(96)
	p.AddAsset(3)
	p.AddAsset(1)
	p.AddBatch()
	p.AddNavFailure()

	snap := p.Snapshot()
	assert.Equal(t, "ARTnGAME", snap.CurrentPublisher)
	assert.Equal(t, 2, snap.ListingPages)
	assert.Equal(t, 96, snap.LinksFound)
	assert.Equal(t, 2, snap.AssetsProcessed)
	assert.Equal(t, 4, snap.RowsWritten)
	assert.Equal(t, 1, snap.BatchesDone)
	assert.Equal(t, 1, snap.NavFailures)
	assert.False(t, snap.StartedAt.IsZero())
}
