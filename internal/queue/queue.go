package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
)

// Task is one asset page visit waiting to be processed.
type Task struct {
	ID        string
	Link      string
	Publisher models.Publisher
	CreatedAt time.Time
}

func NewTask(link string, pub models.Publisher) *Task {
	return &Task{
		ID:        uuid.New().String(),
		Link:      link,
		Publisher: pub,
		CreatedAt: time.Now(),
	}
}

// FIFOQueue is an in-memory task queue. The orchestrator fills it with a
// publisher's unprocessed links and drains it batch by batch, so Pop never
// needs to block on future pushes.
type FIFOQueue struct {
	mu     sync.Mutex
	tasks  []*Task
	closed bool
}

func NewFIFOQueue() *FIFOQueue {
	return &FIFOQueue{tasks: make([]*Task, 0)}
}

func (q *FIFOQueue) Push(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.tasks = append(q.tasks, task)
	return nil
}

func (q *FIFOQueue) Pop() (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		return nil, ErrQueueEmpty
	}

	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, nil
}

func (q *FIFOQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *FIFOQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}

// BatchQueue pops fixed-size batches off an underlying queue.
type BatchQueue struct {
	queue     *FIFOQueue
	batchSize int
}

func NewBatchQueue(q *FIFOQueue, batchSize int) *BatchQueue {
	return &BatchQueue{
		queue:     q,
		batchSize: batchSize,
	}
}

func (b *BatchQueue) PushBatch(tasks []*Task) error {
	for _, task := range tasks {
		if err := b.queue.Push(task); err != nil {
			return err
		}
	}
	return nil
}

// PopBatch returns up to batchSize tasks. ErrQueueEmpty means the queue is
// fully drained.
func (b *BatchQueue) PopBatch() ([]*Task, error) {
	var tasks []*Task

	for i := 0; i < b.batchSize; i++ {
		task, err := b.queue.Pop()
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) || errors.Is(err, ErrQueueClosed) {
				break
			}
			return tasks, err
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, ErrQueueEmpty
	}

	return tasks, nil
}
