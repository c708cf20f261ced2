package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classmate-ai/backend/model"
)

// ErrQueueFull is returned when the ingestion backlog is saturated.
// Callers surface it to the client; the item stays re-enqueueable.
var ErrQueueFull = errors.New("ingestion queue is full")

const ingestJobTimeout = 10 * time.Minute

// IngestQueue feeds content ids to a fixed pool of ingestion workers through
// a buffered channel. Enqueueing marks the item queued so clients can poll
// the status while the job waits for a worker.
type IngestQueue struct {
	svc  *IngestionService
	db   *gorm.DB
	jobs chan uuid.UUID
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// NewIngestQueue creates the queue and starts its workers
func NewIngestQueue(svc *IngestionService, db *gorm.DB, workers int) *IngestQueue {
	if workers <= 0 {
		workers = 4
	}
	q := &IngestQueue{
		svc:  svc,
		db:   db,
		jobs: make(chan uuid.UUID, 256),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	log.Printf("Ingest queue: started %d workers", workers)
	return q
}

// Enqueue marks the content queued and hands it to the worker pool.
// Returns ErrQueueFull when the backlog channel is saturated.
func (q *IngestQueue) Enqueue(ctx context.Context, contentID uuid.UUID) error {
	err := q.db.WithContext(ctx).Model(&model.CourseContent{}).
		Where("id = ?", contentID).
		Updates(map[string]interface{}{
			"ingestion_status":  model.IngestionStatusQueued,
			"ingestion_warning": "",
			"ingestion_error":   "",
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark content %s queued: %w", contentID, err)
	}

	select {
	case q.jobs <- contentID:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *IngestQueue) worker(id int) {
	defer q.wg.Done()
	for contentID := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), ingestJobTimeout)
		if err := q.svc.IngestContent(ctx, contentID); err != nil {
			log.Printf("Ingest worker %d: content %s failed: %v", id, contentID, err)
		}
		cancel()
	}
}

// Shutdown stops accepting jobs and waits for in-flight work to finish
func (q *IngestQueue) Shutdown() {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
}
