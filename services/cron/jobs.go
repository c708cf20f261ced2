package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/classmate-ai/backend/model"
)

// staleProcessingAfter is how long a content item may sit in "processing"
// before we assume its worker died (process restart mid-job) and requeue it.
const staleProcessingAfter = 30 * time.Minute

// RequeueStaleIngestions finds content items stuck in processing and puts
// them back on the ingestion queue. The queue is in-process, so a crash
// between markProcessing and commit leaves orphaned rows only this job heals.
func (m *CronManager) RequeueStaleIngestions() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "requeue_stale_ingestions"
	cutoff := time.Now().UTC().Add(-staleProcessingAfter)

	var stale []model.CourseContent
	err := m.db.WithContext(ctx).
		Where("ingestion_status = ? AND ingestion_started_at < ?", model.IngestionStatusProcessing, cutoff).
		Find(&stale).Error
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to query stale ingestions: %w", err))
		return
	}

	if len(stale) == 0 {
		m.logJobComplete(jobName, "No stale ingestions found")
		return
	}

	requeued := 0
	for _, content := range stale {
		if err := m.queue.Enqueue(ctx, content.ID); err != nil {
			log.Printf("[CRON] Failed to requeue content %s: %v", content.ID, err)
			continue
		}
		requeued++
	}

	m.logJobComplete(jobName, fmt.Sprintf("Requeued %d of %d stale ingestions", requeued, len(stale)))
}

// CleanupTokenBlacklist deletes blacklist entries whose tokens have expired.
// Expired tokens fail JWT validation on their own, so the rows are dead weight.
func (m *CronManager) CleanupTokenBlacklist() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "cleanup_token_blacklist"

	result := m.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&model.JWTTokenBlacklist{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete expired tokens: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deleted %d expired blacklist entries", result.RowsAffected))
}
