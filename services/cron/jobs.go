package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/elms-api/model"
)

// abandonedAfter is how long an unverified order may sit before it is counted
const abandonedAfter = 24 * time.Hour

// CleanupExpiredTokens removes blacklist rows whose token has expired
func (m *CronManager) CleanupExpiredTokens() (*jobResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := m.blacklist.CleanupExpiredTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clean up token blacklist: %w", err)
	}

	return &jobResult{
		Message:  fmt.Sprintf("Removed %d expired blacklist entries", deleted),
		Metadata: map[string]interface{}{"deleted": deleted},
	}, nil
}

// ReportAbandonedCheckouts counts checkout attempts still failed with an order
// older than a day. The rows are kept as the record of attempts.
func (m *CronManager) ReportAbandonedCheckouts() (*jobResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := m.now().Add(-abandonedAfter)

	var stats struct {
		Count   int64
		Courses int64
	}
	err := m.db.WithContext(ctx).Model(&model.Payment{}).
		Select("COUNT(*) AS count, COUNT(DISTINCT course_id) AS courses").
		Where("status = ? AND order_id IS NOT NULL AND created_at < ?", model.PaymentStatusFailed, cutoff).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count abandoned checkouts: %w", err)
	}

	return &jobResult{
		Message:  fmt.Sprintf("%d abandoned checkouts across %d courses", stats.Count, stats.Courses),
		Metadata: map[string]interface{}{
			"abandoned": stats.Count,
			"courses":   stats.Courses,
			"cutoff":    cutoff.UTC().Format(time.RFC3339),
		},
	}, nil
}
