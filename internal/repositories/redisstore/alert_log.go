package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
)

const (
	alertKeyPrefix     = "alert:last:"
	defaultAlertLogTTL = 30 * 24 * time.Hour
)

var alertCategories = []analytics.AlertCategory{analytics.AlertHighRisk, analytics.AlertMediumRisk}

// AlertLog stores the last alert time per student and category as unix
// milliseconds, one key per cooldown slot.
type AlertLog struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAlertLog(client *redis.Client, ttl time.Duration) repositories.AlertLog {
	if ttl <= 0 {
		ttl = defaultAlertLogTTL
	}
	return &AlertLog{client: client, ttl: ttl}
}

func alertKey(studentID string, category analytics.AlertCategory) string {
	return alertKeyPrefix + studentID + ":" + string(category)
}

func (l *AlertLog) LastAlerts(ctx context.Context, studentIDs []string) (map[analytics.AlertKey]time.Time, error) {
	out := make(map[analytics.AlertKey]time.Time)
	if len(studentIDs) == 0 {
		return out, nil
	}

	slots := make([]analytics.AlertKey, 0, len(studentIDs)*len(alertCategories))
	keys := make([]string, 0, cap(slots))
	for _, id := range studentIDs {
		for _, c := range alertCategories {
			slots = append(slots, analytics.AlertKey{StudentID: id, Category: c})
			keys = append(keys, alertKey(id, c))
		}
	}

	values, err := l.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read alert log: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		out[slots[i]] = time.UnixMilli(ms).UTC()
	}
	return out, nil
}

func (l *AlertLog) Record(ctx context.Context, alerts []analytics.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	pipe := l.client.Pipeline()
	for _, a := range alerts {
		pipe.Set(ctx, alertKey(a.StudentID, a.Category), strconv.FormatInt(a.CreatedAt.UnixMilli(), 10), l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record alerts: %w", err)
	}
	return nil
}
