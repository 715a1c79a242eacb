package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-analytics/internal/analytics"
	"github.com/SAP-F-2025/student-analytics/internal/models"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
)

type AlertPostgreSQL struct {
	db *gorm.DB
}

func NewAlertPostgreSQL(db *gorm.DB) repositories.AlertRepository {
	return &AlertPostgreSQL{db: db}
}

func (a *AlertPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AlertPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, records []models.AlertRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := a.getDB(tx).WithContext(ctx).CreateInBatches(&records, 100).Error; err != nil {
		return fmt.Errorf("failed to create alert records: %w", err)
	}
	return nil
}

// ListByStudent returns the newest alerts first together with the total count
func (a *AlertPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, params models.ListParams) ([]models.AlertRecord, int64, error) {
	params.Normalize()
	query := func() *gorm.DB {
		return a.getDB(tx).WithContext(ctx).Model(&models.AlertRecord{}).Where("student_id = ?", studentID)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alert records: %w", err)
	}

	var records []models.AlertRecord
	err := query().Order("created_at DESC").Order("id DESC").
		Limit(params.Size).Offset(params.Offset()).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alert records: %w", err)
	}
	return records, total, nil
}

// AlertLogPostgreSQL answers cooldown lookups from the alert history. It is
// the fallback when redis is not configured.
type AlertLogPostgreSQL struct {
	db *gorm.DB
}

func NewAlertLogPostgreSQL(db *gorm.DB) repositories.AlertLog {
	return &AlertLogPostgreSQL{db: db}
}

// LastAlerts reads one row per student and category. The join picks the
// stored created_at so drivers keep its column type.
func (l *AlertLogPostgreSQL) LastAlerts(ctx context.Context, studentIDs []string) (map[analytics.AlertKey]time.Time, error) {
	out := make(map[analytics.AlertKey]time.Time)
	if len(studentIDs) == 0 {
		return out, nil
	}

	latest := l.db.Model(&models.AlertRecord{}).
		Select("student_id, category, MAX(created_at) AS created_at").
		Where("student_id IN ?", studentIDs).
		Group("student_id, category")

	var rows []struct {
		StudentID string
		Category  string
		CreatedAt time.Time
	}
	err := l.db.WithContext(ctx).
		Table("alert_records AS a").
		Select("a.student_id, a.category, a.created_at").
		Joins("JOIN (?) AS m ON m.student_id = a.student_id AND m.category = a.category AND m.created_at = a.created_at", latest).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load last alerts: %w", err)
	}

	// equal timestamps can yield more than one row per key
	for _, r := range rows {
		key := analytics.AlertKey{StudentID: r.StudentID, Category: analytics.AlertCategory(r.Category)}
		if last, ok := out[key]; !ok || r.CreatedAt.After(last) {
			out[key] = r.CreatedAt
		}
	}
	return out, nil
}

// Record is a no-op, the history rows written through AlertRepository are the log.
func (l *AlertLogPostgreSQL) Record(ctx context.Context, alerts []analytics.Alert) error {
	return nil
}
