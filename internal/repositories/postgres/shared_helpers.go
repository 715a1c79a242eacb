package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/student-analytics/internal/repositories"
)

// notFound maps gorm's missing-record error onto repositories.ErrNotFound
func notFound(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", entity, id, repositories.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}

// applyResultFilters applies the optional result filters to a query
func applyResultFilters(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	if filters.Subject != nil {
		query = query.Where("LOWER(subject) = LOWER(?)", *filters.Subject)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("completed_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("completed_at <= ?", *filters.DateTo)
	}
	return query
}

// chronological orders results the way the engine expects to read them
func chronological(query *gorm.DB) *gorm.DB {
	return query.Order("completed_at ASC").Order("id ASC")
}

func preloadAnswers(query *gorm.DB) *gorm.DB {
	return query.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}
