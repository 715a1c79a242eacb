package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", helper.GetCacheKey(pattern))
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateForResult drops every derived entity a new result can change:
// the assessment's item analysis, the student's risk and every class summary.
func InvalidateForResult(ctx context.Context, cm *CacheManager, assessmentID, studentID string) {
	SafeDelete(ctx, cm.Analysis, AssessmentKey(assessmentID))
	SafeDelete(ctx, cm.Risk, StudentKey(studentID))
	SafeInvalidatePattern(ctx, cm.Summary, "teacher:*")
}

// InvalidateAll drops every derived entity, used after the engine
// configuration or rule tables change.
func InvalidateAll(ctx context.Context, cm *CacheManager) {
	for _, helper := range []*CacheHelper{cm.Analysis, cm.Risk, cm.Summary} {
		SafeInvalidatePattern(ctx, helper, "*")
	}
}

func AssessmentKey(assessmentID string) string {
	return "assessment:" + assessmentID
}

func StudentKey(studentID string) string {
	return "student:" + studentID
}

func TeacherKey(teacherID string) string {
	return "teacher:" + teacherID
}
