package repositories

import "context"

// Repository groups every store the analytics services read and write
type Repository interface {
	Result() ResultRepository
	Question() QuestionRepository
	Assessment() AssessmentRepository
	Student() StudentRepository
	Alert() AlertRepository

	// AlertLog is not transactional, it lives outside the database
	AlertLog() AlertLog

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
