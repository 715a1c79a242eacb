package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/student-analytics/internal/cache"
	"github.com/SAP-F-2025/student-analytics/internal/events"
	"github.com/SAP-F-2025/student-analytics/internal/repositories"
	"github.com/SAP-F-2025/student-analytics/internal/validator"
)

// ServiceManager owns the lifecycle of every analytics service
type ServiceManager interface {
	Initialize(ctx context.Context) error
	Grading() GradingService
	Assessment() AssessmentService
	Student() StudentService
	Dashboard() DashboardService
	Alert() AlertService
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Workers bounds the per-student fan-out of class passes
	Workers int

	// AlertTopic is where student.risk_alert events are published
	AlertTopic string
}

// Dependencies are the shared collaborators handed to every service
type Dependencies struct {
	RepoManager repositories.RepositoryManager
	Engines     EngineSource
	Cache       *cache.CacheManager
	Publisher   events.EventPublisher
	Validator   *validator.Validator
	Logger      *slog.Logger
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	// Service instances
	gradingService    GradingService
	assessmentService AssessmentService
	studentService    StudentService
	dashboardService  DashboardService
	alertService      AlertService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// DefaultServiceManagerConfig is used when the process config leaves a
// value unset
func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		Workers:    8,
		AlertTopic: events.TopicAlerts,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}
	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully", "workers", sm.config.Workers)

	return nil
}

func (sm *serviceManager) initializeServices() error {
	if sm.deps.RepoManager == nil || sm.deps.RepoManager.GetRepository() == nil {
		return fmt.Errorf("repository not initialized")
	}
	if sm.deps.Engines == nil || sm.deps.Engines.Engine() == nil {
		return fmt.Errorf("analytics engine not available")
	}
	if sm.deps.Cache == nil {
		// a manager without a client turns every cache call into a miss
		sm.deps.Cache = cache.NewCacheManager(nil)
	}
	if sm.deps.Validator == nil {
		sm.deps.Validator = validator.New()
	}

	repo := sm.deps.RepoManager.GetRepository()
	logger := sm.deps.Logger

	sm.alertService = NewAlertService(repo, sm.deps.Engines, sm.deps.Publisher, sm.config.AlertTopic, logger)
	sm.gradingService = NewGradingService(repo, sm.deps.Engines, sm.deps.Cache, sm.deps.Publisher, sm.alertService, sm.deps.Validator, logger)
	sm.assessmentService = NewAssessmentService(repo, sm.deps.Engines, sm.deps.Cache, sm.deps.Validator, logger)
	sm.studentService = NewStudentService(repo, sm.deps.Engines, sm.deps.Cache, sm.deps.Validator, logger)
	sm.dashboardService = NewDashboardService(repo, sm.deps.Engines, sm.deps.Cache, sm.alertService, sm.deps.Validator, logger, sm.config.Workers)

	return nil
}

// Service getters
func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.gradingService
}

func (sm *serviceManager) Assessment() AssessmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.assessmentService
}

func (sm *serviceManager) Student() StudentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.studentService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.dashboardService
}

func (sm *serviceManager) Alert() AlertService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.alertService
}

// Health and lifecycle

// HealthCheck fails on the database and the cache. The cache only counts
// when a redis client is configured.
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.RepoManager.HealthCheck(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	if sm.deps.Cache.Enabled() {
		if err := sm.deps.Cache.HealthCheck(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Shutdown closes the publisher first so no event is lost to a closed
// connection, then the repositories.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if sm.deps.RepoManager != nil {
		if err := sm.deps.RepoManager.Shutdown(ctx); err != nil {
			sm.deps.Logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}

// ===== CONFIGURATION VALIDATION =====

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.Workers <= 0 {
		errors = append(errors, "workers must be positive")
	}

	if config.AlertTopic == "" {
		errors = append(errors, "alert topic is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}
