package testutil

import (
	"context"
	"time"

	"github.com/freelanceops/billing/internal/cache"
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/domain/credit"
	"github.com/freelanceops/billing/internal/domain/invoice"
	"github.com/freelanceops/billing/internal/domain/notification"
	"github.com/freelanceops/billing/internal/domain/payment"
	"github.com/freelanceops/billing/internal/domain/recurring"
	"github.com/freelanceops/billing/internal/domain/scheduledinvoice"
	"github.com/freelanceops/billing/internal/domain/schedulerlock"
	"github.com/freelanceops/billing/internal/domain/task"
	"github.com/freelanceops/billing/internal/domain/webhookdelivery"
	"github.com/freelanceops/billing/internal/domain/workflow"
	"github.com/freelanceops/billing/internal/email"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/publisher"
	"github.com/freelanceops/billing/internal/repository"
	"github.com/freelanceops/billing/internal/security"
	"github.com/freelanceops/billing/internal/sentry"
	"github.com/freelanceops/billing/internal/types"
	"github.com/freelanceops/billing/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	InvoiceRepo          invoice.Repository
	PaymentRepo          payment.Repository
	CreditRepo           credit.Repository
	RecurringRepo        recurring.Repository
	ScheduledInvoiceRepo scheduledinvoice.Repository
	TriggerRepo          workflow.TriggerRepository
	ExecutionRepo        workflow.ExecutionRepository
	EventLogRepo         workflow.EventLogRepository
	WebhookDeliveryRepo  webhookdelivery.Repository
	TaskRepo             task.Repository
	NotificationRepo     notification.Repository
	SchedulerLockRepo    schedulerlock.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites. Every
// test runs against a fresh in-memory SQLite database with the full schema applied.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx        context.Context
	stores     Stores
	publisher  publisher.EventPublisher
	db         *db.DB
	logger     *logger.Logger
	config     *config.Configuration
	cache      cache.Cache
	sentry     *sentry.Service
	encryption security.EncryptionService
	email      *email.CapturingSender
	httpClient *MockHTTPClient
	now        time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Database.SQLitePath = db.MemoryDSN
	cfg.Database.AutoMigrate = true
	cfg.Database.TxMaxRetries = 1
	cfg.Secrets.EncryptionKey = "test-encryption-key-for-unit-tests-only"
	cfg.Scheduler.Enabled = false
	// deliveries stay pending so tests drive attempts explicitly
	cfg.Webhook.Enabled = false
	cfg.Cache.Enabled = false
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.encryption, err = security.NewEncryptionService(cfg, s.logger)
	if err != nil {
		s.T().Fatalf("failed to create encryption service: %v", err)
	}
	s.sentry = sentry.NewSentryService(cfg, s.logger)
	s.cache = cache.NewInMemoryCache(cfg, s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupDB()
	s.setupStores()
	s.publisher = publisher.NewEventPublisher(s.db, s.logger)
	s.email = &email.CapturingSender{}
	s.httpClient = NewMockHTTPClient()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
	s.cache.Flush(context.Background())
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupDB() {
	database, err := db.NewDB(s.config, s.logger)
	if err != nil {
		s.T().Fatalf("failed to open test database: %v", err)
	}
	s.db = database
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		InvoiceRepo:          repository.NewInvoiceRepository(s.db, s.logger),
		PaymentRepo:          repository.NewPaymentRepository(s.db, s.logger),
		CreditRepo:           repository.NewCreditRepository(s.db, s.logger),
		RecurringRepo:        repository.NewRecurringRepository(s.db, s.logger),
		ScheduledInvoiceRepo: repository.NewScheduledInvoiceRepository(s.db, s.logger),
		TriggerRepo:          repository.NewTriggerRepository(s.db, s.logger),
		ExecutionRepo:        repository.NewExecutionRepository(s.db, s.logger),
		EventLogRepo:         repository.NewEventLogRepository(s.db, s.logger),
		WebhookDeliveryRepo:  repository.NewWebhookDeliveryRepository(s.db, s.logger),
		TaskRepo:             repository.NewTaskRepository(s.db, s.logger),
		NotificationRepo:     repository.NewNotificationRepository(s.db, s.logger),
		SchedulerLockRepo:    repository.NewSchedulerLockRepository(s.db, s.logger),
	}
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPublisher returns the after-commit event publisher
func (s *BaseServiceTestSuite) GetPublisher() publisher.EventPublisher {
	return s.publisher
}

// GetDB returns the test database
func (s *BaseServiceTestSuite) GetDB() *db.DB {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetSentry returns a disabled sentry service
func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

// GetEncryption returns the test encryption service
func (s *BaseServiceTestSuite) GetEncryption() security.EncryptionService {
	return s.encryption
}

// GetEmailSender returns the sender capturing every outbound email
func (s *BaseServiceTestSuite) GetEmailSender() *email.CapturingSender {
	return s.email
}

// GetHTTPClient returns the mock client webhook deliveries are sent through
func (s *BaseServiceTestSuite) GetHTTPClient() *MockHTTPClient {
	return s.httpClient
}

// GetNow returns the time the current test started at
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
