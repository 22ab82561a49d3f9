package service

import (
	"bandhan-service/internal/bucketing"
	"bandhan-service/internal/client"
	"bandhan-service/internal/config"
	"bandhan-service/internal/encryption"
	"bandhan-service/internal/hashing"
	"bandhan-service/internal/repository/clickhouse"
	redisrepo "bandhan-service/internal/repository/redis"
	"bandhan-service/internal/repository/scylla"
	"bandhan-service/internal/token"

	"go.uber.org/zap"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg              *config.Config
	userRepo         *scylla.UserRepository
	consentRepo      *scylla.ConsentRepository
	otpRepo          *scylla.OTPRepository
	auditRepo        *clickhouse.AuditRepository
	otpCache         *redisrepo.OTPCache
	rateLimitCache   *redisrepo.RateLimitCache
	quotaCache       *redisrepo.QuotaCache
	upsellCache      *redisrepo.UpsellCache
	esClient         *client.ESClient
	producer         *client.KafkaProducer
	smsClient        *client.SMSClient
	digilockerClient *client.DigiLockerClient
	hasher           *hashing.Hasher
	encryptionMgr    *encryption.Manager
	bucketingMgr     *bucketing.Manager
	tokenMgr         *token.Manager
	logger           *zap.Logger

	auditService        *AuditService
	authService         *AuthService
	consentService      *ConsentService
	quotaService        *QuotaService
	userService         *UserService
	verificationService *VerificationService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(
	cfg *config.Config,
	userRepo *scylla.UserRepository,
	consentRepo *scylla.ConsentRepository,
	otpRepo *scylla.OTPRepository,
	auditRepo *clickhouse.AuditRepository,
	otpCache *redisrepo.OTPCache,
	rateLimitCache *redisrepo.RateLimitCache,
	quotaCache *redisrepo.QuotaCache,
	upsellCache *redisrepo.UpsellCache,
	esClient *client.ESClient,
	producer *client.KafkaProducer,
	smsClient *client.SMSClient,
	digilockerClient *client.DigiLockerClient,
	hasher *hashing.Hasher,
	encryptionMgr *encryption.Manager,
	bucketingMgr *bucketing.Manager,
	tokenMgr *token.Manager,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:              cfg,
		userRepo:         userRepo,
		consentRepo:      consentRepo,
		otpRepo:          otpRepo,
		auditRepo:        auditRepo,
		otpCache:         otpCache,
		rateLimitCache:   rateLimitCache,
		quotaCache:       quotaCache,
		upsellCache:      upsellCache,
		esClient:         esClient,
		producer:         producer,
		smsClient:        smsClient,
		digilockerClient: digilockerClient,
		hasher:           hasher,
		encryptionMgr:    encryptionMgr,
		bucketingMgr:     bucketingMgr,
		tokenMgr:         tokenMgr,
		logger:           logger,
	}
}

// AuditService returns the audit service instance (singleton)
func (f *ServiceFactory) AuditService() *AuditService {
	if f.auditService == nil {
		f.auditService = NewAuditService(f.auditRepo, f.esClient, f.producer, f.bucketingMgr)
	}
	return f.auditService
}

// AuthService returns the auth service instance (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(
			f.userRepo,
			f.otpRepo,
			f.otpCache,
			f.rateLimitCache,
			f.hasher,
			f.encryptionMgr,
			f.bucketingMgr,
			f.smsClient,
			f.tokenMgr,
			f.AuditService(),
			f.cfg,
		)
	}
	return f.authService
}

// ConsentService returns the consent service instance (singleton)
func (f *ServiceFactory) ConsentService() *ConsentService {
	if f.consentService == nil {
		f.consentService = NewConsentService(f.consentRepo, f.AuditService(), f.bucketingMgr)
	}
	return f.consentService
}

// QuotaService returns the quota service instance (singleton)
func (f *ServiceFactory) QuotaService() *QuotaService {
	if f.quotaService == nil {
		f.quotaService = NewQuotaService(f.quotaCache, f.upsellCache, f.AuditService(), f.cfg)
	}
	return f.quotaService
}

// UserService returns the user service instance (singleton)
func (f *ServiceFactory) UserService() *UserService {
	if f.userService == nil {
		f.userService = NewUserService(f.userRepo, f.QuotaService(), f.ConsentService(), f.encryptionMgr)
	}
	return f.userService
}

// VerificationService returns the verification service instance (singleton)
func (f *ServiceFactory) VerificationService() *VerificationService {
	if f.verificationService == nil {
		f.verificationService = NewVerificationService(
			f.userRepo,
			f.digilockerClient,
			f.encryptionMgr,
			f.tokenMgr,
			f.AuditService(),
		)
	}
	return f.verificationService
}
