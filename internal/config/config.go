package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"bandhan-service/internal/util"
)

// Config holds all runtime configuration for the service. Values come from the
// environment; in development a .env file is loaded first. Secrets have no
// in-code defaults.
type Config struct {
	Environment   string
	Server        ServerConfig
	Logging       LoggingConfig
	Redis         RedisConfig
	Scylla        ScyllaConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	KMS           KMSConfig
	JWT           JWTConfig
	Hashing       HashingConfig
	Bucketing     BucketingConfig
	OTP           OTPConfig
	Quota         QuotaConfig
	SMS           SMSConfig
	DigiLocker    DigiLockerConfig
}

type ServerConfig struct {
	Port         int
	TLSPort      int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type KafkaConfig struct {
	Brokers []string
}

type ElasticsearchConfig struct {
	URL      string
	Username string
	Password string
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type HashingConfig struct {
	Argon2MemoryCost   int
	Argon2TimeCost     int
	Argon2Parallelism  int
	PepperRotationDays int
	PhoneLookupKey     string
}

type BucketingConfig struct {
	UserBuckets  int
	EventBuckets int
}

type OTPConfig struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	MaxPerHour     int
}

// QuotaConfig carries the per-action daily ceilings. Resets happen at local
// midnight in Timezone.
type QuotaConfig struct {
	ProfileViews int
	ChatStarts   int
	Likes        int
	Timezone     string
}

type SMSConfig struct {
	GatewayURL string
	APIKey     string
	SenderID   string
}

type DigiLockerConfig struct {
	TokenURL     string
	ProfileURL   string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

var (
	instance *Config
	once     sync.Once
)

// LoadConfig reads configuration from the environment (and .env in development).
func LoadConfig() *Config {
	once.Do(func() {
		// .env is optional; in containers everything comes from real env vars.
		_ = godotenv.Load()

		instance = &Config{
			Environment: util.GetEnv("ENVIRONMENT", "development"),
			Server: ServerConfig{
				Port:         util.GetEnvInt("SERVER_PORT", 8080),
				TLSPort:      util.GetEnvInt("SERVER_TLS_PORT", 8443),
				ReadTimeout:  util.GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: util.GetEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  util.GetEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
				EnableTLS:    util.GetEnvBool("SERVER_ENABLE_TLS", false),
				AutoCert:     util.GetEnvBool("SERVER_AUTO_CERT", false),
				Domain:       util.GetEnv("SERVER_DOMAIN", ""),
				CertFile:     util.GetEnv("SERVER_CERT_FILE", ""),
				KeyFile:      util.GetEnv("SERVER_KEY_FILE", ""),
				AutoCertDir:  util.GetEnv("SERVER_AUTOCERT_DIR", "/var/cache/autocert"),
				Email:        util.GetEnv("SERVER_ACME_EMAIL", ""),
			},
			Logging: LoggingConfig{
				Level:  util.GetEnv("LOG_LEVEL", "info"),
				Format: util.GetEnv("LOG_FORMAT", "json"),
			},
			Redis: RedisConfig{
				URL:      util.GetEnv("REDIS_URL", "redis://localhost:6379"),
				Password: util.GetEnv("REDIS_PASSWORD", ""),
				DB:       util.GetEnvInt("REDIS_DB", 0),
				PoolSize: util.GetEnvInt("REDIS_POOL_SIZE", 50),
			},
			Scylla: ScyllaConfig{
				Nodes:    util.GetEnvSlice("SCYLLA_NODES", []string{"localhost:9042"}),
				Keyspace: util.GetEnv("SCYLLA_KEYSPACE", "bandhan"),
				Username: util.GetEnv("SCYLLA_USERNAME", ""),
				Password: util.GetEnv("SCYLLA_PASSWORD", ""),
			},
			Kafka: KafkaConfig{
				Brokers: util.GetEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			},
			Elasticsearch: ElasticsearchConfig{
				URL:      util.GetEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
				Username: util.GetEnv("ELASTICSEARCH_USERNAME", ""),
				Password: util.GetEnv("ELASTICSEARCH_PASSWORD", ""),
			},
			Clickhouse: ClickhouseConfig{
				URL:      util.GetEnv("CLICKHOUSE_URL", "http://localhost:8123"),
				Database: util.GetEnv("CLICKHOUSE_DATABASE", "bandhan_audit"),
				Username: util.GetEnv("CLICKHOUSE_USERNAME", "default"),
				Password: util.GetEnv("CLICKHOUSE_PASSWORD", ""),
			},
			KMS: KMSConfig{
				Enabled: util.GetEnvBool("KMS_ENABLED", false),
				KeyID:   util.GetEnv("KMS_KEY_ID", ""),
				Region:  util.GetEnv("KMS_REGION", "ap-south-1"),
			},
			JWT: JWTConfig{
				Secret: util.GetEnv("JWT_SECRET", ""),
				TTL:    util.GetEnvDuration("JWT_TTL", 24*time.Hour),
				Issuer: util.GetEnv("JWT_ISSUER", "bandhan-service"),
			},
			Hashing: HashingConfig{
				Argon2MemoryCost:   util.GetEnvInt("ARGON2_MEMORY_COST", 65536),
				Argon2TimeCost:     util.GetEnvInt("ARGON2_TIME_COST", 3),
				Argon2Parallelism:  util.GetEnvInt("ARGON2_PARALLELISM", 2),
				PepperRotationDays: util.GetEnvInt("PEPPER_ROTATION_DAYS", 30),
				PhoneLookupKey:     util.GetEnv("PHONE_LOOKUP_KEY", "dev-phone-lookup-key"),
			},
			Bucketing: BucketingConfig{
				UserBuckets:  util.GetEnvInt("USER_BUCKETS", 1024),
				EventBuckets: util.GetEnvInt("EVENT_BUCKETS", 256),
			},
			OTP: OTPConfig{
				TTL:            util.GetEnvDuration("OTP_TTL", 5*time.Minute),
				ResendCooldown: util.GetEnvDuration("OTP_RESEND_COOLDOWN", 30*time.Second),
				MaxAttempts:    util.GetEnvInt("OTP_MAX_ATTEMPTS", 5),
				MaxPerHour:     util.GetEnvInt("OTP_MAX_PER_HOUR", 5),
			},
			Quota: QuotaConfig{
				ProfileViews: util.GetEnvInt("DAILY_LIMIT_PROFILES", 10),
				ChatStarts:   util.GetEnvInt("DAILY_LIMIT_CHATS", 5),
				Likes:        util.GetEnvInt("DAILY_LIMIT_LIKES", 20),
				Timezone:     util.GetEnv("QUOTA_TIMEZONE", "Asia/Kolkata"),
			},
			SMS: SMSConfig{
				GatewayURL: util.GetEnv("SMS_GATEWAY_URL", ""),
				APIKey:     util.GetEnv("SMS_API_KEY", ""),
				SenderID:   util.GetEnv("SMS_SENDER_ID", "BNDHAN"),
			},
			DigiLocker: DigiLockerConfig{
				TokenURL:     util.GetEnv("DIGILOCKER_TOKEN_URL", "https://api.digitallocker.gov.in/public/oauth2/1/token"),
				ProfileURL:   util.GetEnv("DIGILOCKER_PROFILE_URL", "https://api.digitallocker.gov.in/public/oauth2/1/user"),
				ClientID:     util.GetEnv("DIGILOCKER_CLIENT_ID", ""),
				ClientSecret: util.GetEnv("DIGILOCKER_CLIENT_SECRET", ""),
				RedirectURI:  util.GetEnv("DIGILOCKER_REDIRECT_URI", ""),
			},
		}
	})

	return instance
}

// Get returns the loaded config, loading it on first use.
func Get() *Config {
	if instance == nil {
		return LoadConfig()
	}
	return instance
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Validate checks settings that must be present before serving traffic.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() {
		if c.KMS.Enabled && c.KMS.KeyID == "" {
			return fmt.Errorf("KMS_KEY_ID is required when KMS is enabled")
		}
		if c.SMS.GatewayURL == "" || c.SMS.APIKey == "" {
			return fmt.Errorf("SMS gateway configuration is required in production")
		}
	}
	return nil
}
