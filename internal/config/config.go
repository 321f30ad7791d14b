package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AllowedOrigins []string // CORS allowed origins
	LogJSON        bool
	LogDebug       bool

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-Ip. Only set it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	StoreBackend   string // memory | dynamo | redis | s3
	DynamoTable    string
	RedisURL       string
	RedisKeyPrefix string
	S3BucketName   string
	S3Prefix       string

	SNSRegion   string
	SNSTopicARN string // empty disables broadcast report publishing

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	Push PushConfig

	OperatorJWTPrivateKeyPath string // only needed where tokens are minted
	OperatorJWTPublicKeyPath  string // empty disables the operator and recipient routes
	OperatorJWTExpiry         time.Duration
}

// PushConfig tunes delivery and the presentation defaults of notifications.
type PushConfig struct {
	TTL              time.Duration
	Urgency          string
	Timeout          time.Duration
	BroadcastWorkers int
	SubscriptionTTL  time.Duration
	Defaults         NotificationDefaults
}

// NotificationDefaults fill notification fields the caller leaves empty.
type NotificationDefaults struct {
	Title string
	Body  string
	Icon  string
	Badge string
	Tag   string
	URL   string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:           getEnv("APP_PORT", "3000"),
		AppEnv:            getEnv("APP_ENV", "development"),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		LogJSON:           getEnvBool("LOG_JSON", false),
		LogDebug:          getEnvBool("LOG_DEBUG", false),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		StoreBackend:   getEnv("STORE_BACKEND", "memory"),
		DynamoTable:    getEnv("DYNAMO_TABLE_PUSH", "push_kv"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "push:"),
		S3BucketName:   getEnv("S3_BUCKET_NAME", "push-subscriptions"),
		S3Prefix:       getEnv("S3_PREFIX", "push/"),

		SNSRegion:   getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN: getEnv("SNS_TOPIC_ARN", ""),

		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:admin@example.com"),

		Push: PushConfig{
			TTL:              time.Duration(getEnvInt("PUSH_TTL_SECONDS", 86400)) * time.Second,
			Urgency:          getEnv("PUSH_URGENCY", ""),
			Timeout:          time.Duration(getEnvInt("PUSH_TIMEOUT_SECONDS", 5)) * time.Second,
			BroadcastWorkers: getEnvInt("BROADCAST_WORKERS", 1),
			SubscriptionTTL:  time.Duration(getEnvInt("SUBSCRIPTION_TTL_DAYS", 365)) * 24 * time.Hour,
			Defaults: NotificationDefaults{
				Title: getEnv("PUSH_DEFAULT_TITLE", "New notification"),
				Body:  getEnv("PUSH_DEFAULT_BODY", "You have a new notification"),
				Icon:  getEnv("PUSH_DEFAULT_ICON", "/icons/icon-192x192.png"),
				Badge: getEnv("PUSH_DEFAULT_BADGE", "/icons/badge-72x72.png"),
				Tag:   getEnv("PUSH_DEFAULT_TAG", "general"),
				URL:   getEnv("PUSH_DEFAULT_URL", "/"),
			},
		},

		OperatorJWTPrivateKeyPath: getEnv("OPERATOR_JWT_PRIVATE_KEY_PATH", ""),
		OperatorJWTPublicKeyPath:  getEnv("OPERATOR_JWT_PUBLIC_KEY_PATH", ""),
		OperatorJWTExpiry:         time.Duration(getEnvInt("OPERATOR_JWT_EXPIRY_HOURS", 24)) * time.Hour,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
