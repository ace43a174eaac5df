package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	WhatsApp WhatsAppConfig
	Catalog  CatalogConfig
	Order    OrderConfig
	Outbox   OutboxConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port        string
	ReadTimeout time.Duration
	IdleTimeout time.Duration
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	OrderCreated string
	OrderUpdated string
}

type DatabaseConfig struct {
	DSN          string
	AutoMigrate  bool
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type TelegramConfig struct {
	BotToken   string
	ChatID     string
	APIURL     string
	WebhookURL string
	// WebhookSecret is echoed back by Telegram in X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret string
	WebhookListen string
	Timeout       time.Duration
}

// Configured reports whether both the bot token and the merchant chat are set.
func (t TelegramConfig) Configured() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type WhatsAppConfig struct {
	MerchantNumber string
	BaseURL        string
}

type CatalogConfig struct {
	Path string
	URL  string
	Game string
}

type OrderConfig struct {
	PhoneRule      string
	SubmitGuardTTL time.Duration
	// LinkSecret signs the per-order tokens returned to customers.
	LinkSecret string
}

type OutboxConfig struct {
	Enabled     bool
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

type AuthConfig struct {
	JWTSecret  string
	OIDCIssuer string
	// Disabled opens the admin routes without a token. Local development only.
	Disabled bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", ":8084"),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled: getEnvBool("REDIS_ENABLED", false),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			GroupID: getEnv("KAFKA_GROUP_ID", "storefront-telegram-bot"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				OrderCreated: getEnv("KAFKA_TOPIC_ORDER_CREATED", "storefront.order.created"),
				OrderUpdated: getEnv("KAFKA_TOPIC_ORDER_UPDATED", "storefront.order.updated"),
			},
		},
		Database: DatabaseConfig{
			DSN:          getEnv("DATABASE_DSN", "file:storefront.db?cache=shared"),
			AutoMigrate:  getEnvBool("AUTO_MIGRATE", true),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Telegram: TelegramConfig{
			BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:        getEnv("TELEGRAM_CHAT_ID", ""),
			APIURL:        getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			WebhookURL:    getEnv("TELEGRAM_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
			WebhookListen: getEnv("TELEGRAM_WEBHOOK_LISTEN", ":8085"),
			Timeout:       getEnvDuration("TELEGRAM_TIMEOUT", 10*time.Second),
		},
		WhatsApp: WhatsAppConfig{
			MerchantNumber: getEnv("WHATSAPP_NUMBER", "201234567890"),
			BaseURL:        getEnv("WHATSAPP_BASE_URL", "https://wa.me/"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
			URL:  getEnv("CATALOG_URL", ""),
			Game: getEnv("CATALOG_GAME", "fc25"),
		},
		Order: OrderConfig{
			PhoneRule:      getEnv("PHONE_RULE", "strict"),
			SubmitGuardTTL: getEnvDuration("SUBMIT_GUARD_TTL", 10*time.Second),
			LinkSecret:     getEnv("ORDER_LINK_SECRET", ""),
		},
		Outbox: OutboxConfig{
			Enabled:     getEnvBool("OUTBOX_ENABLED", false),
			Interval:    getEnvDuration("OUTBOX_INTERVAL", 30*time.Second),
			BatchSize:   getEnvInt("OUTBOX_BATCH_SIZE", 20),
			MaxAttempts: getEnvInt("OUTBOX_MAX_ATTEMPTS", 8),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("ADMIN_JWT_SECRET", ""),
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
			Disabled:   getEnvBool("ADMIN_AUTH_DISABLED", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("15s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
