package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting of the service.
type Config struct {
	Env  string
	Host string
	Port string

	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBAutoMigrate bool

	MasterAgentCode   string
	MasterAgentSecret string

	CallbackDefaultURL     string
	CallbackConnectTimeout time.Duration
	CallbackTimeout        time.Duration

	// Client-site receiver
	CallbackReceiverEnabled bool
	CallbackVerifySignature bool
	CallbackReceiverSecret  string

	PinSentinelBanker bool

	CallbackRetryMax      int
	CallbackRetryInterval time.Duration

	RedisAddr           string
	RedisFailureChannel string

	KafkaBrokers     string
	KafkaTopicRounds string

	DeliveryLogRetention time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file loaded, using process environment")
	}

	return Config{
		Env:  getEnv("ENV", "local"),
		Host: getEnv("HOST", "127.0.0.1"),
		Port: getEnv("PORT", "3000"),

		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "bandar"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		DBAutoMigrate: getBool("DB_AUTO_MIGRATE", false),

		MasterAgentCode:   getEnv("MASTER_AGENT_CODE", ""),
		MasterAgentSecret: getEnv("MASTER_AGENT_SECRET", ""),

		CallbackDefaultURL:     getEnv("CALLBACK_DEFAULT_URL", ""),
		CallbackConnectTimeout: getDuration("CALLBACK_CONNECT_TIMEOUT", 5*time.Second),
		CallbackTimeout:        getDuration("CALLBACK_TIMEOUT", 10*time.Second),

		CallbackReceiverEnabled: getBool("CALLBACK_RECEIVER_ENABLED", false),
		CallbackVerifySignature: getBool("CALLBACK_VERIFY_SIGNATURE", false),
		CallbackReceiverSecret:  getEnv("CALLBACK_RECEIVER_SECRET", ""),

		PinSentinelBanker: getBool("PIN_SENTINEL_BANKER", false),

		CallbackRetryMax:      getInt("CALLBACK_RETRY_MAX", 0),
		CallbackRetryInterval: getDuration("CALLBACK_RETRY_INTERVAL", 2*time.Minute),

		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisFailureChannel: getEnv("REDIS_FAILURE_CHANNEL", "callback_failures"),

		KafkaBrokers:     getEnv("KAFKA_BROKERS", ""),
		KafkaTopicRounds: getEnv("KAFKA_TOPIC_ROUNDS", "rounds.settled"),

		DeliveryLogRetention: getDuration("DELIVERY_LOG_RETENTION", 30*24*time.Hour),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("⚠️  Invalid value for %s: %s\n", key, v)
		return def
	}
	return b
}

func getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️  Invalid value for %s: %s\n", key, v)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("⚠️  Invalid value for %s: %s\n", key, v)
		return def
	}
	return d
}
