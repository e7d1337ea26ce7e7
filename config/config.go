package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	MQTTBrokerHost     string
	MQTTBrokerPort     int
	MQTTClientID       string
	MQTTConnectTimeout time.Duration

	// Путь к JSON сервисного аккаунта Firebase. Пустое значение отключает
	// push-рассылку, сервер при этом поднимается.
	FirebaseCredentialsFile string

	PushWorkers    int
	PushQueueSize  int
	PushJobTimeout time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	mqttHost := os.Getenv("MQTT_BROKER_HOST")
	if mqttHost == "" {
		mqttHost = "localhost"
	}
	mqttPort, err := intFromEnv("MQTT_BROKER_PORT", 1883)
	if err != nil {
		return nil, err
	}
	mqttClientID := os.Getenv("MQTT_CLIENT_ID")
	if mqttClientID == "" {
		mqttClientID = "futside-backend"
	}

	pushWorkers, err := intFromEnv("PUSH_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	pushQueueSize, err := intFromEnv("PUSH_QUEUE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,

		MQTTBrokerHost:     mqttHost,
		MQTTBrokerPort:     mqttPort,
		MQTTClientID:       mqttClientID,
		MQTTConnectTimeout: 10 * time.Second,

		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),

		PushWorkers:    pushWorkers,
		PushQueueSize:  pushQueueSize,
		PushJobTimeout: 30 * time.Second,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

func intFromEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return value, nil
}
