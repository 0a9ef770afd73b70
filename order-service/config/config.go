package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string   `mapstructure:"service_name"`
	Env         string   `mapstructure:"env"`
	Port        string   `mapstructure:"port"`
	BaseURL     string   `mapstructure:"base_url"`
	Database    Database `mapstructure:"database"`
	LRA         LRA      `mapstructure:"lra"`
	Saga        Saga     `mapstructure:"saga"`
	AWS         AWS      `mapstructure:"aws"`
	Telemetry   Tel      `mapstructure:"telemetry"`
}

type Database struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type LRA struct {
	CoordinatorURL string `mapstructure:"coordinator_url"`
}

type Saga struct {
	InventoryBaseURL string `mapstructure:"inventory_base_url"`
	PaymentBaseURL   string `mapstructure:"payment_base_url"`
}

type AWS struct {
	Region      string `mapstructure:"region"`
	SNSTopicArn string `mapstructure:"sns_topic_arn"`
}

type Tel struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("unable to get current file")
	}

	configDir := filepath.Join(filepath.Dir(filename))
	viper.SetConfigName(getConfigName())
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	// Allow environment variables to override config
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ORDER")

	setDefaults()

	err := viper.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	err = viper.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults() {
	viper.SetDefault("service_name", "order-service")
	viper.SetDefault("env", getEnv("ENV", "local"))
	viper.SetDefault("port", getEnv("PORT", "8080"))
	viper.SetDefault("base_url", getEnv("APP_BASE_URL", "http://localhost:8080"))

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "order_saga")
	viper.SetDefault("database.ssl_mode", "disable")

	viper.SetDefault("lra.coordinator_url", getEnv("LRA_COORDINATOR_URL", "http://localhost:8090/lra-coordinator"))

	viper.SetDefault("saga.inventory_base_url", getEnv("INVENTORY_BASE_URL", "http://localhost:8081"))
	viper.SetDefault("saga.payment_base_url", getEnv("PAYMENT_BASE_URL", "http://localhost:8082"))

	viper.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	viper.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:order-saga-events"))

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.otlp_endpoint", getEnv("OTLP_ENDPOINT", "localhost:4318"))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetDatabaseURL constructs database URL from config
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
