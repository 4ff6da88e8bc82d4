// Package config loads shop-api settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort int `mapstructure:"http_port" validate:"required,gt=0,lt=65536"`
	GRPCPort int `mapstructure:"grpc_port" validate:"required,gt=0,lt=65536"`

	MongoURI    string `mapstructure:"mongo_uri" validate:"required,startswith=mongodb"`
	MongoDBName string `mapstructure:"mongo_db_name" validate:"required"`

	MongoMaxPoolSize            uint64        `mapstructure:"mongo_max_pool_size" validate:"gt=0"`
	MongoMinPoolSize            uint64        `mapstructure:"mongo_min_pool_size" validate:"ltefield=MongoMaxPoolSize"`
	MongoConnectTimeout         time.Duration `mapstructure:"mongo_connect_timeout" validate:"gt=0"`
	MongoServerSelectionTimeout time.Duration `mapstructure:"mongo_server_selection_timeout" validate:"gt=0"`

	RedisAddr       string        `mapstructure:"redis_addr" validate:"required,hostname_port"`
	RedisPassword   string        `mapstructure:"redis_password"`
	ProductCacheTTL time.Duration `mapstructure:"product_cache_ttl" validate:"gt=0"`

	// Empty KafkaBrokers disables the checkout consumer.
	KafkaBrokers []string `mapstructure:"kafka_brokers" validate:"dive,hostname_port"`
	KafkaTopic   string   `mapstructure:"kafka_topic" validate:"required"`
	KafkaGroupID string   `mapstructure:"kafka_group_id" validate:"required"`

	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	StoreTimeout       time.Duration `mapstructure:"store_timeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxRequestBodySize int64         `mapstructure:"max_request_body_size" validate:"gt=0"`

	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("grpc_port", 50053)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "shopdb")
	v.SetDefault("mongo_max_pool_size", 100)
	v.SetDefault("mongo_min_pool_size", 10)
	v.SetDefault("mongo_connect_timeout", "10s")
	v.SetDefault("mongo_server_selection_timeout", "5s")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("product_cache_ttl", "15m")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "checkout-outbox")
	v.SetDefault("kafka_group_id", "shop-api-consumer")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("store_timeout", "5s")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("max_request_body_size", 1<<20)
	v.SetDefault("log_level", "info")
}

// Load reads the environment over the defaults and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ConsumerEnabled reports whether Kafka brokers are configured.
func (c *Config) ConsumerEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
