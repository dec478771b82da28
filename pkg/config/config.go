package config

import (
	"log"
	"os"
	"time"

	"github.com/Kana121/eazystore-backend/pkg/utils"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string  `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP    `yaml:"http"`
	Postgres PG      `yaml:"postgres"`
	Kafka    Kafka   `yaml:"kafka"`
	Gateway  Gateway `yaml:"gateway"`
	Logger   Logger  `yaml:"logger"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
}

// Gateway holds the external payment gateway credentials. KeySecret doubles
// as the HMAC secret used to verify payment callbacks.
type Gateway struct {
	BaseURL   string        `yaml:"base_url" env:"GATEWAY_BASE_URL"`
	KeyID     string        `yaml:"key_id" env:"GATEWAY_KEY_ID"`
	KeySecret string        `yaml:"key_secret" env:"GATEWAY_KEY_SECRET"`
	Timeout   time.Duration `yaml:"timeout" env:"GATEWAY_TIMEOUT" env-default:"10s"`
}

type Logger struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
