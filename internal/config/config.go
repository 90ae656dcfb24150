package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Shop       ShopConfig       `yaml:"shop"`
	Admin      AdminConfig      `yaml:"admin"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	CORSOrigins []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// JWTConfig настройка jwt, время жизни в минутах
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
	ResetTTL int    `yaml:"reset_ttl" env-default:"15"`
}

func (c JWTConfig) TokenDuration() time.Duration { return time.Duration(c.TokenTTL) * time.Minute }
func (c JWTConfig) ResetDuration() time.Duration { return time.Duration(c.ResetTTL) * time.Minute }

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// RedisConfig кэш карточек товаров. Выключенный Redis заменяется пустым кэшем.
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Address    string        `yaml:"address" env-default:"localhost:6379"`
	Password   string        `yaml:"-" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" env-default:"0"`
	ProductTTL time.Duration `yaml:"product_ttl" env-default:"15m"`
}

// KafkaConfig публикация событий из outbox
type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers      []string      `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	Topic        string        `yaml:"topic" env-default:"farm-shop-events"`
	PollInterval time.Duration `yaml:"poll_interval" env-default:"1s"`
	BatchSize    int           `yaml:"batch_size" env-default:"100"`
}

// ShopConfig правила магазина
type ShopConfig struct {
	FreeShippingThreshold float64       `yaml:"free_shipping_threshold" env-default:"50"`
	FlatShippingCost      float64       `yaml:"flat_shipping_cost" env-default:"5.99"`
	CartCookieName        string        `yaml:"cart_cookie_name" env-default:"carrito"`
	CartCookieTTL         time.Duration `yaml:"cart_cookie_ttl" env-default:"168h"`
	TicketSecret          string        `yaml:"-" env:"TICKET_SECRET"`
}

// AdminConfig первый администратор, создаётся при старте, если его нет
type AdminConfig struct {
	Email    string `yaml:"email" env:"ADMIN_EMAIL"`
	Password string `yaml:"-" env:"ADMIN_PASSWORD"`
}

// RateLimitConfig лимит запросов на вход и регистрацию с одного IP
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env-default:"1"`
	Burst int     `yaml:"burst" env-default:"5"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	// без отдельного секрета билеты подписываются секретом JWT
	if cfg.Shop.TicketSecret == "" {
		cfg.Shop.TicketSecret = cfg.JWT.Secret
	}

	return &cfg
}
