package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"production"`
	PGSQL      PQSQL      `yaml:"pgsql"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Redis      Redis      `yaml:"redis"`
	MinIO      MinIO      `yaml:"minio"`
	Media      Media      `yaml:"media"`
	Mux        Mux        `yaml:"mux"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
	Sweeper    Sweeper    `yaml:"sweeper"`
	JWTSecret  string     `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"30s"`
}

type PQSQL struct {
	Host     string `yaml:"host" env:"PGSQL_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"PGSQL_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGSQL_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"PGSQL_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"PGSQL_DBNAME" env-default:"videos_db"`
	SSLMode  string `yaml:"sslmode" env:"PGSQL_SSLMODE" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY_ID" env-required:"true"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_ACCESS_KEY" env-required:"true"`
	BucketName      string `yaml:"bucket_name" env:"MINIO_BUCKET" env-default:"videos"`
	UseSSL          bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
	// PublicBaseURL overrides the endpoint when building public object URLs (CDN in front of the bucket).
	PublicBaseURL string `yaml:"public_base_url" env:"MINIO_PUBLIC_BASE_URL"`
}

type Media struct {
	AllowedMimeTypes []string      `yaml:"allowed_mime_types" env-default:"image/jpeg,image/png,image/webp,image/gif"`
	MaxFileSize      int64         `yaml:"max_file_size" env-default:"4194304"`
	PresignedURLTTL  int           `yaml:"presigned_url_ttl" env-default:"900"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout" env-default:"30s"`
}

type Mux struct {
	BaseURL       string        `yaml:"base_url" env:"MUX_BASE_URL" env-default:"https://api.mux.com"`
	ImageBaseURL  string        `yaml:"image_base_url" env:"MUX_IMAGE_BASE_URL" env-default:"https://image.mux.com"`
	TokenID       string        `yaml:"token_id" env:"MUX_TOKEN_ID" env-required:"true"`
	TokenSecret   string        `yaml:"token_secret" env:"MUX_TOKEN_SECRET" env-required:"true"`
	WebhookSecret string        `yaml:"webhook_secret" env:"MUX_WEBHOOK_SECRET" env-required:"true"`
	CORSOrigin    string        `yaml:"cors_origin" env:"MUX_CORS_ORIGIN" env-default:"*"`
	Timeout       time.Duration `yaml:"timeout" env-default:"15s"`
	// SignatureTolerance bounds how old a webhook signature timestamp may be.
	SignatureTolerance time.Duration `yaml:"signature_tolerance" env-default:"5m"`
}

type RateLimit struct {
	UploadsPerMinute int64 `yaml:"uploads_per_minute" env-default:"10"`
	WritesPerMinute  int64 `yaml:"writes_per_minute" env-default:"60"`
}

type Sweeper struct {
	Interval         time.Duration `yaml:"interval" env-default:"10m"`
	StaleUploadAfter time.Duration `yaml:"stale_upload_after" env-default:"24h"`
	OrphanGrace      time.Duration `yaml:"orphan_grace" env-default:"1h"`
}

// Load reads the config file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path must be provided")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist at path: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg
}
