package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Detector    DetectorConfig    `mapstructure:"detector"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Fine        FineConfig        `mapstructure:"fine"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Email       EmailConfig       `mapstructure:"email"`
	Auth        AuthConfig        `mapstructure:"auth"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type DetectorConfig struct {
	PersonURL           string  `mapstructure:"person_url"`
	IDCardURL           string  `mapstructure:"id_card_url"`
	PersonConfThreshold float64 `mapstructure:"person_conf_threshold"`
	IDCardConfThreshold float64 `mapstructure:"id_card_conf_threshold"`
}

type RecognitionConfig struct {
	EmbedderURL         string  `mapstructure:"embedder_url"`
	EmbeddingsFile      string  `mapstructure:"embeddings_file"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

type FineConfig struct {
	Amount float64 `mapstructure:"amount"`
}

type AuditConfig struct {
	LogCSV    string `mapstructure:"log_csv"`
	ImagesDir string `mapstructure:"images_dir"`
}

type EmailConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	SMTPServer     string `mapstructure:"smtp_server"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SenderEmail    string `mapstructure:"sender_email"`
	SenderPassword string `mapstructure:"sender_password"`
	UseTLS         bool   `mapstructure:"use_tls"`
	Subject        string `mapstructure:"subject"`
	QueueSize      int    `mapstructure:"queue_size"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load reads the configuration file at path, applies defaults and validates
// the result. The returned struct is constructed once and passed explicitly
// to every component constructor.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("detector.person_conf_threshold", 0.6)
	v.SetDefault("detector.id_card_conf_threshold", 0.5)
	v.SetDefault("recognition.embeddings_file", "known_embeddings.json")
	v.SetDefault("recognition.similarity_threshold", 0.5)
	v.SetDefault("fine.amount", 10.0)
	v.SetDefault("audit.log_csv", "fined_log.csv")
	v.SetDefault("audit.images_dir", "fined_images")
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.subject", "Fine Notification")
	v.SetDefault("email.queue_size", 64)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Detector.PersonURL == "" || c.Detector.IDCardURL == "" {
		return fmt.Errorf("detector.person_url and detector.id_card_url are required")
	}
	if c.Recognition.EmbedderURL == "" {
		return fmt.Errorf("recognition.embedder_url is required")
	}
	if t := c.Detector.PersonConfThreshold; t < 0 || t > 1 {
		return fmt.Errorf("detector.person_conf_threshold must be in [0,1], got %v", t)
	}
	if t := c.Detector.IDCardConfThreshold; t < 0 || t > 1 {
		return fmt.Errorf("detector.id_card_conf_threshold must be in [0,1], got %v", t)
	}
	if t := c.Recognition.SimilarityThreshold; t < -1 || t > 1 {
		return fmt.Errorf("recognition.similarity_threshold must be in [-1,1], got %v", t)
	}
	if c.Fine.Amount <= 0 {
		return fmt.Errorf("fine.amount must be positive, got %v", c.Fine.Amount)
	}
	if c.Email.Enabled {
		if c.Email.SMTPServer == "" || c.Email.SenderEmail == "" {
			return fmt.Errorf("email.smtp_server and email.sender_email are required when email is enabled")
		}
	}
	if c.Email.QueueSize <= 0 {
		return fmt.Errorf("email.queue_size must be positive, got %d", c.Email.QueueSize)
	}
	return nil
}
