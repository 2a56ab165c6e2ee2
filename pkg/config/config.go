package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig    `mapstructure:"telegram"`
	Database DatabaseConfig    `mapstructure:"database"`
	Redis    RedisConfig       `mapstructure:"redis"`
	HTTP     HTTPConfig        `mapstructure:"http"`
	Admin    AdminConfig       `mapstructure:"admin"`
	Session  SessionConfig     `mapstructure:"session"`
	Services map[string]string `mapstructure:"services"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// GroupID is the agent workspace supergroup (forum) chat id.
	GroupID int64 `mapstructure:"group_id"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the GORM Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type AdminConfig struct {
	// Key is the operator login key for the console API.
	Key string `mapstructure:"key"`
	// JWTSecret signs console bearer tokens.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type SessionConfig struct {
	// TTL evicts stale pending service selections.
	TTL time.Duration `mapstructure:"ttl"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432
	if u.Port() != "" {
		if p, err := strconv.Atoi(u.Port()); err == nil {
			port = p
		}
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
	}, nil
}

// LoadConfig reads the yaml file at path, with environment variables
// overriding the secrets and connection urls.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if groupID := v.GetInt64("AGENT_GROUP_ID"); groupID != 0 {
		config.Telegram.GroupID = groupID
	}
	if addr := v.GetString("REDIS_ADDR"); addr != "" {
		config.Redis.Addr = addr
	}
	if key := v.GetString("ADMIN_KEY"); key != "" {
		config.Admin.Key = key
	}
	if secret := v.GetString("ADMIN_JWT_SECRET"); secret != "" {
		config.Admin.JWTSecret = secret
	}

	return &config, nil
}
