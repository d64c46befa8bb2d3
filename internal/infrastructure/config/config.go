package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Chains      ChainsConfig   `mapstructure:"chains"`
	Turnkey     TurnkeyConfig  `mapstructure:"turnkey"`
	Biconomy    BiconomyConfig `mapstructure:"biconomy"`
	Alchemy     AlchemyConfig  `mapstructure:"alchemy"`
	Webhook     WebhookConfig  `mapstructure:"webhook"`
	Sweeper     SweeperConfig  `mapstructure:"sweeper"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// ChainsConfig holds one RPC endpoint per supported network
type ChainsConfig struct {
	Base    NetworkConfig `mapstructure:"base"`
	Polygon NetworkConfig `mapstructure:"polygon"`
}

type NetworkConfig struct {
	RPC     string `mapstructure:"rpc"`
	ChainID int64  `mapstructure:"chain_id"`
}

// TurnkeyConfig configures the external signing service
type TurnkeyConfig struct {
	APIURL         string `mapstructure:"api_url"`
	APIPublicKey   string `mapstructure:"api_public_key"`
	APIPrivateKey  string `mapstructure:"api_private_key"`
	OrganizationID string `mapstructure:"organization_id"`
}

// BiconomyConfig configures the account-abstraction provider
type BiconomyConfig struct {
	BundlerURL      string `mapstructure:"bundler_url"`
	PaymasterURL    string `mapstructure:"paymaster_url"`
	PaymasterAPIKey string `mapstructure:"paymaster_api_key"`
}

// AlchemyConfig configures the transfer-webhook provider
type AlchemyConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	AuthToken string `mapstructure:"auth_token"`
	WebhookID string `mapstructure:"webhook_id"`
}

type WebhookConfig struct {
	SigningSecret string `mapstructure:"signing_secret"`
}

// SweeperConfig controls the QUEUED-transfer confirmation sweep
type SweeperConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	MinAge   int    `mapstructure:"min_age"` // seconds a row must be QUEUED before sweeping
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	// Read from config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.allowed_origins", []string{"*"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "rabot_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	viper.SetDefault("chains.base.chain_id", 8453)
	viper.SetDefault("chains.polygon.chain_id", 137)

	viper.SetDefault("turnkey.api_url", "https://api.turnkey.com")
	viper.SetDefault("alchemy.base_url", "https://dashboard.alchemy.com")

	viper.SetDefault("sweeper.enabled", false)
	viper.SetDefault("sweeper.schedule", "@every 5m")
	viper.SetDefault("sweeper.min_age", 600)
}

func validate(config *Config) error {
	if config.Environment == "test" {
		return nil
	}

	var missing []string
	if config.Chains.Base.RPC == "" {
		missing = append(missing, "chains.base.rpc")
	}
	if config.Chains.Polygon.RPC == "" {
		missing = append(missing, "chains.polygon.rpc")
	}
	if config.Turnkey.OrganizationID == "" {
		missing = append(missing, "turnkey.organization_id")
	}
	if config.Biconomy.BundlerURL == "" {
		missing = append(missing, "biconomy.bundler_url")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}
