package config

// Configuration loading: defaults, then config.yaml, then .env, then
// environment variables, then command-line flags.

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Solana    SolanaConfig    `mapstructure:"solana"`
	Airtable  AirtableConfig  `mapstructure:"airtable"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Store     StoreConfig     `mapstructure:"store"`
	App       AppConfig       `mapstructure:"app"`
}

type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	DigestTime string `mapstructure:"digest_time"` // daily watchlist digest, "HH:MM"
}

// SolanaConfig points at the RPC node and the listing program.
type SolanaConfig struct {
	RPCURL         string  `mapstructure:"rpc_url"`
	ProgramID      string  `mapstructure:"program_id"`
	PaymentWallet  string  `mapstructure:"payment_wallet"`
	PremiumPriceSOL float64 `mapstructure:"premium_price_sol"`
	RequestTimeout int     `mapstructure:"request_timeout"` // seconds
	MaxRetries     int     `mapstructure:"max_retries"`
}

type AirtableConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseID     string `mapstructure:"base_id"`
	UsersTable string `mapstructure:"users_table"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// StoreConfig selects the user store backend: "airtable" or "sqlite".
type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type AppConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	PollInterval  int    `mapstructure:"poll_interval"` // seconds between listing polls
	ChatRateLimit int    `mapstructure:"chat_rate_limit"` // messages per minute per chat
}

func LoadConfig() (*Config, error) {
	godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.ReadInConfig() // optional file, missing is fine

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setupEnvAliases(v)
	setupFlags(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.digest_time", "10:00")
	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.premium_price_sol", 3.0)
	v.SetDefault("solana.request_timeout", 30)
	v.SetDefault("solana.max_retries", 3)
	v.SetDefault("airtable.users_table", "Users")
	v.SetDefault("anthropic.model", "claude-3-haiku-20240307")
	v.SetDefault("store.backend", "airtable")
	v.SetDefault("store.sqlite_path", "swarmventures.db")
	v.SetDefault("app.data_dir", "data_out")
	v.SetDefault("app.poll_interval", 60)
	v.SetDefault("app.chat_rate_limit", 20)
}

// setupEnvAliases binds the flat env names the deployment uses to the
// nested viper keys.
func setupEnvAliases(v *viper.Viper) {
	aliases := map[string]string{
		"telegram.bot_token":       "TELEGRAM_BOT_TOKEN",
		"solana.rpc_url":           "SOLANA_RPC_URL",
		"solana.program_id":        "LISTING_PROGRAM_ID",
		"solana.payment_wallet":    "PAYMENT_WALLET",
		"airtable.api_key":         "AIRTABLE_API_KEY",
		"airtable.base_id":         "AIRTABLE_BASE_ID",
		"airtable.users_table":     "AIRTABLE_TABLE_NAME",
		"anthropic.api_key":        "ANTHROPIC_API_KEY",
		"store.backend":            "STORE_BACKEND",
	}
	for key, env := range aliases {
		v.BindEnv(key, env)
	}
}

func setupFlags(v *viper.Viper) {
	if pflag.Parsed() {
		return
	}
	pflag.String("store", "", "user store backend (airtable or sqlite)")
	pflag.Int("poll-interval", 0, "listing poll interval in seconds")
	pflag.Parse()

	if f := pflag.Lookup("store"); f != nil && f.Changed {
		v.Set("store.backend", f.Value.String())
	}
	if f := pflag.Lookup("poll-interval"); f != nil && f.Changed {
		v.BindPFlag("app.poll_interval", f)
	}
}

func validate(c *Config) error {
	switch c.Store.Backend {
	case "airtable", "sqlite":
	default:
		return fmt.Errorf("unknown store backend %q (want airtable or sqlite)", c.Store.Backend)
	}
	if c.App.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %d", c.App.PollInterval)
	}
	return nil
}
