// Package config loads service settings from the environment (and an optional .env file).
package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort string
	GRPCPort string
	GinMode  string

	Database  DatabaseConfig
	RedisAddr string
	JWTSecret string
	Log       LogConfig

	PayFast   PayFastConfig
	TradeSafe TradeSafeConfig

	Withdrawal WithdrawalLimits

	// Requests per second allowed on the payment verification endpoints, per client IP.
	VerifyRateLimit float64
	VerifyRateBurst int

	// TrustedProxies are the load balancers allowed to set X-Forwarded-For.
	TrustedProxies []string

	// CallbackRetention is how long callback logs stay in the live table.
	CallbackRetention time.Duration
}

type DatabaseConfig struct {
	Driver   string // mysql, postgres or sqlite
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	// Path is the sqlite file (or ":memory:").
	Path string
}

type LogConfig struct {
	Level       string
	Format      string
	Output      string
	FilePath    string
	Development bool
}

type PayFastConfig struct {
	MerchantID         string
	MerchantKey        string
	Passphrase         string
	Sandbox            bool
	ValidateWithServer bool
	ReturnURL          string
	CancelURL          string
	NotifyURL          string
	AllowedCIDRs       []string
}

// ProcessURL is where the signed checkout form is posted.
func (c PayFastConfig) ProcessURL() string {
	if c.Sandbox {
		return "https://sandbox.payfast.co.za/eng/process"
	}
	return "https://www.payfast.co.za/eng/process"
}

// ValidateURL is the server-side ITN confirmation endpoint.
func (c PayFastConfig) ValidateURL() string {
	if c.Sandbox {
		return "https://sandbox.payfast.co.za/eng/query/validate"
	}
	return "https://www.payfast.co.za/eng/query/validate"
}

type TradeSafeConfig struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	AuthURL      string
	// AgentToken identifies the platform as the AGENT party on every transaction.
	AgentToken string
	Sandbox    bool
	IntentTTL  time.Duration
}

type WithdrawalLimits struct {
	Min      decimal.Decimal
	Max      decimal.Decimal
	DailyMax decimal.Decimal
}

var defaultPayFastCIDRs = []string{
	"197.97.145.144/28",
	"41.74.179.192/27",
	"102.216.36.0/28",
	"102.216.36.128/28",
	"144.126.193.139/32",
}

// LoadEnv mirrors the usual lookup: .env in the working directory, then the parent.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found in current directory, trying parent")
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using system environment variables")
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("grpc_port", "50051")
	v.SetDefault("gin_mode", "")

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "3306")
	v.SetDefault("db.name", "escrow")
	v.SetDefault("db.path", "escrow.db")

	v.SetDefault("redis_url", "localhost:6379")
	v.SetDefault("jwt_secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", false)

	v.SetDefault("payfast.merchant_id", "")
	v.SetDefault("payfast.merchant_key", "")
	v.SetDefault("payfast.passphrase", "")
	v.SetDefault("payfast.sandbox", true)
	v.SetDefault("payfast.validate_with_server", false)
	v.SetDefault("payfast.return_url", "")
	v.SetDefault("payfast.cancel_url", "")
	v.SetDefault("payfast.notify_url", "")
	v.SetDefault("payfast.allowed_cidrs", strings.Join(defaultPayFastCIDRs, ","))

	v.SetDefault("tradesafe.client_id", "")
	v.SetDefault("tradesafe.client_secret", "")
	v.SetDefault("tradesafe.api_url", "https://api-developer.tradesafe.dev/graphql")
	v.SetDefault("tradesafe.auth_url", "https://auth.tradesafe.co.za/oauth/token")
	v.SetDefault("tradesafe.agent_token", "")
	v.SetDefault("tradesafe.sandbox", true)
	v.SetDefault("tradesafe.intent_ttl", "15m")

	v.SetDefault("withdrawal.min", "50")
	v.SetDefault("withdrawal.max", "50000")
	v.SetDefault("withdrawal.daily_max", "100000")

	v.SetDefault("verify.rate_limit", 1.0)
	v.SetDefault("verify.rate_burst", 5)
	v.SetDefault("trusted_proxies", "")

	v.SetDefault("callback.retention", "2880h")
}

// Load reads configuration from environment variables. Keys map to upper-case
// names with underscores, e.g. payfast.merchant_id -> PAYFAST_MERCHANT_ID.
func Load() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		HTTPPort: v.GetString("port"),
		GRPCPort: v.GetString("grpc_port"),
		GinMode:  v.GetString("gin_mode"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("db.driver")),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			Name:     v.GetString("db.name"),
			Path:     v.GetString("db.path"),
		},
		RedisAddr: v.GetString("redis_url"),
		JWTSecret: v.GetString("jwt_secret"),
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Format:      v.GetString("log.format"),
			Output:      v.GetString("log.output"),
			FilePath:    v.GetString("log.file"),
			Development: v.GetBool("log.development"),
		},
		PayFast: PayFastConfig{
			MerchantID:         v.GetString("payfast.merchant_id"),
			MerchantKey:        v.GetString("payfast.merchant_key"),
			Passphrase:         v.GetString("payfast.passphrase"),
			Sandbox:            v.GetBool("payfast.sandbox"),
			ValidateWithServer: v.GetBool("payfast.validate_with_server"),
			ReturnURL:          v.GetString("payfast.return_url"),
			CancelURL:          v.GetString("payfast.cancel_url"),
			NotifyURL:          v.GetString("payfast.notify_url"),
			AllowedCIDRs:       splitList(v.GetString("payfast.allowed_cidrs")),
		},
		TradeSafe: TradeSafeConfig{
			ClientID:     v.GetString("tradesafe.client_id"),
			ClientSecret: v.GetString("tradesafe.client_secret"),
			APIURL:       v.GetString("tradesafe.api_url"),
			AuthURL:      v.GetString("tradesafe.auth_url"),
			AgentToken:   v.GetString("tradesafe.agent_token"),
			Sandbox:      v.GetBool("tradesafe.sandbox"),
			IntentTTL:    v.GetDuration("tradesafe.intent_ttl"),
		},
		Withdrawal: WithdrawalLimits{
			Min:      parseAmount(v.GetString("withdrawal.min"), decimal.NewFromInt(50)),
			Max:      parseAmount(v.GetString("withdrawal.max"), decimal.NewFromInt(50000)),
			DailyMax: parseAmount(v.GetString("withdrawal.daily_max"), decimal.NewFromInt(100000)),
		},
		VerifyRateLimit: v.GetFloat64("verify.rate_limit"),
		VerifyRateBurst: v.GetInt("verify.rate_burst"),
		TrustedProxies:  splitList(v.GetString("trusted_proxies")),

		CallbackRetention: v.GetDuration("callback.retention"),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAmount(raw string, fallback decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("invalid amount %q in config, using %s", raw, fallback.String())
		return fallback
	}
	return d
}
