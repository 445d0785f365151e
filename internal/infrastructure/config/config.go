package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/installment-lending/internal/domain/service"
	"github.com/bibbank/installment-lending/pkg/auth"
	pkgkafka "github.com/bibbank/installment-lending/pkg/kafka"
	pkgpostgres "github.com/bibbank/installment-lending/pkg/postgres"
)

type KafkaConfig struct {
	pkgkafka.Config
	EventsTopic   string
	PaymentsTopic string
	// ConsumePayments starts the payment-instruction consumer.
	ConsumePayments bool
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

// Enabled reports whether the gRPC server should serve TLS.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// OutboxConfig tunes the relay that publishes stored domain events.
type OutboxConfig struct {
	RelayInterval time.Duration
	BatchSize     int
}

type LogConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

type Config struct {
	GRPCPort       int
	HTTPPort       int
	GRPCReflection bool
	DB          pkgpostgres.Config
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	JWT         auth.JWTConfig
	TLS         TLSConfig
	Log         LogConfig
	Tracing     TracingConfig
	Policy      service.LoanPolicy
	ServiceName string
}

// Validate checks required settings and the lending policy. It reports
// every problem found, not just the first.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
	}
	if c.JWT.Secret == "" && c.JWT.PublicKeyPEM == "" && c.JWT.PrivateKeyPEM == "" {
		errs = append(errs, errors.New("one of JWT_SECRET, JWT_PUBLIC_KEY or JWT_PRIVATE_KEY is required"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS must list at least one broker"))
	}
	if c.Outbox.RelayInterval <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_RELAY_INTERVAL must be positive, got %s", c.Outbox.RelayInterval))
	}
	if c.Outbox.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", c.Outbox.BatchSize))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("loan policy: %w", err))
	}
	return errors.Join(errs...)
}

// Load reads configuration from the environment. Malformed numeric values
// are reported rather than replaced by defaults.
func Load() (Config, error) {
	p := &parser{}
	cfg := Config{
		GRPCPort:       p.int("GRPC_PORT", 9087),
		HTTPPort:       p.int("HTTP_PORT", 8087),
		GRPCReflection: p.bool("GRPC_REFLECTION", false),
		DB: pkgpostgres.Config{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            p.int("DB_PORT", 5432),
			User:            getEnv("DB_USER", "lending"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "lending"),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxConns:        int32(p.int("DB_MAX_CONNS", 20)),
			MinConns:        int32(p.int("DB_MIN_CONNS", 2)),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: p.duration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Config: pkgkafka.Config{
				Brokers:       getEnvList("KAFKA_BROKERS", "localhost:9092"),
				ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "installment-lending"),
				TLS:           p.bool("KAFKA_TLS", false),
				CAFile:        getEnv("KAFKA_CA_FILE", ""),
				SASLEnabled:   p.bool("KAFKA_SASL_ENABLED", false),
				SASLMechanism: getEnv("KAFKA_SASL_MECHANISM", "PLAIN"),
				SASLUsername:  getEnv("KAFKA_SASL_USERNAME", ""),
				SASLPassword:  getEnv("KAFKA_SASL_PASSWORD", ""),
			},
			EventsTopic:     getEnv("KAFKA_EVENTS_TOPIC", "lending.loan.events"),
			PaymentsTopic:   getEnv("KAFKA_PAYMENTS_TOPIC", "lending.payment.instructions"),
			ConsumePayments: p.bool("KAFKA_CONSUME_PAYMENTS", true),
		},
		Outbox: OutboxConfig{
			RelayInterval: p.duration("OUTBOX_RELAY_INTERVAL", time.Second),
			BatchSize:     p.int("OUTBOX_BATCH_SIZE", 100),
		},
		JWT: auth.JWTConfig{
			Secret:        getEnv("JWT_SECRET", ""),
			PrivateKeyPEM: getEnv("JWT_PRIVATE_KEY", ""),
			PublicKeyPEM:  getEnv("JWT_PUBLIC_KEY", ""),
			Issuer:        getEnv("JWT_ISSUER", "installment-lending"),
			Expiration:    p.duration("JWT_EXPIRATION", time.Hour),
			Leeway:        p.duration("JWT_LEEWAY", 30*time.Second),
		},
		TLS: TLSConfig{
			CertFile: getEnv("TLS_CERT_FILE", ""),
			KeyFile:  getEnv("TLS_KEY_FILE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    p.bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: p.float("OTEL_TRACES_SAMPLE_RATIO", 1.0),
		},
		Policy: service.LoanPolicy{
			MinAmount:         p.decimal("LOAN_MIN_AMOUNT", "1000"),
			MinInterestRate:   p.decimal("LOAN_INTEREST_RATE_MIN", "0.1"),
			MaxInterestRate:   p.decimal("LOAN_INTEREST_RATE_MAX", "0.5"),
			InstallmentCounts: p.intList("LOAN_INSTALLMENT_COUNTS", "6,9,12,24"),
			Allocation: service.AllocationPolicy{
				RewardPerDay:     p.decimal("LOAN_REWARD_PER_DAY", "0.001"),
				PenaltyPerDay:    p.decimal("LOAN_PENALTY_PER_DAY", "0.001"),
				MaxAdvanceMonths: p.int("LOAN_PAYMENT_IN_ADVANCE_MAX_MONTHS", 3),
			},
		},
		ServiceName: getEnv("SERVICE_NAME", "installment-lending"),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, s := range strings.Split(getEnv(key, fallback), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parser collects conversion errors so Load can report all of them.
type parser struct {
	errs []error
}

func (p *parser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return i
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func (p *parser) decimal(key, fallback string) decimal.Decimal {
	v := getEnv(key, fallback)
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(key, v, err)
		return decimal.Zero
	}
	return d
}

func (p *parser) intList(key, fallback string) []int {
	var out []int
	for _, s := range getEnvList(key, fallback) {
		i, err := strconv.Atoi(s)
		if err != nil {
			p.fail(key, s, err)
			continue
		}
		out = append(out, i)
	}
	return out
}
