package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

const (
	defaultDataFile      = "data/locker_state.json"
	defaultPoolSize      = 20
	defaultWashAndFold   = "10.00"
	defaultDryCleaning   = "18.00"
	defaultHourlyRate    = "2.00"
	defaultNotifyWorkers = 2
	defaultNotifyBatch   = 5
)

type Config struct {
	DataFile string
	PoolSize int

	// AdminSecretHash is the bcrypt hash gating admin operations. When only
	// ADMIN_PASSWORD is set, the hash is derived at startup.
	AdminSecretHash string
	AdminPassword   string

	ServiceFees map[types.ServiceType]decimal.Decimal
	HourlyRate  decimal.Decimal

	KafkaBrokers []string
	NotifyTopic  string

	NotifyWorkers int
	NotifyBatch   int

	MetricsAddr string
}

// Load reads .env (walking up from the working directory, if present) and
// then the environment. A missing .env is not an error; defaults cover a
// bare first run.
func Load() (Config, error) {
	loadEnv()

	cfg := Config{
		DataFile:        envOr("LOCKER_DATA_FILE", defaultDataFile),
		PoolSize:        defaultPoolSize,
		AdminSecretHash: os.Getenv("ADMIN_SECRET_HASH"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		NotifyTopic:     envOr("NOTIFY_TOPIC", "locker_notifications"),
		NotifyWorkers:   defaultNotifyWorkers,
		NotifyBatch:     defaultNotifyBatch,
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
	}

	if v := os.Getenv("LOCKER_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 999 {
			return Config{}, fmt.Errorf("invalid LOCKER_POOL_SIZE %q", v)
		}
		cfg.PoolSize = n
	}

	washFee, err := decimalEnv("FEE_WASH_AND_FOLD", defaultWashAndFold)
	if err != nil {
		return Config{}, err
	}
	dryFee, err := decimalEnv("FEE_DRY_CLEANING", defaultDryCleaning)
	if err != nil {
		return Config{}, err
	}
	cfg.ServiceFees = map[types.ServiceType]decimal.Decimal{
		types.WashAndFold: washFee,
		types.DryCleaning: dryFee,
	}

	cfg.HourlyRate, err = decimalEnv("LOCKER_FEE_PER_HOUR", defaultHourlyRate)
	if err != nil {
		return Config{}, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg, nil
}

func loadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	for _, p := range []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	} {
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func decimalEnv(key, fallback string) (decimal.Decimal, error) {
	raw := envOr(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}
