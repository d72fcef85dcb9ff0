// Package config loads runtime configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every knob for the server, the simulation calendar, and the
// retry machinery. Day length and the order expiry window are configuration,
// not invariants.
type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	MySQLDSN        string        `yaml:"mysql_dsn"`
	RedisAddr       string        `yaml:"redis_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	MinutesPerSimDay float64 `yaml:"minutes_per_sim_day"`
	MaxSimDays       int     `yaml:"max_sim_days"`
	OrderExpiryDays  float64 `yaml:"order_expiry_days"`

	SweepInterval time.Duration `yaml:"sweep_interval"`

	DispatcherBatchSize   int           `yaml:"dispatcher_batch_size"`
	DispatcherReceiveWait time.Duration `yaml:"dispatcher_receive_wait"`
	MaxJobAttempts        int           `yaml:"max_job_attempts"`

	TargetStock     int    `yaml:"target_stock"`
	DailyProduction int    `yaml:"daily_production"`
	MinMachines     int    `yaml:"min_machines"`
	MaterialsItem   string `yaml:"materials_item"`

	BankURL         string        `yaml:"bank_url"`
	LogisticsURL    string        `yaml:"logistics_url"`
	MaterialsURL    string        `yaml:"materials_url"`
	MachinesURL     string        `yaml:"machines_url"`
	ExternalTimeout time.Duration `yaml:"external_timeout"`
}

func defaults() Config {
	return Config{
		HTTPAddr:        ":8080",
		MySQLDSN:        "root:root@tcp(localhost:3306)/factorysim?parseTime=true",
		RedisAddr:       "localhost:6379",
		ShutdownTimeout: 15 * time.Second,

		MinutesPerSimDay: 2.0,
		MaxSimDays:       0,
		OrderExpiryDays:  1.0,

		SweepInterval: 5 * time.Second,

		DispatcherBatchSize:   16,
		DispatcherReceiveWait: 2 * time.Second,
		MaxJobAttempts:        5,

		TargetStock:     100,
		DailyProduction: 50,
		MinMachines:     1,
		MaterialsItem:   "raw-material",

		BankURL:         "http://localhost:9001",
		LogisticsURL:    "http://localhost:9002",
		MaterialsURL:    "http://localhost:9003",
		MachinesURL:     "http://localhost:9004",
		ExternalTimeout: 10 * time.Second,
	}
}

// Load reads the YAML file named by CONFIG_FILE (when set), then applies
// environment overrides on top of defaults.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.MySQLDSN = getenv("MYSQL_DSN", cfg.MySQLDSN)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.ShutdownTimeout = durenv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.MinutesPerSimDay = floatenv("MINUTES_PER_SIM_DAY", cfg.MinutesPerSimDay)
	cfg.MaxSimDays = intenv("MAX_SIM_DAYS", cfg.MaxSimDays)
	cfg.OrderExpiryDays = floatenv("ORDER_EXPIRY_DAYS", cfg.OrderExpiryDays)

	cfg.SweepInterval = durenv("SWEEP_INTERVAL", cfg.SweepInterval)

	cfg.DispatcherBatchSize = intenv("DISPATCHER_BATCH_SIZE", cfg.DispatcherBatchSize)
	cfg.DispatcherReceiveWait = durenv("DISPATCHER_RECEIVE_WAIT", cfg.DispatcherReceiveWait)
	cfg.MaxJobAttempts = intenv("MAX_JOB_ATTEMPTS", cfg.MaxJobAttempts)

	cfg.TargetStock = intenv("TARGET_STOCK", cfg.TargetStock)
	cfg.DailyProduction = intenv("DAILY_PRODUCTION", cfg.DailyProduction)
	cfg.MinMachines = intenv("MIN_MACHINES", cfg.MinMachines)
	cfg.MaterialsItem = getenv("MATERIALS_ITEM", cfg.MaterialsItem)

	cfg.BankURL = getenv("BANK_URL", cfg.BankURL)
	cfg.LogisticsURL = getenv("LOGISTICS_URL", cfg.LogisticsURL)
	cfg.MaterialsURL = getenv("MATERIALS_URL", cfg.MaterialsURL)
	cfg.MachinesURL = getenv("MACHINES_URL", cfg.MachinesURL)
	cfg.ExternalTimeout = durenv("EXTERNAL_TIMEOUT", cfg.ExternalTimeout)

	return cfg, nil
}

// DayLength is the wall-clock duration of one simulated day.
func (c Config) DayLength() time.Duration {
	return time.Duration(c.MinutesPerSimDay * float64(time.Minute))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intenv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatenv(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func durenv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
