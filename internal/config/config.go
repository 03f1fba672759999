package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL       string
	HTTPListenAddr    string
	MetricsListenAddr string
	LogLevel          string
	ServiceName       string

	// Event source (SQS) settings for the ingest worker.
	QueueURL       string
	AWSRegion      string
	AWSEndpointURL string
	AWSAccessKey   string
	AWSSecretKey   string

	// RulesFile optionally points at a YAML alarm-routing rules file.
	RulesFile string

	AlarmRules AlarmRules
}

// AlarmRules drives the lowest-confidence steps of alarm service-name
// extraction: explicit per-alarm overrides and the final default fallback.
type AlarmRules struct {
	DefaultService string                 `yaml:"default_service"`
	Overrides      map[string]AlarmTarget `yaml:"overrides"`
}

// AlarmTarget is the cluster/service a named alarm maps to.
type AlarmTarget struct {
	Cluster string `yaml:"cluster"`
	Service string `yaml:"service"`
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsListenAddr: getEnv("METRICS_LISTEN_ADDR", ":9090"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ServiceName:       getEnv("SERVICE_NAME", "healops"),
		QueueURL:          getEnv("QUEUE_URL", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL:    getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKey:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
		RulesFile:         getEnv("RULES_FILE", ""),
	}

	cfg.AlarmRules = AlarmRules{
		DefaultService: getEnv("DEFAULT_SERVICE", "unknown"),
	}
	if cfg.RulesFile != "" {
		rules, err := LoadAlarmRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		if rules.DefaultService == "" {
			rules.DefaultService = cfg.AlarmRules.DefaultService
		}
		cfg.AlarmRules = rules
	}

	return cfg, nil
}

// LoadAlarmRules reads and parses a YAML alarm-routing rules file.
func LoadAlarmRules(path string) (AlarmRules, error) {
	var rules AlarmRules
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file: %w", err)
	}
	return rules, nil
}

// Validate checks that the config carries everything the named component
// needs to start.
func (c *Config) Validate(component string) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s: DATABASE_URL is required", component)
	}
	if component == "ingest-worker" && c.QueueURL == "" {
		return fmt.Errorf("%s: QUEUE_URL is required", component)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
