package config

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"outbound-reply-pipeline/pkg/constants"
)

type Config struct {
	RedisURL              string
	Port                  string
	LogLevel              string
	InstanceID            string
	BaseLanguage          string
	SMSMaxLength          int
	PolicyEngineURL       string
	PolicyEngineTimeoutMS int64
	RepairStateTTLHours   int
	DispatchEnabled       bool
}

func Load() *Config {
	config := &Config{
		RedisURL:              getEnv(constants.EnvRedisURL, "redis://localhost:6379"),
		Port:                  getEnv(constants.EnvPort, "8080"),
		LogLevel:              getEnv(constants.EnvLogLevel, "info"),
		InstanceID:            generateInstanceID(),
		BaseLanguage:          getEnv(constants.EnvBaseLanguage, "en"),
		SMSMaxLength:          getEnvInt(constants.EnvSMSMaxLength, constants.DefaultSMSMaxLength),
		PolicyEngineURL:       getEnv(constants.EnvPolicyEngineURL, ""),
		PolicyEngineTimeoutMS: getEnvInt64(constants.EnvPolicyEngineTimeoutMS, constants.DefaultPolicyEngineTimeoutMS),
		RepairStateTTLHours:   getEnvInt(constants.EnvRepairStateTTLHours, constants.DefaultRepairStateTTLHours),
		DispatchEnabled:       getEnvBool(constants.EnvDispatchEnabled, true),
	}

	return config
}

func (c *Config) PolicyEngineTimeout() time.Duration {
	return constants.MillisecondsToDuration(c.PolicyEngineTimeoutMS)
}

func (c *Config) RepairStateTTL() time.Duration {
	return constants.HoursToDuration(c.RepairStateTTLHours)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func generateInstanceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		return uuid.New().String()
	}
	return hostname + "-" + uuid.New().String()[:8]
}
