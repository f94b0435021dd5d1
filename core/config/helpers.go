package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetAllSettings returns the runtime settings exposed on the settings endpoint.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_debug":                      Global.App.Debug,
		"app_version":                    Global.App.Version,
		"integration_validation_timeout": Global.Integration.ValidationTimeout.String(),
		"integration_test_timeout":       Global.Integration.TestTimeout.String(),
		"integration_health_schedule":    Global.Integration.HealthSchedule,
		"integration_embed_version":      Global.Integration.EmbedVersion,
		"integration_webhooks":           len(Global.Integration.WebhookURLs),
		"valkey_enabled":                 Global.Database.ValkeyEnabled,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(v); err == nil && sec >= 0 {
		return time.Duration(sec) * time.Second
	}
	return fallback
}
