package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type RuntimeConfig struct {
	DBPath               string
	LogCapacity          int
	DesktopNotifications bool
	SchedulerBuffer      int
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DBPath:               defaultDBPath(),
		LogCapacity:          1000,
		DesktopNotifications: true,
		SchedulerBuffer:      64,
	}
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v := strings.TrimSpace(os.Getenv("TASKSCHED_DB_PATH")); v != "" {
		cfg.DBPath = v
	}
	if v, ok := getEnvInt("TASKSCHED_LOG_CAPACITY"); ok && v > 0 {
		cfg.LogCapacity = v
	}
	if v, ok := getEnvBool("TASKSCHED_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvInt("TASKSCHED_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	return cfg
}

func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "taskscheduler.db"
	}
	return filepath.Join(homeDir, ".taskscheduler", "tasks.db")
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
