package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string    `json:"serverAddress"`
	DatabasePath  string    `json:"databasePath"`
	DatabaseURL   string    `json:"databaseUrl"`
	API           APIConfig `json:"api"`
	Security      Security  `json:"security"`
	Sync          Sync      `json:"sync"`
}

// APIConfig describes the upstream telematics vendor API
type APIConfig struct {
	BaseURL           string `json:"baseUrl"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	TimeoutSeconds    int    `json:"timeoutSeconds"`
	RetryAttempts     int    `json:"retryAttempts"`
	RetryDelaySeconds int    `json:"retryDelaySeconds"`
}

// Security configuration for the local read API
type Security struct {
	APIKey       string `json:"apiKey"`
	APIKeyHeader string `json:"apiKeyHeader"`
}

// Sync configuration for the periodic sync services
type Sync struct {
	DeviceIntervalMinutes int `json:"deviceIntervalMinutes"`
	AlarmIntervalMinutes  int `json:"alarmIntervalMinutes"`
	GPSIntervalSeconds    int `json:"gpsIntervalSeconds"`
	AlarmLookbackMinutes  int `json:"alarmLookbackMinutes"`
	AlarmBatchSize        int `json:"alarmBatchSize"`
	AlarmBatchDelayMS     int `json:"alarmBatchDelayMs"`
	AlarmRetentionDays    int `json:"alarmRetentionDays"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "fleetsync.db",
		API: APIConfig{
			BaseURL:           "http://127.0.0.1:12056",
			Username:          "admin",
			Password:          "admin",
			TimeoutSeconds:    30,
			RetryAttempts:     3,
			RetryDelaySeconds: 5,
		},
		Security: Security{
			APIKey:       "CHANGE_THIS_TO_A_SECURE_API_KEY_AT_LEAST_32_CHARS",
			APIKeyHeader: "X-API-Key",
		},
		Sync: Sync{
			DeviceIntervalMinutes: 10,
			AlarmIntervalMinutes:  5,
			GPSIntervalSeconds:    30,
			AlarmLookbackMinutes:  10,
			AlarmBatchSize:        50,
			AlarmBatchDelayMS:     500,
			AlarmRetentionDays:    30,
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	// Try to load from config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if baseURL := os.Getenv("API_BASE_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if username := os.Getenv("API_USERNAME"); username != "" {
		cfg.API.Username = username
	}
	if password := os.Getenv("API_PASSWORD"); password != "" {
		cfg.API.Password = password
	}
	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		cfg.Security.APIKey = apiKey
	}

	overrideInt(&cfg.API.TimeoutSeconds, "API_TIMEOUT_SECONDS")
	overrideInt(&cfg.API.RetryAttempts, "API_RETRY_ATTEMPTS")
	overrideInt(&cfg.API.RetryDelaySeconds, "API_RETRY_DELAY_SECONDS")
	overrideInt(&cfg.Sync.DeviceIntervalMinutes, "DEVICE_INTERVAL_MINUTES")
	overrideInt(&cfg.Sync.AlarmIntervalMinutes, "ALARM_INTERVAL_MINUTES")
	overrideInt(&cfg.Sync.GPSIntervalSeconds, "GPS_INTERVAL_SECONDS")
	overrideInt(&cfg.Sync.AlarmLookbackMinutes, "ALARM_LOOKBACK_MINUTES")
	overrideInt(&cfg.Sync.AlarmBatchSize, "ALARM_BATCH_SIZE")
	overrideInt(&cfg.Sync.AlarmBatchDelayMS, "ALARM_BATCH_DELAY_MS")
	overrideInt(&cfg.Sync.AlarmRetentionDays, "ALARM_RETENTION_DAYS")

	return cfg, nil
}

func overrideInt(dst *int, envName string) {
	if raw := os.Getenv(envName); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			*dst = v
		}
	}
}
