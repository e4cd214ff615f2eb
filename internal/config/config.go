package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port                string        `json:"port"`
	MaxConnections      int           `json:"max_connections"`
	HeartbeatInterval   time.Duration `json:"heartbeat_interval"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	PongTimeout         time.Duration `json:"pong_timeout"`
	SendBuffer          int           `json:"send_buffer"`
	EnableHealthCheck   bool          `json:"enable_health_check"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	ShutdownTimeout     time.Duration `json:"shutdown_timeout"`
	EnableMetrics       bool          `json:"enable_metrics"`

	// Realtime protocol
	MaxRoomKeyLength int `json:"max_room_key_length"`
	HistoryLimit     int `json:"history_limit"`

	// Auth
	JWTSecret   string        `json:"jwt_secret"`
	TokenTTL    time.Duration `json:"token_ttl"`
	CORSOrigins []string      `json:"cors_origins"`

	// Storage
	Storage             string        `json:"storage"`
	MongoURI            string        `json:"mongo_uri"`
	MongoDatabase       string        `json:"mongo_database"`
	MongoConnectTimeout time.Duration `json:"mongo_connect_timeout"`
	MongoOpTimeout      time.Duration `json:"mongo_op_timeout"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:                ":5000",
		MaxConnections:      1000,
		HeartbeatInterval:   30 * time.Second,
		ReadTimeout:         60 * time.Second,
		WriteTimeout:        10 * time.Second,
		PongTimeout:         60 * time.Second, // เวลารอ pong response
		SendBuffer:          256,
		EnableHealthCheck:   true,
		HealthCheckInterval: 30 * time.Second,
		ShutdownTimeout:     10 * time.Second,
		EnableMetrics:       true,

		MaxRoomKeyLength: 128,
		HistoryLimit:     100,

		JWTSecret:   "",
		TokenTTL:    7 * 24 * time.Hour,
		CORSOrigins: []string{"*"},

		Storage:             StorageMongo,
		MongoURI:            "mongodb://localhost:27017",
		MongoDatabase:       "petbuddy",
		MongoConnectTimeout: 10 * time.Second,
		MongoOpTimeout:      5 * time.Second,
	}
}

// Validate checks the settings the server cannot start without
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret cannot be empty (set PETBUDDY_JWT_SECRET)")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send buffer must be positive, got %d", c.SendBuffer)
	}
	switch c.Storage {
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("mongo uri cannot be empty when storage is %q", StorageMongo)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage)
	}
	return nil
}

// ConfigLoader handles loading configuration from various sources
type ConfigLoader struct {
	configPath string
	envFile    string
	mutex      sync.RWMutex
}

// NewConfigLoader creates a new configuration loader. Either path may be empty.
func NewConfigLoader(configPath, envFile string) *ConfigLoader {
	return &ConfigLoader{
		configPath: configPath,
		envFile:    envFile,
	}
}

// Path returns the JSON config file path
func (cl *ConfigLoader) Path() string {
	return cl.configPath
}

// LoadConfig loads configuration: defaults, then JSON file, then .env, then environment.
func (cl *ConfigLoader) LoadConfig() (*ServerConfig, error) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	config := DefaultServerConfig()

	if cl.configPath != "" {
		if err := cl.loadFromFile(config); err != nil {
			return nil, err
		}
	}

	if cl.envFile != "" {
		// godotenv.Load ไม่ทับค่าที่มีอยู่แล้วใน environment
		if err := godotenv.Load(cl.envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", cl.envFile, err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// loadFromFile loads configuration from JSON file
func (cl *ConfigLoader) loadFromFile(config *ServerConfig) error {
	data, err := os.ReadFile(cl.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("⚠️ Config file %s not found, using defaults", cl.configPath)
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := file.apply(config); err != nil {
		return fmt.Errorf("invalid config file %s: %w", cl.configPath, err)
	}

	log.Printf("✅ Loaded configuration from %s", cl.configPath)
	return nil
}

// fileConfig mirrors ServerConfig with durations written as strings ("30s").
type fileConfig struct {
	Port                *string  `json:"port"`
	MaxConnections      *int     `json:"max_connections"`
	HeartbeatInterval   *string  `json:"heartbeat_interval"`
	ReadTimeout         *string  `json:"read_timeout"`
	WriteTimeout        *string  `json:"write_timeout"`
	PongTimeout         *string  `json:"pong_timeout"`
	SendBuffer          *int     `json:"send_buffer"`
	EnableHealthCheck   *bool    `json:"enable_health_check"`
	HealthCheckInterval *string  `json:"health_check_interval"`
	ShutdownTimeout     *string  `json:"shutdown_timeout"`
	EnableMetrics       *bool    `json:"enable_metrics"`
	MaxRoomKeyLength    *int     `json:"max_room_key_length"`
	HistoryLimit        *int     `json:"history_limit"`
	JWTSecret           *string  `json:"jwt_secret"`
	TokenTTL            *string  `json:"token_ttl"`
	CORSOrigins         []string `json:"cors_origins"`
	Storage             *string  `json:"storage"`
	MongoURI            *string  `json:"mongo_uri"`
	MongoDatabase       *string  `json:"mongo_database"`
	MongoConnectTimeout *string  `json:"mongo_connect_timeout"`
	MongoOpTimeout      *string  `json:"mongo_op_timeout"`
}

func (f *fileConfig) apply(config *ServerConfig) error {
	setString(&config.Port, f.Port)
	setInt(&config.MaxConnections, f.MaxConnections)
	setInt(&config.SendBuffer, f.SendBuffer)
	setBool(&config.EnableHealthCheck, f.EnableHealthCheck)
	setBool(&config.EnableMetrics, f.EnableMetrics)
	setInt(&config.MaxRoomKeyLength, f.MaxRoomKeyLength)
	setInt(&config.HistoryLimit, f.HistoryLimit)
	setString(&config.JWTSecret, f.JWTSecret)
	setString(&config.Storage, f.Storage)
	setString(&config.MongoURI, f.MongoURI)
	setString(&config.MongoDatabase, f.MongoDatabase)
	if f.CORSOrigins != nil {
		config.CORSOrigins = f.CORSOrigins
	}

	durations := []struct {
		name string
		dst  *time.Duration
		src  *string
	}{
		{"heartbeat_interval", &config.HeartbeatInterval, f.HeartbeatInterval},
		{"read_timeout", &config.ReadTimeout, f.ReadTimeout},
		{"write_timeout", &config.WriteTimeout, f.WriteTimeout},
		{"pong_timeout", &config.PongTimeout, f.PongTimeout},
		{"health_check_interval", &config.HealthCheckInterval, f.HealthCheckInterval},
		{"shutdown_timeout", &config.ShutdownTimeout, f.ShutdownTimeout},
		{"token_ttl", &config.TokenTTL, f.TokenTTL},
		{"mongo_connect_timeout", &config.MongoConnectTimeout, f.MongoConnectTimeout},
		{"mongo_op_timeout", &config.MongoOpTimeout, f.MongoOpTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		val, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = val
	}
	return nil
}

// loadFromEnv loads configuration from PETBUDDY_* environment variables
func loadFromEnv(config *ServerConfig) error {
	if port := os.Getenv("PETBUDDY_PORT"); port != "" {
		if !strings.Contains(port, ":") {
			port = ":" + port
		}
		config.Port = port
	}

	ints := map[string]*int{
		"PETBUDDY_MAX_CONNECTIONS":     &config.MaxConnections,
		"PETBUDDY_SEND_BUFFER":         &config.SendBuffer,
		"PETBUDDY_MAX_ROOM_KEY_LENGTH": &config.MaxRoomKeyLength,
		"PETBUDDY_HISTORY_LIMIT":       &config.HistoryLimit,
	}
	for key, dst := range ints {
		if raw := os.Getenv(key); raw != "" {
			val, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = val
		}
	}

	durations := map[string]*time.Duration{
		"PETBUDDY_HEARTBEAT_INTERVAL":    &config.HeartbeatInterval,
		"PETBUDDY_READ_TIMEOUT":          &config.ReadTimeout,
		"PETBUDDY_WRITE_TIMEOUT":         &config.WriteTimeout,
		"PETBUDDY_PONG_TIMEOUT":          &config.PongTimeout,
		"PETBUDDY_HEALTH_CHECK_INTERVAL": &config.HealthCheckInterval,
		"PETBUDDY_SHUTDOWN_TIMEOUT":      &config.ShutdownTimeout,
		"PETBUDDY_TOKEN_TTL":             &config.TokenTTL,
		"PETBUDDY_MONGO_OP_TIMEOUT":      &config.MongoOpTimeout,
	}
	for key, dst := range durations {
		if raw := os.Getenv(key); raw != "" {
			val, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = val
		}
	}

	// Feature flags
	if raw := os.Getenv("PETBUDDY_ENABLE_METRICS"); raw != "" {
		config.EnableMetrics = raw == "true"
	}
	if raw := os.Getenv("PETBUDDY_ENABLE_HEALTH_CHECK"); raw != "" {
		config.EnableHealthCheck = raw == "true"
	}

	// JWT_SECRET และ MONGO_URI ใช้ชื่อเดียวกับ backend เดิม
	if secret := firstEnv("PETBUDDY_JWT_SECRET", "JWT_SECRET"); secret != "" {
		config.JWTSecret = secret
	}
	if uri := firstEnv("PETBUDDY_MONGO_URI", "MONGO_URI"); uri != "" {
		config.MongoURI = uri
	}
	if db := os.Getenv("PETBUDDY_MONGO_DATABASE"); db != "" {
		config.MongoDatabase = db
	}
	if storage := os.Getenv("PETBUDDY_STORAGE"); storage != "" {
		config.Storage = storage
	}
	if origins := os.Getenv("PETBUDDY_CORS_ORIGINS"); origins != "" {
		config.CORSOrigins = splitList(origins)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
