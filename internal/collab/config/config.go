package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	MongoURI string
	Port     string
	DBName   string

	UsersCollection       string
	RoomsCollection       string
	MembershipsCollection string
	MessagesCollection    string
	AuditCollection       string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StoreTimeout time.Duration

	StoreBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	LogLevel string
	LogFile  string

	// SeedUsers preloads the memory backend, as "id:role[:department]" entries.
	SeedUsers []SeedUser
}

type SeedUser struct {
	ID         string
	Role       string
	Department string
}

var defaults = map[string]any{
	"MONGO_URI":              "mongodb://localhost:27017",
	"PORT":                   "8080",
	"DB_NAME":                "collab_db",
	"COLLECTION_USERS":       "users",
	"COLLECTION_ROOMS":       "rooms",
	"COLLECTION_MEMBERSHIPS": "memberships",
	"COLLECTION_MESSAGES":    "messages",
	"COLLECTION_AUDIT":       "audit_records",
	"SERVER_READ_TIMEOUT":    "10",
	"SERVER_WRITE_TIMEOUT":   "10",
	"STORE_TIMEOUT":          "5",
	"STORE_BACKEND":          BackendMongo,
	"REDIS_ADDR":             "",
	"REDIS_PASSWORD":         "",
	"REDIS_DB":               0,
	"RATE_LIMIT_REQUESTS":    300,
	"RATE_LIMIT_WINDOW":      "60",
	"LOG_LEVEL":              "info",
	"LOG_FILE":               "",
	"SEED_USERS":             "",
}

// LoadConfig reads configuration from the environment, layered over an
// optional file named by CONFIG_FILE.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		MongoURI:              v.GetString("MONGO_URI"),
		Port:                  v.GetString("PORT"),
		DBName:                v.GetString("DB_NAME"),
		UsersCollection:       v.GetString("COLLECTION_USERS"),
		RoomsCollection:       v.GetString("COLLECTION_ROOMS"),
		MembershipsCollection: v.GetString("COLLECTION_MEMBERSHIPS"),
		MessagesCollection:    v.GetString("COLLECTION_MESSAGES"),
		AuditCollection:       v.GetString("COLLECTION_AUDIT"),
		ReadTimeout:           parseDuration(v.GetString("SERVER_READ_TIMEOUT"), 10*time.Second),
		WriteTimeout:          parseDuration(v.GetString("SERVER_WRITE_TIMEOUT"), 10*time.Second),
		StoreTimeout:          parseDuration(v.GetString("STORE_TIMEOUT"), 5*time.Second),
		StoreBackend:          strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               v.GetInt("REDIS_DB"),
		RateLimitRequests:     v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:       parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFile:               v.GetString("LOG_FILE"),
	}

	seeds, err := ParseSeedUsers(v.GetString("SEED_USERS"))
	if err != nil {
		return nil, err
	}
	cfg.SeedUsers = seeds

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMongo, BackendMemory, c.StoreBackend)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	return nil
}

// parseDuration accepts whole seconds ("10") or a Go duration ("10s").
func parseDuration(valStr string, fallback time.Duration) time.Duration {
	valStr = strings.TrimSpace(valStr)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		d, err := time.ParseDuration(valStr)
		if err == nil {
			return d
		}
		return fallback
	}
	return time.Duration(val) * time.Second
}

// ParseSeedUsers reads a comma separated "id:role[:department]" list.
func ParseSeedUsers(raw string) ([]SeedUser, error) {
	var out []SeedUser
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("SEED_USERS entry %q must be id:role[:department]", entry)
		}
		role := strings.ToLower(parts[1])
		if role != "user" && role != "admin" {
			return nil, fmt.Errorf("SEED_USERS entry %q has unknown role %q", entry, parts[1])
		}
		seed := SeedUser{ID: parts[0], Role: role}
		if len(parts) == 3 {
			seed.Department = parts[2]
		}
		out = append(out, seed)
	}
	return out, nil
}
