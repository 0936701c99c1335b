package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-dw-loader/internal/validation"
)

const (
	DefaultWeatherAPIURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

	AuthIntegrated = "integrated"
	AuthSQL        = "sql"

	maxLocationLength = 200
)

// DefaultElements is the Timeline API field list the loader needs.
var DefaultElements = []string{"datetime", "latitude", "longitude", "temp", "windspeed", "description"}

// Config holds job configuration loaded from .env, YAML and env.
type Config struct {
	WeatherAPIURL     string        `validate:"required,url"`
	WeatherAPIKey     string        `validate:"required"`
	WeatherAPITimeout time.Duration `validate:"gt=0"`

	Location  string   `validate:"required"`
	StartDate string   `validate:"required"`
	EndDate   string   `validate:"required"`
	UnitGroup string   `validate:"oneof=us metric uk base"`
	Elements  []string `validate:"min=1,dive,required"`
	Include   string   `validate:"required"`

	DBDriver      string `validate:"oneof=sqlserver postgres sqlite3"`
	DBHost        string
	DBPort        int `validate:"gte=0,lte=65535"`
	DBName        string `validate:"required"`
	DBAuth        string `validate:"oneof=integrated sql"`
	DBUser        string
	DBPassword    string
	DBTable       string `validate:"required"`
	DBDSN         string
	DBCreateTable bool
	DBTimeout     time.Duration `validate:"gt=0"`

	PushgatewayURL string `validate:"omitempty,url"`
	MetricsJob     string `validate:"required"`
}

type fileConfig struct {
	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Query struct {
		Location  string   `yaml:"location"`
		StartDate string   `yaml:"start_date"`
		EndDate   string   `yaml:"end_date"`
		UnitGroup string   `yaml:"unit_group"`
		Elements  []string `yaml:"elements"`
		Include   string   `yaml:"include"`
	} `yaml:"query"`

	Database struct {
		Driver      string `yaml:"driver"`
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		Name        string `yaml:"name"`
		Auth        string `yaml:"auth"`
		User        string `yaml:"user"`
		Table       string `yaml:"table"`
		DSN         string `yaml:"dsn"`
		CreateTable bool   `yaml:"create_table"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"database"`

	Metrics struct {
		PushgatewayURL string `yaml:"pushgateway_url"`
		Job            string `yaml:"job"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	WeatherAPIKey    string `yaml:"weather_api_key"`
	DatabasePassword string `yaml:"database_password"`
}

// Load reads .env (optional), config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// Env vars override file values. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := loadSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.WeatherAPIURL = strings.TrimRight(firstNonEmpty(os.Getenv("WEATHER_API_URL"), fc.WeatherAPI.URL, DefaultWeatherAPIURL), "/")
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 30*time.Second)
	cfg.WeatherAPIKey = firstNonEmpty(os.Getenv("WEATHER_API_KEY"), sec.WeatherAPIKey)
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")
	}

	cfg.Location = firstNonEmpty(os.Getenv("WEATHER_LOCATION"), fc.Query.Location)
	cfg.StartDate = firstNonEmpty(os.Getenv("WEATHER_START_DATE"), fc.Query.StartDate)
	cfg.EndDate = firstNonEmpty(os.Getenv("WEATHER_END_DATE"), fc.Query.EndDate)
	cfg.UnitGroup = strings.ToLower(strings.TrimSpace(fc.Query.UnitGroup))
	if cfg.UnitGroup == "" {
		cfg.UnitGroup = "us"
	}
	cfg.Elements = fc.Query.Elements
	if len(cfg.Elements) == 0 {
		cfg.Elements = append([]string(nil), DefaultElements...)
	}
	cfg.Include = firstNonEmpty(fc.Query.Include, "days")

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("DATABASE_DRIVER"), fc.Database.Driver, "sqlserver")))
	cfg.DBHost = firstNonEmpty(os.Getenv("DATABASE_HOST"), fc.Database.Host, "localhost")
	cfg.DBPort = fc.Database.Port
	if cfg.DBPort <= 0 {
		cfg.DBPort = defaultPort(cfg.DBDriver)
	}
	cfg.DBName = firstNonEmpty(os.Getenv("DATABASE_NAME"), fc.Database.Name)
	cfg.DBAuth = strings.ToLower(strings.TrimSpace(firstNonEmpty(fc.Database.Auth, AuthIntegrated)))
	cfg.DBUser = firstNonEmpty(os.Getenv("DATABASE_USER"), fc.Database.User)
	cfg.DBPassword = firstNonEmpty(os.Getenv("DATABASE_PASSWORD"), sec.DatabasePassword)
	cfg.DBTable = firstNonEmpty(fc.Database.Table, defaultTable(cfg.DBDriver))
	cfg.DBDSN = firstNonEmpty(os.Getenv("DATABASE_DSN"), fc.Database.DSN)
	cfg.DBCreateTable = fc.Database.CreateTable
	cfg.DBTimeout = parseDuration(fc.Database.Timeout, 60*time.Second)

	cfg.PushgatewayURL = firstNonEmpty(os.Getenv("PUSHGATEWAY_URL"), fc.Metrics.PushgatewayURL)
	cfg.MetricsJob = firstNonEmpty(fc.Metrics.Job, "weather_dw_loader")

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func defaultPort(driver string) int {
	switch driver {
	case "postgres":
		return 5432
	case "sqlite3":
		return 0
	default:
		return 1433
	}
}

func defaultTable(driver string) string {
	if driver == "sqlserver" {
		return "dbo.Dim_Weather"
	}
	return "Dim_Weather"
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks struct tags, then the rules tags cannot express: location charset,
// date ordering, and credentials for SQL auth. Normalizes Location in place.
func validate(cfg *Config) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}

	loc, err := validation.ValidateLocation(cfg.Location, maxLocationLength)
	if err != nil {
		return fmt.Errorf("config: query.location: %w", err)
	}
	cfg.Location = loc

	if _, _, err := validation.ValidateDateRange(cfg.StartDate, cfg.EndDate); err != nil {
		return fmt.Errorf("config: query dates: %w", err)
	}

	if cfg.DBDSN == "" && cfg.DBDriver != "sqlite3" {
		if cfg.DBAuth == AuthSQL && cfg.DBUser == "" {
			return fmt.Errorf("config: database.user required when database.auth is %q", AuthSQL)
		}
		if cfg.DBHost == "" {
			return fmt.Errorf("config: database.host required for driver %q", cfg.DBDriver)
		}
	}
	return nil
}
