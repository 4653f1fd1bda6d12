package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/weatherpipe/weatherpipe/internal/weather"
)

var validate = validator.New()

// AppConfig holds everything the pipeline needs for a run. It is loaded and
// validated once before any stage executes; components receive it (or slices
// of it) at construction and never read the environment themselves.
type AppConfig struct {
	// Upstream API.
	APIBaseURL      string        `validate:"required,url"`
	HourlyVariables []string      `validate:"required,min=1,dive,required"`
	HTTPTimeout     time.Duration `validate:"required"`

	// Cities to ingest, in configured order.
	Cities []weather.City `validate:"required,min=1,dive"`

	// Object storage.
	StorageEndpoint string `validate:"required"`
	StorageAccess   string `validate:"required"`
	StorageSecret   string `validate:"required"`
	StorageSSL      bool
	Bucket          string `validate:"required"`
	RawFolder       string `validate:"required"`
	ProcessedFolder string `validate:"required"`
	PartitionFormat string `validate:"required"`

	// Daily trigger.
	ScheduleAt   string        `validate:"required"`
	MisfireGrace time.Duration

	// Admin API.
	Port string

	// Run-history retention for the admin API.
	HistorySize int

	// Optional Google API key; enables coordinate resolution for cities
	// configured without lat/lon.
	GeocoderAPIKey string
}

// Load reads configuration from the environment and the cities file.
// The returned config is already validated.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Infof("no .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		APIBaseURL:      getenvDefault("API_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		StorageEndpoint: getenvDefault("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccess:   os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecret:   os.Getenv("STORAGE_SECRET_KEY"),
		StorageSSL:      strings.EqualFold(getenvDefault("STORAGE_SSL", "false"), "true"),
		Bucket:          getenvDefault("STORAGE_BUCKET", "weather-pipeline"),
		RawFolder:       getenvDefault("RAW_FOLDER", "raw"),
		ProcessedFolder: getenvDefault("PROCESSED_FOLDER", "processed"),
		PartitionFormat: getenvDefault("PARTITION_FORMAT", "year={year}/month={month}/day={day}"),
		ScheduleAt:      getenvDefault("SCHEDULE_AT", "01:00"),
		Port:            getenvDefault("PORT", "8080"),
		HistorySize:     getenvInt("RUN_HISTORY_SIZE", 30),
		GeocoderAPIKey:  os.Getenv("GEOCODER_API_KEY"),
	}

	vars := getenvDefault("HOURLY_VARIABLES", "temperature_2m,relative_humidity_2m,wind_speed_10m")
	for _, v := range strings.Split(vars, ",") {
		if v = strings.TrimSpace(v); v != "" {
			cfg.HourlyVariables = append(cfg.HourlyVariables, v)
		}
	}

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	graceStr := getenvDefault("MISFIRE_GRACE", "1h")
	grace, err := time.ParseDuration(graceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid MISFIRE_GRACE: %w", err)
	}
	cfg.MisfireGrace = grace

	cities, err := loadCities(getenvDefault("CITIES_FILE", "config/cities.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Cities = cities

	if err := cfg.resolveCoordinates(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the whole configuration, including per-city coordinate
// bounds. Latitude is constrained to [-90, 90] and longitude to [-180, 180]
// via the struct tags on weather.City.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Cities))
	for _, city := range c.Cities {
		if _, dup := seen[city.Name]; dup {
			return fmt.Errorf("config validation failed: duplicate city %q", city.Name)
		}
		seen[city.Name] = struct{}{}
	}

	for _, placeholder := range []string{"{year}", "{month}", "{day}"} {
		if !strings.Contains(c.PartitionFormat, placeholder) {
			return fmt.Errorf("config validation failed: partition format missing %s", placeholder)
		}
	}

	if _, err := time.Parse("15:04", c.ScheduleAt); err != nil {
		return fmt.Errorf("config validation failed: invalid SCHEDULE_AT %q", c.ScheduleAt)
	}

	return nil
}

// resolveCoordinates fills in missing city coordinates through geocoding.
// Without a geocoder key, cities missing coordinates fail validation instead.
func (c *AppConfig) resolveCoordinates() error {
	if c.GeocoderAPIKey == "" {
		return nil
	}
	geocoder.ApiKey = c.GeocoderAPIKey

	for i := range c.Cities {
		city := &c.Cities[i]
		if city.Lat != nil && city.Lon != nil {
			continue
		}

		location, err := geocoder.Geocoding(geocoder.Address{City: city.Name})
		if err != nil {
			return fmt.Errorf("geocoding %s: %w", city.Name, err)
		}

		lat, lon := location.Latitude, location.Longitude
		city.Lat, city.Lon = &lat, &lon
		log.Infof("resolved coordinates for %s: lat=%.4f lon=%.4f", city.Name, lat, lon)
	}
	return nil
}

type citiesFile struct {
	Cities []weather.City `yaml:"cities"`
}

func loadCities(path string) ([]weather.City, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cities file: %w", err)
	}

	var f citiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse cities file %s: %w", path, err)
	}
	if len(f.Cities) == 0 {
		return nil, fmt.Errorf("cities file %s defines no cities", path)
	}

	return f.Cities, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
