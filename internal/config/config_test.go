package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/weatherpipe/weatherpipe/internal/weather"
)

func float64Ptr(v float64) *float64 { return &v }

func baseConfig() *AppConfig {
	return &AppConfig{
		APIBaseURL:      "https://api.open-meteo.com/v1/forecast",
		HourlyVariables: []string{"temperature_2m"},
		HTTPTimeout:     30 * time.Second,
		Cities: []weather.City{
			{Name: "accra", Lat: float64Ptr(5.6037), Lon: float64Ptr(-0.1870), Timezone: "Africa/Accra"},
		},
		StorageEndpoint: "localhost:9000",
		StorageAccess:   "admin",
		StorageSecret:   "admin123",
		Bucket:          "weather-pipeline",
		RawFolder:       "raw",
		ProcessedFolder: "processed",
		PartitionFormat: "year={year}/month={month}/day={day}",
		ScheduleAt:      "01:00",
		Port:            "8080",
		HistorySize:     30,
	}
}

// TestValidateCoordinateBounds pins the corrected latitude bounds: the valid
// range is [-90, 90], not [-180, 90].
func TestValidateCoordinateBounds(t *testing.T) {
	cases := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"valid equator", 0, 0, false},
		{"valid extremes", -90, 180, false},
		{"valid north pole", 90, 0, false},
		{"latitude below -90", -90.01, 0, true},
		{"latitude -120 rejected", -120, 0, true},
		{"latitude above 90", 90.01, 0, true},
		{"longitude below -180", 0, -180.01, true},
		{"longitude above 180", 0, 180.01, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Cities[0].Lat = float64Ptr(tc.lat)
			cfg.Cities[0].Lon = float64Ptr(tc.lon)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error for lat=%v lon=%v", tc.lat, tc.lon)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidateRequiredFields(t *testing.T) {
	cfg := baseConfig()
	cfg.Cities[0].Timezone = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing timezone")
	}

	cfg = baseConfig()
	cfg.Cities[0].Lat = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing latitude")
	}

	cfg = baseConfig()
	cfg.Bucket = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing bucket")
	}

	cfg = baseConfig()
	cfg.HourlyVariables = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty hourly variables")
	}
}

func TestValidateDuplicateCity(t *testing.T) {
	cfg := baseConfig()
	cfg.Cities = append(cfg.Cities, cfg.Cities[0])
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate city name")
	}
}

func TestValidatePartitionFormat(t *testing.T) {
	cfg := baseConfig()
	cfg.PartitionFormat = "year={year}/month={month}"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for partition format missing {day}")
	}
}

func TestLoadCities(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cities.yaml")
	content := []byte(`cities:
  - name: accra
    lat: 5.6037
    lon: -0.1870
    timezone: Africa/Accra
  - name: london
    lat: 51.5072
    lon: -0.1276
    timezone: Europe/London
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cities, err := loadCities(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cities) != 2 {
		t.Fatalf("expected 2 cities, got %d", len(cities))
	}
	if cities[0].Name != "accra" || cities[1].Name != "london" {
		t.Fatalf("unexpected city order: %q, %q", cities[0].Name, cities[1].Name)
	}
	if cities[0].Lat == nil || *cities[0].Lat != 5.6037 {
		t.Fatalf("unexpected latitude: %v", cities[0].Lat)
	}

	if _, err := loadCities(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
