package weather

import "time"

// DateLayout is the calendar-date format used in API requests, storage
// partitions and processed artifacts.
const DateLayout = "2006-01-02"

// City represents one configured location the pipeline ingests.
// Lat/Lon are pointers so a missing coordinate can be told apart from 0.0
// and resolved through geocoding before validation.
type City struct {
	Name     string   `yaml:"name" validate:"required"`
	Lat      *float64 `yaml:"lat" validate:"required,gte=-90,lte=90"`
	Lon      *float64 `yaml:"lon" validate:"required,gte=-180,lte=180"`
	Timezone string   `yaml:"timezone" validate:"required"`
}

// FetchResult is one city's successfully fetched day of hourly data.
// Raw holds the upstream response body verbatim so the archived artifact
// preserves the API's structure and key order exactly.
type FetchResult struct {
	CityName string
	Date     string // YYYY-MM-DD
	Raw      []byte
	Hours    int // length of the hourly time axis, recorded at fetch time
}

// FormatDate renders a target date the way the API and storage keys expect it.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// YesterdayUTC is the default target date for a run: hourly data for a day
// is only complete once that day has fully elapsed in UTC.
func YesterdayUTC(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -1)
}
