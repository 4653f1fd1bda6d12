// Package transform converts one raw API response into a normalized tabular
// record set: flatten the parallel hourly arrays, rename columns with unit
// suffixes, parse timestamps, and enrich with run metadata.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/weatherpipe/weatherpipe/internal/weather"
)

// ErrTransform is the sentinel for structural mismatches during flattening.
var ErrTransform = errors.New("transform failed")

// TimestampColumn is the renamed time axis.
const TimestampColumn = "timestamp"

// metadataColumns lead every processed artifact, in this fixed order.
var metadataColumns = []string{"city_name", "date", TimestampColumn, "ingested_at"}

// unitSuffixes maps upstream unit strings to column-name suffixes. Special
// characters like ° or % break SQL and some CSV parsers downstream, so
// columns carry a cleaned suffix instead. Unknown units leave the column
// name unchanged; the rename is cosmetic, not correctness-critical.
var unitSuffixes = map[string]string{
	"°C":      "_c",
	"%":       "_pct",
	"km/h":    "_kmh",
	"m":       "_m",
	"mm":      "_mm",
	"°":       "_deg",
	"iso8601": "",
}

// timestampLayouts are tried in order when parsing hourly time values. The
// upstream API reports local time without an offset and without seconds.
var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Transform flattens one raw response into a Table for (cityName, date).
//
// Output guarantees: one row per entry of the hourly time axis; columns are
// the four metadata columns followed by the weather variables in the order
// the API declared them, suffixed per unitSuffixes. All rows share one
// ingested_at value. A length mismatch across hourly arrays fails with
// ErrTransform; an unparseable single timestamp only blanks its own cell.
func Transform(cityName, date string, raw []byte) (*Table, error) {
	forecast, err := weather.ParseForecast(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransform, err)
	}

	rows := forecast.HourCount()
	for _, name := range forecast.Order {
		if n := len(forecast.Series[name]); n != rows {
			return nil, fmt.Errorf("%w: series %q has %d entries, expected %d", ErrTransform, name, n, rows)
		}
	}

	// Rename pass: time → timestamp, everything else gets its unit suffix.
	renamed := make([]string, 0, len(forecast.Order))
	weatherCols := make([]string, 0, len(forecast.Order))
	for _, name := range forecast.Order {
		if name == weather.TimeVariable {
			renamed = append(renamed, TimestampColumn)
			continue
		}
		col := name + unitSuffixes[forecast.Units[name]]
		renamed = append(renamed, col)
		weatherCols = append(weatherCols, col)
	}

	columns := append(append([]string{}, metadataColumns...), weatherCols...)
	ingestedAt := time.Now().UTC().Format(time.RFC3339)

	table := &Table{Columns: columns, Rows: make([][]string, 0, rows)}
	for i := 0; i < rows; i++ {
		row := make([]string, 0, len(columns))
		row = append(row, cityName, date, parseTimestamp(forecast.Series[weather.TimeVariable][i]), ingestedAt)
		for _, name := range forecast.Order {
			if name == weather.TimeVariable {
				continue
			}
			row = append(row, renderValue(forecast.Series[name][i]))
		}
		table.Rows = append(table.Rows, row)
	}

	log.WithFields(log.Fields{"city": cityName, "date": date}).
		Infof("transform complete: %d rows, %d columns", table.RowCount(), len(columns))

	return table, nil
}

// parseTimestamp normalizes one hourly time value. Unparseable entries
// become an empty cell rather than failing the whole transform; a single
// malformed hour must not invalidate the other 23.
func parseTimestamp(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02T15:04:05")
		}
	}
	return ""
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case json.Number:
		return val.String()
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(val)
	}
}

// Item is one city's raw payload queued for transformation.
type Item struct {
	CityName string
	Raw      []byte
}

// Result tags one city's transform outcome.
type Result struct {
	CityName string
	Table    *Table
	Err      error
}

// All transforms every item, isolating per-city failures the same way
// ingestion does: one city failing never stops the others.
func All(items []Item, date string) []Result {
	results := make([]Result, 0, len(items))
	failed := 0

	for _, item := range items {
		table, err := Transform(item.CityName, date, item.Raw)
		if err != nil {
			log.WithFields(log.Fields{"city": item.CityName, "date": date}).
				Errorf("transform failed: %v", err)
			results = append(results, Result{CityName: item.CityName, Err: err})
			failed++
			continue
		}
		results = append(results, Result{CityName: item.CityName, Table: table})
	}

	log.Infof("transform stage complete: %d succeeded, %d failed", len(items)-failed, failed)
	return results
}
