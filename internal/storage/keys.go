package storage

import (
	"fmt"
	"strings"
	"time"
)

// Keys derives deterministic, Hive-style partitioned object names. The
// layout is a compatibility contract with downstream readers:
//
//	raw/year=2024/month=01/day=15/london.json
//	processed/year=2024/month=01/day=15/london.csv
//
// Keys are always derived, never stored; the same (folder, city, date)
// yields the same string on every run.
type Keys struct {
	RawFolder       string
	ProcessedFolder string
	PartitionFormat string // e.g. "year={year}/month={month}/day={day}"
}

// Raw returns the key for a city's archived raw response.
func (k Keys) Raw(cityName string, date time.Time) string {
	return k.build(k.RawFolder, cityName, date, "json")
}

// Processed returns the key for a city's processed artifact.
func (k Keys) Processed(cityName string, date time.Time) string {
	return k.build(k.ProcessedFolder, cityName, date, "csv")
}

func (k Keys) build(folder, cityName string, date time.Time, ext string) string {
	partition := strings.NewReplacer(
		"{year}", date.Format("2006"),
		"{month}", date.Format("01"),
		"{day}", date.Format("02"),
	).Replace(k.PartitionFormat)

	return fmt.Sprintf("%s/%s/%s.%s", folder, partition, cityName, ext)
}
