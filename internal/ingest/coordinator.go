package ingest

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/weatherpipe/weatherpipe/internal/weather"
)

// Fetcher fetches one city's hourly data for one day.
type Fetcher interface {
	FetchCity(ctx context.Context, city weather.City, targetDate time.Time) (*weather.FetchResult, error)
}

// CityResult tags one city's ingestion outcome. Exactly one of Result and
// Err is set.
type CityResult struct {
	City   string
	Result *weather.FetchResult
	Err    error
}

// Coordinator drives the fetch client across all configured cities,
// isolating per-city failures.
type Coordinator struct {
	fetcher Fetcher
}

func NewCoordinator(fetcher Fetcher) *Coordinator {
	return &Coordinator{fetcher: fetcher}
}

// FetchAll fetches every city sequentially, in configured order. One city
// failing never stops the others; every city appears in exactly one result.
// A cancelled context fails the remaining cities without dropping them from
// the output.
func (c *Coordinator) FetchAll(ctx context.Context, cities []weather.City, targetDate time.Time) []CityResult {
	dateStr := weather.FormatDate(targetDate)
	log.WithField("date", dateStr).Infof("starting ingestion for %d cities", len(cities))

	results := make([]CityResult, 0, len(cities))
	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			results = append(results, CityResult{City: city.Name, Err: err})
			continue
		}

		result, err := c.fetcher.FetchCity(ctx, city, targetDate)
		if err != nil {
			log.WithFields(log.Fields{"city": city.Name, "date": dateStr}).
				Errorf("fetch failed after all retries: %v", err)
			results = append(results, CityResult{City: city.Name, Err: err})
			continue
		}

		log.WithFields(log.Fields{"city": city.Name, "date": dateStr}).
			Infof("successfully fetched %d hours of data", result.Hours)
		results = append(results, CityResult{City: city.Name, Result: result})
	}

	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	log.Infof("ingestion complete: %d/%d cities succeeded", succeeded, len(cities))

	return results
}
