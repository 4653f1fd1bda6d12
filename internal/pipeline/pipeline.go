// Package pipeline sequences ingestion, raw archival, read-back, transform
// and processed write across all configured cities. Failures at any stage
// remove that city from subsequent stages without aborting the run; the only
// fatal condition is total ingestion failure.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/weatherpipe/weatherpipe/internal/ingest"
	"github.com/weatherpipe/weatherpipe/internal/metrics"
	"github.com/weatherpipe/weatherpipe/internal/transform"
	"github.com/weatherpipe/weatherpipe/internal/weather"
)

// ErrAllCitiesFailed is returned when zero cities survive ingestion.
var ErrAllCitiesFailed = errors.New("all cities failed ingestion")

// Ingestor drives fetches across all cities, one tagged result per city.
type Ingestor interface {
	FetchAll(ctx context.Context, cities []weather.City, targetDate time.Time) []ingest.CityResult
}

// Store is the slice of the object store adapter the pipeline needs.
type Store interface {
	WriteRaw(ctx context.Context, cityName string, date time.Time, raw []byte) (string, error)
	ReadRaw(ctx context.Context, cityName string, date time.Time) ([]byte, error)
	WriteProcessed(ctx context.Context, cityName string, date time.Time, table *transform.Table) (string, error)
}

// Pipeline runs the daily batch for a fixed set of cities.
type Pipeline struct {
	cities   []weather.City
	ingestor Ingestor
	store    Store
}

func New(cities []weather.City, ingestor Ingestor, store Store) *Pipeline {
	return &Pipeline{cities: cities, ingestor: ingestor, store: store}
}

// Run executes one complete pipeline for targetDate. The returned Outcome
// names every dropped city and the stage that dropped it; it is non-nil
// even when the run fails fatally.
func (p *Pipeline) Run(ctx context.Context, targetDate time.Time) (*Outcome, error) {
	outcome := &Outcome{
		RunID:      uuid.NewString()[:8],
		TargetDate: weather.FormatDate(targetDate),
		StartedAt:  time.Now().UTC(),
	}
	runLog := log.WithField("run_id", outcome.RunID)

	runLog.Infof("pipeline starting: target date %s, %d cities", outcome.TargetDate, len(p.cities))

	// Stage 1: ingestion.
	fetched := make(map[string]*weather.FetchResult)
	var order []string
	for _, r := range p.ingestor.FetchAll(ctx, p.cities, targetDate) {
		if r.Err != nil {
			p.fail(outcome, runLog, r.City, StageIngest, r.Err)
			continue
		}
		fetched[r.City] = r.Result
		order = append(order, r.City)
	}

	if len(fetched) == 0 {
		outcome.Duration = time.Since(outcome.StartedAt)
		metrics.RunsTotal.WithLabelValues("failure").Inc()
		runLog.Error("all cities failed ingestion, pipeline halted")
		return outcome, ErrAllCitiesFailed
	}

	// Stage 2: archive raw responses.
	var rawWritten []string
	for _, city := range order {
		if err := ctx.Err(); err != nil {
			p.fail(outcome, runLog, city, StageRawWrite, err)
			continue
		}
		if _, err := p.store.WriteRaw(ctx, city, targetDate, fetched[city].Raw); err != nil {
			p.fail(outcome, runLog, city, StageRawWrite, err)
			continue
		}
		rawWritten = append(rawWritten, city)
	}

	// Stage 3: read raw back from storage. The pipeline deliberately
	// re-reads rather than reusing the in-memory payload so the write path
	// is validated on every run.
	var items []transform.Item
	for _, city := range rawWritten {
		if err := ctx.Err(); err != nil {
			p.fail(outcome, runLog, city, StageRawRead, err)
			continue
		}
		raw, err := p.store.ReadRaw(ctx, city, targetDate)
		if err != nil {
			p.fail(outcome, runLog, city, StageRawRead, err)
			continue
		}
		items = append(items, transform.Item{CityName: city, Raw: raw})
	}

	// Stage 4: transform.
	var transformed []transform.Result
	for _, r := range transform.All(items, outcome.TargetDate) {
		if r.Err != nil {
			p.fail(outcome, runLog, r.CityName, StageTransform, r.Err)
			continue
		}
		transformed = append(transformed, r)
	}

	// Stage 5: write processed artifacts.
	for _, r := range transformed {
		if err := ctx.Err(); err != nil {
			p.fail(outcome, runLog, r.CityName, StageProcessedWrite, err)
			continue
		}
		if _, err := p.store.WriteProcessed(ctx, r.CityName, targetDate, r.Table); err != nil {
			p.fail(outcome, runLog, r.CityName, StageProcessedWrite, err)
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, r.CityName)
		outcome.TotalRows += r.Table.RowCount()
		metrics.RowsWrittenTotal.WithLabelValues(r.CityName).Add(float64(r.Table.RowCount()))
		metrics.CitiesProcessedTotal.WithLabelValues("success").Inc()
	}

	outcome.Duration = time.Since(outcome.StartedAt)
	metrics.RunsTotal.WithLabelValues(outcome.Status()).Inc()
	metrics.RunDurationSeconds.Observe(outcome.Duration.Seconds())

	p.logSummary(runLog, outcome)
	return outcome, nil
}

func (p *Pipeline) fail(o *Outcome, runLog *log.Entry, city string, stage Stage, err error) {
	runLog.WithFields(log.Fields{"city": city, "stage": string(stage)}).
		Errorf("city dropped from run: %v", err)
	o.Failures = append(o.Failures, CityFailure{City: city, Stage: stage, Reason: err.Error()})
	metrics.StageFailuresTotal.WithLabelValues(string(stage)).Inc()
	metrics.CitiesProcessedTotal.WithLabelValues("failure").Inc()
}

func (p *Pipeline) logSummary(runLog *log.Entry, o *Outcome) {
	runLog.Infof("pipeline complete: target date %s, duration %.2fs", o.TargetDate, o.Duration.Seconds())
	runLog.Infof("cities successful: %d/%d", len(o.Succeeded), len(p.cities))
	if len(o.Failures) > 0 {
		runLog.Warnf("cities failed: %v", o.FailedCities())
	}
	if o.TotalRows != o.ExpectedRows() {
		runLog.Warnf("total rows loaded: %d (expected %d)", o.TotalRows, o.ExpectedRows())
	} else {
		runLog.Infof("total rows loaded: %d", o.TotalRows)
	}
}
