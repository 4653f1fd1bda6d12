package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/weatherpipe/weatherpipe/internal/metrics"
	"github.com/weatherpipe/weatherpipe/internal/weather"
)

// Client fetches one day of hourly data per city from the upstream API.
type Client struct {
	baseURL string
	hourly  []string
	httpCli *http.Client
	circuit *gobreaker.CircuitBreaker
	policy  Policy
}

// NewClient builds a fetch client with the default retry policy and a
// circuit breaker in front of the upstream API.
func NewClient(baseURL string, hourlyVariables []string, httpCli *http.Client) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL: baseURL,
		hourly:  hourlyVariables,
		httpCli: httpCli,
		circuit: cb,
		policy:  DefaultPolicy(),
	}
}

// FetchCity fetches target-date hourly data for one city, retrying transient
// failures only. The returned result carries the verbatim response body.
func (c *Client) FetchCity(ctx context.Context, city weather.City, targetDate time.Time) (*weather.FetchResult, error) {
	dateStr := weather.FormatDate(targetDate)

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(*city.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(*city.Lon, 'f', -1, 64))
	values.Set("hourly", strings.Join(c.hourly, ","))
	values.Set("timezone", city.Timezone)
	values.Set("start_date", dateStr)
	values.Set("end_date", dateStr)
	requestURL := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())

	policy := c.policy
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		metrics.RetryWaitsTotal.Inc()
		log.WithFields(log.Fields{
			"city":    city.Name,
			"attempt": attempt,
			"wait":    wait.String(),
		}).Warnf("fetch failed, retrying: %v", err)
	}

	var raw []byte
	var hours int
	err := policy.Do(ctx, func() error {
		body, n, err := c.fetchOnce(ctx, requestURL)
		if err != nil {
			if IsTransient(err) {
				metrics.FetchAttemptsTotal.WithLabelValues("transient").Inc()
			} else {
				metrics.FetchAttemptsTotal.WithLabelValues("permanent").Inc()
			}
			return err
		}
		metrics.FetchAttemptsTotal.WithLabelValues("success").Inc()
		raw, hours = body, n
		return nil
	}, IsTransient)
	if err != nil {
		return nil, err
	}

	return &weather.FetchResult{
		CityName: city.Name,
		Date:     dateStr,
		Raw:      raw,
		Hours:    hours,
	}, nil
}

// fetchOnce performs one request and validates the response shape. A non-200
// status becomes an APIError; a 200 body missing the hourly section or with
// an empty time axis is equally permanent, just semantic instead of
// transport-level.
func (c *Client) fetchOnce(ctx context.Context, requestURL string) ([]byte, int, error) {
	type fetched struct {
		body  []byte
		hours int
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpCli.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		// Non-200 responses may not contain valid JSON; classify on the
		// status before touching the body.
		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(snippet),
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		forecast, err := weather.ParseForecast(body)
		if err != nil {
			return nil, &APIError{Message: err.Error()}
		}
		return fetched{body: body, hours: forecast.HourCount()}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	f := result.(fetched)
	return f.body, f.hours, nil
}
