package weather

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// TimeVariable is the name of the hourly time axis in the upstream response.
const TimeVariable = "time"

var (
	// ErrMissingHourly is returned when the response has no hourly section.
	ErrMissingHourly = errors.New("response missing 'hourly' key")
	// ErrEmptyTimeSeries is returned when the hourly time axis is empty.
	ErrEmptyTimeSeries = errors.New("hourly time array is empty")
)

// Forecast is a parsed upstream response: the hourly parallel arrays, the
// unit declared for each variable, and the variables in the order the API
// declared them. Values are kept as json.Number (or string/nil) so numeric
// literals survive verbatim into downstream artifacts.
type Forecast struct {
	Units  map[string]string
	Series map[string][]any
	Order  []string
}

// HourCount returns the length of the hourly time axis.
func (f *Forecast) HourCount() int {
	return len(f.Series[TimeVariable])
}

// ParseForecast decodes an upstream response body and validates its shape.
// A map decode would lose the API's variable order, so the hourly object is
// walked token by token instead.
func ParseForecast(raw []byte) (*Forecast, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	hourly, ok := envelope["hourly"]
	if !ok {
		return nil, ErrMissingHourly
	}

	series, order, err := decodeHourly(hourly)
	if err != nil {
		return nil, err
	}

	units := map[string]string{}
	if rawUnits, ok := envelope["hourly_units"]; ok {
		if err := json.Unmarshal(rawUnits, &units); err != nil {
			return nil, fmt.Errorf("decode hourly_units: %w", err)
		}
	}

	f := &Forecast{Units: units, Series: series, Order: order}
	if f.HourCount() == 0 {
		return nil, ErrEmptyTimeSeries
	}
	return f, nil
}

func decodeHourly(raw json.RawMessage) (map[string][]any, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode hourly: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("hourly is not an object")
	}

	series := make(map[string][]any)
	var order []string

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode hourly: %w", err)
		}
		key := keyTok.(string)

		var values []any
		if err := dec.Decode(&values); err != nil {
			return nil, nil, fmt.Errorf("decode hourly %q: %w", key, err)
		}

		series[key] = values
		order = append(order, key)
	}

	return series, order, nil
}
