package storage

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func testKeys() Keys {
	return Keys{
		RawFolder:       "raw",
		ProcessedFolder: "processed",
		PartitionFormat: "year={year}/month={month}/day={day}",
	}
}

// TestKeyLayout pins the partition layout bit-exactly; downstream readers
// expect Hive-style year=/month=/day= partitions.
func TestKeyLayout(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	keys := testKeys()

	if got, want := keys.Raw("london", date), "raw/year=2024/month=01/day=15/london.json"; got != want {
		t.Fatalf("raw key = %q, want %q", got, want)
	}
	if got, want := keys.Processed("london", date), "processed/year=2024/month=01/day=15/london.csv"; got != want {
		t.Fatalf("processed key = %q, want %q", got, want)
	}
}

// TestKeyDeterminism verifies the raw-write and raw-read paths derive the
// identical key string for the same (city, date).
func TestKeyDeterminism(t *testing.T) {
	date := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)
	keys := testKeys()

	first := keys.Raw("accra", date)
	second := keys.Raw("accra", date)
	if first != second {
		t.Fatalf("key derivation is not deterministic: %q vs %q", first, second)
	}
	if first != "raw/year=2023/month=12/day=31/accra.json" {
		t.Fatalf("unexpected key: %q", first)
	}
}

func TestKeySingleDigitPadding(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	got := testKeys().Processed("berlin", date)
	want := "processed/year=2024/month=03/day=05/berlin.csv"
	if got != want {
		t.Fatalf("expected zero-padded partitions: got %q, want %q", got, want)
	}
}

// TestPrettyJSONPreservesContent verifies the archived artifact is
// structurally identical to the upstream payload, with key order intact.
func TestPrettyJSONPreservesContent(t *testing.T) {
	raw := []byte(`{"hourly":{"time":["2024-01-15T00:00"],"temperature_2m":[26.4]},"hourly_units":{"time":"iso8601"}}`)

	pretty, err := PrettyJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var compact bytes.Buffer
	// Re-compact the indented output; it must equal the original bytes.
	if err := compactJSON(&compact, pretty); err != nil {
		t.Fatalf("re-compact: %v", err)
	}
	if !bytes.Equal(compact.Bytes(), raw) {
		t.Fatalf("round trip changed payload:\n%s\nvs\n%s", compact.Bytes(), raw)
	}
}

func TestPrettyJSONRejectsInvalid(t *testing.T) {
	if _, err := PrettyJSON([]byte(`{`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func compactJSON(dst *bytes.Buffer, src []byte) error {
	return json.Compact(dst, src)
}
