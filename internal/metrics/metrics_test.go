package metrics

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestRecorder_FlushOutput(t *testing.T) {
	var buf bytes.Buffer

	New("RetroSnap").
		WithLogger(zerolog.New(&buf)).
		Dimension("Filter", "Fuji").
		Metric("CaptionMs", 1234.5, UnitMilliseconds).
		Count("Captures").
		Property("captureId", "abc-123").
		Flush()

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if doc["namespace"] != "RetroSnap" {
		t.Errorf("expected namespace RetroSnap, got %v", doc["namespace"])
	}
	if doc["message"] != "metrics" {
		t.Errorf("expected message metrics, got %v", doc["message"])
	}

	dims, ok := doc["dimensions"].(map[string]interface{})
	if !ok || dims["Filter"] != "Fuji" {
		t.Errorf("expected Filter=Fuji dimension, got %v", doc["dimensions"])
	}

	values, ok := doc["metrics"].(map[string]interface{})
	if !ok {
		t.Fatalf("metrics is not a map: %v", doc["metrics"])
	}
	if values["CaptionMs"] != 1234.5 {
		t.Errorf("expected CaptionMs=1234.5, got %v", values["CaptionMs"])
	}
	if values["Captures"] != float64(1) {
		t.Errorf("expected Captures=1, got %v", values["Captures"])
	}

	units, _ := doc["units"].(map[string]interface{})
	if units["CaptionMs"] != UnitMilliseconds || units["Captures"] != UnitCount {
		t.Errorf("unexpected units: %v", units)
	}

	if doc["captureId"] != "abc-123" {
		t.Errorf("expected captureId=abc-123, got %v", doc["captureId"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	var buf bytes.Buffer
	New("Test").WithLogger(zerolog.New(&buf)).Dimension("Op", "x").Flush()

	if buf.Len() != 0 {
		t.Errorf("expected no output for empty recorder, got: %s", buf.String())
	}
}

func TestRecorder_Count(t *testing.T) {
	rec := New("Test")
	rec.Count("Errors")

	if m, ok := rec.metrics["Errors"]; !ok || m.Value != 1 || m.Unit != UnitCount {
		t.Errorf("expected Errors=1 Count, got %+v", m)
	}
}

func TestRecorder_Chaining(t *testing.T) {
	rec := New("Test").
		Dimension("Op", "test").
		Metric("Duration", 100, UnitMilliseconds).
		Count("Calls").
		Property("id", "xyz")

	if rec.dimensions["Op"] != "test" {
		t.Error("chaining Dimension failed")
	}
	if rec.metrics["Duration"].Value != 100 {
		t.Error("chaining Metric failed")
	}
	if rec.metrics["Calls"].Value != 1 {
		t.Error("chaining Count failed")
	}
	if rec.properties["id"] != "xyz" {
		t.Error("chaining Property failed")
	}
}
