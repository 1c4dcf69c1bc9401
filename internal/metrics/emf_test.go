package metrics

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestForOperation_Dimensions(t *testing.T) {
	functionName = "" // test isolation
	r := ForOperation("brollGeneration")
	if r.namespace != Namespace {
		t.Errorf("expected namespace %s, got %s", Namespace, r.namespace)
	}
	if r.dimensions["Operation"] != "brollGeneration" {
		t.Errorf("expected Operation dimension brollGeneration, got %s", r.dimensions["Operation"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	functionName = "" // test isolation

	rec := ForOperation("qcLoop")
	rec.Metric("Attempts", 2, UnitCount)
	rec.Metric("QcScore", 82, UnitNone)
	rec.CostUSD("ResearchCostUSD", 0.0421)
	rec.Property("projectId", "abc-123")
	rec.Flush()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if _, ok := doc["_aws"]; !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if doc["Operation"] != "qcLoop" {
		t.Errorf("expected Operation qcLoop, got %v", doc["Operation"])
	}
	if doc["Attempts"] != float64(2) {
		t.Errorf("expected Attempts 2, got %v", doc["Attempts"])
	}
	if doc["projectId"] != "abc-123" {
		t.Errorf("expected projectId property, got %v", doc["projectId"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	rec := New(Namespace)
	rec.Property("onlyAProperty", true)
	rec.Flush() // no metrics registered, nothing should be written

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	if buf.Len() != 0 {
		t.Errorf("expected no output for metric-less recorder, got %q", buf.String())
	}
}
