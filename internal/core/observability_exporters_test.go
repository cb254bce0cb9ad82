package core

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"labstock/pkg/domain"
)

func TestExpvarRecorderAggregatesOperations(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("recorder has no export name")
	}
	svc := NewInMemoryService(WithMetrics(recorder))
	seedTree(t, svc)
	seedProduct(t, svc, "Oscilloscope", domain.ModePropertyManaged)
	if _, err := svc.GetProduct(context.Background(), "missing"); err == nil {
		t.Fatalf("expected lookup failure")
	}

	stats := recorder.Snapshot()
	if got := stats["create_product"]; got.SuccessTotal != 1 || got.ErrorTotal != 0 {
		t.Fatalf("create_product = %+v", got)
	}
	if got := stats["get_product"]; got.ErrorTotal != 1 {
		t.Fatalf("get_product = %+v", got)
	}
	if stats["replace_location_tree"].SuccessTotal != 1 {
		t.Fatalf("replace_location_tree = %+v", stats["replace_location_tree"])
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := NewInMemoryService(WithTracer(tracer))
	seedTree(t, svc)
	if _, err := svc.GetProduct(context.Background(), "missing"); err == nil {
		t.Fatalf("expected lookup failure")
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Operation != "replace_location_tree" || entries[0].Status != "success" {
		t.Fatalf("first span = %+v", entries[0])
	}
	if entries[1].Operation != "get_product" || entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("second span = %+v", entries[1])
	}
	if !strings.Contains(buf.String(), `"operation":"replace_location_tree"`) {
		t.Fatalf("writer output = %s", buf.String())
	}
}
