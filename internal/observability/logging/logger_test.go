package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestLoggerAddsRequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, "legal-rag-api", "info")

	ctx := WithRequestID(context.Background(), "req-42")
	logger.InfoContext(ctx, "query_answered", "system", "multi-agent")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["request_id"] != "req-42" {
		t.Fatalf("expected request_id, got %v", record["request_id"])
	}
	if record["service"] != "legal-rag-api" {
		t.Fatalf("expected service attr, got %v", record["service"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, "svc", "warn")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info record should be filtered at warn level: %s", buf.String())
	}
}
