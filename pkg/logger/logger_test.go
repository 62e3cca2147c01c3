package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithCartCode(context.Background(), "ab12cd34ef")
	ctx = logg.WithField(ctx, "attempt", 2)
	logg.Info(ctx, "cart mutated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if entry["cart_code"] != "ab12cd34ef" {
		t.Fatalf("expected cart_code field, got %v", entry["cart_code"])
	}
	if entry["service"] != "test" {
		t.Fatalf("expected service field, got %v", entry["service"])
	}
	if entry["message"] != "cart mutated" {
		t.Fatalf("unexpected message %v", entry["message"])
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if ParseLevel("nonsense") != zerolog.InfoLevel {
		t.Fatal("expected info fallback")
	}
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("expected debug")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("expected info for empty")
	}
}
