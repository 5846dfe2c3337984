package utils

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeQuestion(t *testing.T) {
	a := NormalizeQuestion("  \"What is a  Goroutine?\"\n")
	b := NormalizeQuestion("what is a goroutine?")
	if a != b {
		t.Fatalf("expected equal normalization, got %q and %q", a, b)
	}
	if NormalizeQuestion("What is a channel?") == b {
		t.Fatalf("expected different questions to differ")
	}
}

func TestCleanGeneratedText(t *testing.T) {
	cases := map[string]string{
		"  \"Explain defer.\"  ": "Explain defer.",
		"'Quoted'":               "Quoted",
		"Plain text\n":           "Plain text",
		"\"":                     "\"",
		"\"mismatched'":          "\"mismatched'",
	}
	for input, want := range cases {
		if got := CleanGeneratedText(input); got != want {
			t.Fatalf("CleanGeneratedText(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTruncateForLog(t *testing.T) {
	if got := TruncateForLog("  short  ", 10); got != "short" {
		t.Fatalf("expected trimmed string, got %q", got)
	}
	if got := TruncateForLog("héllo world", 5); got != "héllo..." {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
	if got := TruncateForLog("anything", 0); got != "" {
		t.Fatalf("expected empty string for zero limit, got %q", got)
	}
}

func TestJSONHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	payload := map[string]string{"hello": "world"}

	JSON(rec, http.StatusCreated, payload)

	if rec.Code != http.StatusCreated {
		t.Fatalf("JSON: expected status %d, got %d", http.StatusCreated, rec.Code)
	}
	if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("JSON: expected content-type application/json, got %s", contentType)
	}

	var got map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("JSON decode failed: %v", err)
	}
	if got["hello"] != "world" {
		t.Fatalf("JSON body mismatch: %+v", got)
	}
}

func TestNDJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	items := []map[string]int{{"n": 1}, {"n": 2}}

	if err := NDJSON(rec, http.StatusOK, items); err != nil {
		t.Fatalf("NDJSON returned error: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("unexpected content type %s", ct)
	}

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	lines := 0
	for scanner.Scan() {
		var item map[string]int
		if err := json.Unmarshal(scanner.Bytes(), &item); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 lines, got %d", lines)
	}
}

func TestGetLogger(t *testing.T) {
	Logger = nil
	if GetLogger() == nil {
		t.Fatal("expected logger to be initialized lazily")
	}
}
