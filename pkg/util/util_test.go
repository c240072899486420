package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"saraban/pkg/circuitbreaker"
)

func TestJWTRoundTrip(t *testing.T) {
	in := Claims{UserID: 42, Username: "somchai", Fullname: "Somchai J.", Role: "admin"}
	token, err := GenerateJWT(in, "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	out, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if out != in {
		t.Fatalf("claims = %+v, want %+v", out, in)
	}
}

func TestJWTRejectsWrongSecretAndExpired(t *testing.T) {
	token, _ := GenerateJWT(Claims{UserID: 1}, "secret", time.Hour)
	if _, err := ParseJWT(token, "other"); err == nil {
		t.Error("wrong secret should fail")
	}

	past, err := generateWithExpiry(Claims{UserID: 1}, "secret", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT(past, "secret"); err == nil {
		t.Error("expired token should fail")
	}

	if _, err := ParseJWT("not-a-token", "secret"); err == nil {
		t.Error("garbage should fail")
	}
}

func TestExtractToken(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"Bearer abc":      "abc",
		"bearer abc":      "abc",
		"Basic abc":       "",
		"Bearer":          "",
		"Bearer a b":      "",
		"  Bearer   xyz ": "xyz",
	}
	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := ExtractToken(r); got != want {
			t.Errorf("ExtractToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword("hunter2", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("hunter3", hash) {
		t.Error("wrong password accepted")
	}
}

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error = &json.SyntaxError{}
	tests := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"json", fmt.Errorf("decode: %w", syntaxErr), false, "json_decode_error"},
		{"server error", &HTTPStatusError{StatusCode: 502}, true, "webhook_server_error"},
		{"throttled", &HTTPStatusError{StatusCode: 429}, true, "webhook_throttled"},
		{"rejected", &HTTPStatusError{StatusCode: 400}, false, "webhook_rejected"},
		{"breaker", circuitbreaker.ErrCircuitBreakerOpen, true, "circuit_open"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}
	for _, tt := range tests {
		retryable, kind := IsRetryableError(tt.err)
		if retryable != tt.retryable || kind != tt.kind {
			t.Errorf("%s: got (%v, %q), want (%v, %q)", tt.name, retryable, kind, tt.retryable, tt.kind)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	if ShouldRetry(1, 3, false) {
		t.Error("non-retryable errors never retry")
	}
	if !ShouldRetry(3, 3, true) {
		t.Error("attempt equal to the limit still retries")
	}
	if ShouldRetry(4, 3, true) {
		t.Error("attempt above the limit stops")
	}
}
