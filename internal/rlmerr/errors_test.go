package rlmerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ExitCode
	}{
		{"nil", nil, ExitOK},
		{"usage", UsageError{Reason: "bad args"}, ExitUsage},
		{"config", ConfigError{Reason: "missing env"}, ExitConfig},
		{"proxy", ProxyError{Reason: "connection refused"}, ExitProxy},
		{"model", ModelError{Reason: "no models"}, ExitModel},
		{"runtime", RuntimeError{Reason: "budget exceeded"}, ExitRuntime},
		{"output", OutputError{Reason: "disk full"}, ExitOutputWrite},
		{"interrupted", InterruptedError{Reason: "sigint"}, ExitInterrupted},
		{"unknown", fmt.Errorf("plain error"), ExitGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Code(tc.err); got != tc.want {
				t.Fatalf("Code(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestCode_WrappedErrorStillClassifies(t *testing.T) {
	wrapped := fmt.Errorf("preflight failed: %w", ConfigError{Reason: "bad base url"})
	if got := Code(wrapped); got != ExitConfig {
		t.Fatalf("Code(wrapped) = %d, want %d", got, ExitConfig)
	}
}

func TestErrorIsMatchesSameType(t *testing.T) {
	var err error = ProxyError{Reason: "timeout"}
	if !errors.Is(err, ProxyError{}) {
		t.Fatal("expected ProxyError to match ProxyError{} via errors.Is")
	}
	if errors.Is(err, ConfigError{}) {
		t.Fatal("expected ProxyError not to match ConfigError{}")
	}
}

func TestRedact(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bearer token",
			input: "request failed: Bearer sk-abcdef1234567890 rejected",
			want:  "request failed: Bearer [REDACTED] rejected",
		},
		{
			name:  "sk- key with no bearer prefix",
			input: `error talking to proxy: key sk-live-abcdefgh1234 invalid`,
			want:  `error talking to proxy: key sk-[REDACTED] invalid`,
		},
		{
			name:  "api_key assignment",
			input: `config: api_key="abcdefgh12345678"`,
			want:  `config: api_key="[REDACTED]"`,
		},
		{
			name:  "no secret present",
			input: "plain error with no credentials",
			want:  "plain error with no credentials",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Redact(tc.input); got != tc.want {
				t.Fatalf("Redact(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
