// Package rlmprovider validates the proxy endpoint configuration,
// queries its model catalog, and resolves the concrete runtime model
// ids for the primary and sub agent roles.
//
// Reading actual OS environment variables is the CLI's job; every
// function here takes an already-collected map instead of calling
// os.Getenv, so the resolution logic stays a pure, testable core
// function.
package rlmprovider

import (
	"strings"

	"rlmdriver/internal/rlmerr"
)

const (
	envBaseURL = "RLM_MODEL_BASE_URL"
	envAPIKey  = "RLM_MODEL_API_KEY"

	envPrimaryAgent  = "RLM_PRIMARY_AGENT"
	envSubAgent      = "RLM_SUB_AGENT"
	envFallbackPrime = "RLM_FALLBACK_PRIMARY"
	envFallbackSub   = "RLM_FALLBACK_SUB"

	defaultPrimaryAgent = "gpt-5"
	defaultSubAgent     = "gpt-5-codex-mini"
)

// ProxyClientConfig is the validated endpoint configuration.
type ProxyClientConfig struct {
	BaseURL string
	APIKey  string
}

// ResolveProxyClientConfig reads RLM_MODEL_BASE_URL and
// RLM_MODEL_API_KEY out of env, trims a trailing slash from the base
// URL, and requires it end in "/v1".
func ResolveProxyClientConfig(env map[string]string) (ProxyClientConfig, error) {
	baseURL := strings.TrimSpace(env[envBaseURL])
	apiKey := strings.TrimSpace(env[envAPIKey])
	if baseURL == "" {
		return ProxyClientConfig{}, rlmerr.ConfigError{Reason: envBaseURL + " is required"}
	}
	if apiKey == "" {
		return ProxyClientConfig{}, rlmerr.ConfigError{Reason: envAPIKey + " is required"}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		return ProxyClientConfig{}, rlmerr.ConfigError{Reason: envBaseURL + " must end in /v1, got " + baseURL}
	}
	return ProxyClientConfig{BaseURL: baseURL, APIKey: apiKey}, nil
}

// RequestedModels is what the caller asked for before any fallback is
// applied.
type RequestedModels struct {
	Primary string
	Sub     string
}

// ConfigModels mirrors the subset of rlmconfig.Config this package
// needs, avoiding an import cycle with the config package.
type ConfigModels struct {
	PrimaryAgent string
	SubAgent     string
}

// ResolveModelNames picks the requested primary/sub model ids from, in
// order: env vars, config keys, built-in defaults.
func ResolveModelNames(cfg ConfigModels, env map[string]string) RequestedModels {
	return RequestedModels{
		Primary: firstNonEmpty(env[envPrimaryAgent], cfg.PrimaryAgent, defaultPrimaryAgent),
		Sub:     firstNonEmpty(env[envSubAgent], cfg.SubAgent, defaultSubAgent),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
