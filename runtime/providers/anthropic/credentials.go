package anthropic

import (
	"net/http"
	"os"
	"strings"

	"github.com/agentrtkit/codexrt/runtime/codexerr"
)

// ProviderAuthConfig describes how a configured model provider resolves
// credentials, mirroring the shape spec §4.1 calls the provider's env_key
// configuration.
type ProviderAuthConfig struct {
	// EnvKey names the environment variable holding the provider's API
	// key, or, if BearerTokenEnvKey matches it, the bearer token itself.
	EnvKey string
	// BearerTokenEnvKey is the environment variable the caller considers
	// "the" bearer-token variable for this provider. When EnvKey equals
	// it, the resolved value is used as a bearer token rather than an API
	// key.
	BearerTokenEnvKey string
	// ExperimentalBearerToken is an explicit override, checked before the
	// environment's bearer-token variable.
	ExperimentalBearerToken string

	// StaticHeaders are inserted verbatim; invalid HTTP header
	// names/values are silently dropped rather than failing resolution.
	StaticHeaders map[string]string
	// EnvHeaders maps a header name to an environment variable read at
	// resolve time; empty or whitespace-only values are omitted.
	EnvHeaders map[string]string
}

// Credentials is the resolved, mutually-exclusive auth material for a
// request: exactly one of APIKey/AuthToken is non-empty, or both are
// empty if no credential material could be resolved.
type Credentials struct {
	APIKey    string
	AuthToken string
}

// ResolveAnthropicCredentials implements C9: it selects between API-key
// and bearer-token auth per spec §4.1, never returning both populated.
func ResolveAnthropicCredentials(cfg ProviderAuthConfig) (Credentials, error) {
	if cfg.EnvKey != "" && cfg.BearerTokenEnvKey != "" && cfg.EnvKey == cfg.BearerTokenEnvKey {
		if cfg.ExperimentalBearerToken != "" {
			return Credentials{AuthToken: cfg.ExperimentalBearerToken}, nil
		}
		if v := strings.TrimSpace(os.Getenv(cfg.BearerTokenEnvKey)); v != "" {
			return Credentials{AuthToken: v}, nil
		}
		return Credentials{}, codexerr.EnvVar(cfg.BearerTokenEnvKey, "set "+cfg.BearerTokenEnvKey+" to a valid bearer token")
	}

	if cfg.EnvKey != "" {
		if v := strings.TrimSpace(os.Getenv(cfg.EnvKey)); v != "" {
			return Credentials{APIKey: v}, nil
		}
	}

	if cfg.ExperimentalBearerToken != "" {
		return Credentials{AuthToken: cfg.ExperimentalBearerToken}, nil
	}
	if cfg.BearerTokenEnvKey != "" {
		if v := strings.TrimSpace(os.Getenv(cfg.BearerTokenEnvKey)); v != "" {
			return Credentials{AuthToken: v}, nil
		}
	}

	if cfg.EnvKey != "" {
		return Credentials{}, codexerr.EnvVar(cfg.EnvKey, "set "+cfg.EnvKey+" to a valid API key")
	}
	return Credentials{}, nil
}

// BuildHeaders resolves cfg's static and env-derived headers into an
// http.Header, dropping any entry whose name is not a valid HTTP header
// token. A static value is dropped when empty or when it contains CR, LF
// or NUL; an env-derived value is dropped when empty after trimming.
func BuildHeaders(cfg ProviderAuthConfig) http.Header {
	h := make(http.Header)
	for name, value := range cfg.StaticHeaders {
		if !validHeaderName(name) || value == "" || strings.ContainsAny(value, "\r\n\x00") {
			continue
		}
		h.Set(name, value)
	}
	for name, envVar := range cfg.EnvHeaders {
		if !validHeaderName(name) {
			continue
		}
		v := strings.TrimSpace(os.Getenv(envVar))
		if v == "" {
			continue
		}
		h.Set(name, v)
	}
	return h
}

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r == ':' || r > '~' {
			return false
		}
	}
	return true
}
