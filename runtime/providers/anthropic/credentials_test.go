package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCredentialsNeverReturnsBothApiKeyAndAuthToken(t *testing.T) {
	cases := []ProviderAuthConfig{
		{EnvKey: "ANTHROPIC_API_KEY"},
		{EnvKey: "ANTHROPIC_AUTH_TOKEN", BearerTokenEnvKey: "ANTHROPIC_AUTH_TOKEN"},
		{EnvKey: "ANTHROPIC_API_KEY", BearerTokenEnvKey: "ANTHROPIC_AUTH_TOKEN", ExperimentalBearerToken: "tok"},
	}
	for _, cfg := range cases {
		t.Setenv("ANTHROPIC_API_KEY", "sk-test")
		t.Setenv("ANTHROPIC_AUTH_TOKEN", "bearer-test")
		creds, err := ResolveAnthropicCredentials(cfg)
		require.NoError(t, err)
		assert.False(t, creds.APIKey != "" && creds.AuthToken != "", "credential purity violated: %+v", creds)
	}
}

func TestResolveCredentialsUsesProviderKeyAsBearerWhenEnvKeyMatchesBearerVar(t *testing.T) {
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "bearer-value")
	cfg := ProviderAuthConfig{EnvKey: "ANTHROPIC_AUTH_TOKEN", BearerTokenEnvKey: "ANTHROPIC_AUTH_TOKEN"}

	creds, err := ResolveAnthropicCredentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, "bearer-value", creds.AuthToken)
	assert.Empty(t, creds.APIKey)
}

func TestResolveCredentialsPrefersAPIKeyOverBearer(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "bearer-test")
	cfg := ProviderAuthConfig{EnvKey: "ANTHROPIC_API_KEY", BearerTokenEnvKey: "ANTHROPIC_AUTH_TOKEN"}

	creds, err := ResolveAnthropicCredentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", creds.APIKey)
}

func TestBuildHeadersDropsInvalidNamesAndEmptyValues(t *testing.T) {
	t.Setenv("CUSTOM_HEADER_VALUE", "  ")
	cfg := ProviderAuthConfig{
		StaticHeaders: map[string]string{"X-Good": "v", "Bad Name": "v"},
		EnvHeaders:    map[string]string{"X-From-Env": "CUSTOM_HEADER_VALUE"},
	}
	h := BuildHeaders(cfg)
	assert.Equal(t, "v", h.Get("X-Good"))
	assert.Empty(t, h.Get("Bad Name"))
	assert.Empty(t, h.Get("X-From-Env"))
}
