package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationFromEnv(t *testing.T) {
	t.Setenv("HLD_BASE_URL", "http://daemon:9000/api/v1")
	t.Setenv("HLD_USER_AGENT", "tests/1")
	t.Setenv("HLD_API_KEY", "key")
	t.Setenv("HLD_TOKEN", "tok")

	cfg := ConfigurationFromEnv("hld")
	assert.Equal(t, "http://daemon:9000/api/v1", cfg.BasePath)
	assert.Equal(t, "tests/1", cfg.UserAgent)

	require.NotNil(t, cfg.APIKey)
	key, err := cfg.APIKey("X-API-Key")
	require.NoError(t, err)
	assert.Equal(t, "key", key)

	require.NotNil(t, cfg.AccessToken)
	tok, err := cfg.AccessToken(context.Background(), "bearer", nil)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestConfigurationFromEnv_Defaults(t *testing.T) {
	t.Setenv("HLD_BASE_URL", "")
	t.Setenv("HLD_API_KEY", "")
	t.Setenv("HLD_TOKEN", "")

	cfg := ConfigurationFromEnv("HLD")
	assert.Equal(t, DefaultBasePath, cfg.BasePath)
	assert.Nil(t, cfg.APIKey)
	assert.Nil(t, cfg.AccessToken)
}

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		wantErr  bool
	}{
		{"default", DefaultBasePath, false},
		{"empty", "", true},
		{"relative", "/api/v1", true},
		{"bad escape", "http://h/%zz", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Configuration{BasePath: tt.basePath}
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigBuilder(t *testing.T) {
	cfg := NewConfigBuilder().
		BasePath("http://h").
		Headers(map[string]string{"X-A": "1"}).
		UserAgent("ua").
		Build()

	assert.Equal(t, "http://h", cfg.BasePath)
	assert.Equal(t, "1", cfg.Headers["X-A"])
	assert.Equal(t, "ua", cfg.UserAgent)
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "", envPrefix(""))
	assert.Equal(t, "HLD_", envPrefix("hld"))
	assert.Equal(t, "MY_APP_", envPrefix("my-app_"))
}
