package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "no auth",
			config:  DefaultConfig(),
			wantErr: "no authentication method",
		},
		{
			name: "oauth only",
			config: func() Config {
				c := DefaultConfig()
				c.ClientID = "id"
				c.ClientSecret = "secret"
				c.RefreshToken = "token"
				return c
			}(),
		},
		{
			name: "service account only",
			config: func() Config {
				c := DefaultConfig()
				c.ServiceAccountPath = "/tmp/sa.json"
				return c
			}(),
		},
		{
			name: "both auth methods",
			config: func() Config {
				c := DefaultConfig()
				c.ClientID = "id"
				c.ClientSecret = "secret"
				c.RefreshToken = "token"
				c.ServiceAccountPath = "/tmp/sa.json"
				return c
			}(),
			wantErr: "multiple authentication methods",
		},
		{
			name: "negative retries",
			config: func() Config {
				c := DefaultConfig()
				c.ServiceAccountPath = "/tmp/sa.json"
				c.RetryAttempts = -1
				return c
			}(),
			wantErr: "retry attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PESA_SHEETS_CLIENT_ID", "id")
	t.Setenv("PESA_SHEETS_CLIENT_SECRET", "secret")
	t.Setenv("PESA_SHEETS_REFRESH_TOKEN", "token")
	t.Setenv("PESA_SHEETS_SPREADSHEET_NAME", "")

	var c Config
	err := c.LoadFromEnv()
	assert.NoError(t, err)
	assert.Equal(t, "PesaWallet Report", c.SpreadsheetName)
	assert.Equal(t, "id", c.ClientID)
}

func TestLoadFromEnvMissingAuth(t *testing.T) {
	t.Setenv("PESA_SHEETS_CLIENT_ID", "")
	t.Setenv("PESA_SHEETS_CLIENT_SECRET", "")
	t.Setenv("PESA_SHEETS_REFRESH_TOKEN", "")
	t.Setenv("PESA_SHEETS_SERVICE_ACCOUNT_PATH", "")

	var c Config
	assert.Error(t, c.LoadFromEnv())
}
