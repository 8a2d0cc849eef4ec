package sdk

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ClientConfig
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config with minimal fields",
			config:  ClientConfig{BaseURLs: []string{"http://localhost:8080"}},
			wantErr: false,
		},
		{
			name:    "valid config with multiple base URLs",
			config:  ClientConfig{BaseURLs: []string{"http://sim1:8080", "https://sim2.example.com"}},
			wantErr: false,
		},
		{
			name:    "missing base URLs",
			config:  ClientConfig{},
			wantErr: true,
			errMsg:  "at least one base URL is required",
		},
		{
			name:    "empty base URL",
			config:  ClientConfig{BaseURLs: []string{"  "}},
			wantErr: true,
			errMsg:  "base URL at index 0 is empty",
		},
		{
			name:    "invalid URL format",
			config:  ClientConfig{BaseURLs: []string{"localhost:8080"}},
			wantErr: true,
			errMsg:  "base URL must start with http:// or https://",
		},
		{
			name: "retry wait max below min",
			config: ClientConfig{
				BaseURLs:     []string{"http://localhost:8080"},
				RetryWaitMin: time.Second,
				RetryWaitMax: time.Millisecond,
			},
			wantErr: true,
			errMsg:  "retry_wait_max must not be below retry_wait_min",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error but got nil")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %v, want message containing %q", err, tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestClientConfig_Defaults(t *testing.T) {
	config := ClientConfig{BaseURLs: []string{" http://localhost:8080/ "}}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if config.BaseURLs[0] != "http://localhost:8080" {
		t.Errorf("BaseURLs[0] = %q, want trimmed URL", config.BaseURLs[0])
	}
	if config.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", config.RetryAttempts)
	}
	if config.RetryWaitMin != 200*time.Millisecond {
		t.Errorf("RetryWaitMin = %v, want 200ms", config.RetryWaitMin)
	}
	if config.RetryWaitMax != 5*time.Second {
		t.Errorf("RetryWaitMax = %v, want 5s", config.RetryWaitMax)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", config.Timeout)
	}
	if config.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", config.UserAgent, DefaultUserAgent)
	}
	if config.HTTPClient == nil || config.HTTPClient.Timeout != 30*time.Second {
		t.Errorf("HTTPClient not created with the configured timeout")
	}
}

func TestClientConfig_DisableRetries(t *testing.T) {
	config := ClientConfig{BaseURLs: []string{"http://localhost:8080"}, RetryAttempts: -1}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if config.RetryAttempts != 0 {
		t.Errorf("RetryAttempts = %d, want 0", config.RetryAttempts)
	}
}
