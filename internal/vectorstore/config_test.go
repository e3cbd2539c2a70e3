// internal/vectorstore/config_test.go
package vectorstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid", config: Config{URL: "http://localhost:6333", Timeout: time.Second}},
		{name: "valid https", config: Config{URL: "https://qdrant.example.com", Timeout: time.Second}},
		{name: "empty URL", config: Config{Timeout: time.Second}, wantErr: true},
		{name: "bad scheme", config: Config{URL: "ftp://localhost:6333", Timeout: time.Second}, wantErr: true},
		{name: "no host", config: Config{URL: "http://", Timeout: time.Second}, wantErr: true},
		{name: "zero timeout", config: Config{URL: "http://localhost:6333"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestBaseURLTrimsTrailingSlash(t *testing.T) {
	cfg := Config{URL: "http://localhost:6333/"}
	assert.Equal(t, "http://localhost:6333", cfg.BaseURL())

	cfg = Config{URL: "http://localhost:6333"}
	assert.Equal(t, "http://localhost:6333", cfg.BaseURL())
}
