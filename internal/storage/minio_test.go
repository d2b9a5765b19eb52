package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/dispofix/internal/config"
)

func testStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		Endpoint:  "s3.example.com",
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "eu-west-1",
		Bucket:    "uploads",
		UseSSL:    true,
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	client, err := NewClient(testStorageConfig())
	require.NoError(t, err)
	assert.Equal(t, "uploads", client.Bucket())
}

func TestNewClientStripsEndpointScheme(t *testing.T) {
	t.Parallel()

	cfg := testStorageConfig()
	cfg.Endpoint = "https://s3.example.com"

	_, err := NewClient(cfg)
	assert.NoError(t, err, "scheme-qualified endpoints are accepted")
}
