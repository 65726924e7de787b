// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/galaxy/console/core/authenticated"
)

/*
LoadConfig writes process-wide state (Signer, the endpoint manager and the
zerolog level) and the tests use t.Setenv, so nothing here runs in parallel.
*/

// loadWith loads a fresh config from the YAML document and environment given.
func loadWith(t *testing.T, document string, env map[string]string) (*ServerConfig, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

	t.Setenv("GALAXY_CONSOLE_CONFIGFILE", path)

	for k, v := range env {
		t.Setenv(k, v)
	}

	oldSigner := Signer

	t.Cleanup(func() { Signer = oldSigner })

	cfg := &ServerConfig{}

	return cfg, cfg.LoadConfig()
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadWith(t, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Basic.Host)
	assert.Equal(t, "8080", cfg.Basic.Port)
	assert.Equal(t, []string{"http://localhost:8101"}, cfg.Master.Endpoints)
	assert.Equal(t, RoundRobin, cfg.Master.LoadBalancing)
	assert.True(t, cfg.Security.CSRF)
	assert.NotEmpty(t, cfg.Instance.FileServerCacheID)

	token, err := Signer.Sign(time.Now(), "client")
	require.NoError(t, err, "an ephemeral key is generated")
	assert.NoError(t, Signer.Verify(token, "client"))
}

func TestLoadConfigKeepsDefaultsForEmptyDocuments(t *testing.T) {
	for name, document := range map[string]string{
		"comment only":  "# generated by genconfig\n\n",
		"explicit null": "~\n",
		"blank lines":   "\n\n   \n",
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := loadWith(t, document, nil)
			require.NoError(t, err)

			assert.Equal(t, []string{"http://localhost:8101"}, cfg.Master.Endpoints)
			assert.Positive(t, cfg.Master.MaxRetries)
		})
	}

	cfg, err := loadWith(t, "basic:\n  port: \"9000\"\n", nil)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Basic.Port)
	assert.Equal(t, []string{"http://localhost:8101"}, cfg.Master.Endpoints, "unset sections keep their defaults")
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	document := `
basic:
  host: 0.0.0.0
  port: "9000"
master:
  endpoints: ["http://master-a:8101", "http://master-b:8101"]
  loadBalancing: least-recently-used
  requestTimeout: 3s
store:
  path: /var/lib/console/console.db
`

	cfg, err := loadWith(t, document, map[string]string{
		"GALAXY_CONSOLE_PORT":          "9100",
		"GALAXY_CONSOLE_INSTANCE_NAME": "staging",
	})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Basic.Host)
	assert.Equal(t, "9100", cfg.Basic.Port, "environment wins over the file")
	assert.Equal(t, []string{"http://master-a:8101", "http://master-b:8101"}, cfg.Master.Endpoints)
	assert.Equal(t, LeastRecentlyUsed, cfg.Master.LoadBalancing)
	assert.Equal(t, 3*time.Second, cfg.Master.RequestTimeout)
	assert.Equal(t, "/var/lib/console/console.db", cfg.Store.Path)
	assert.Equal(t, "staging", cfg.Instance.Name)
}

func TestLoadConfigSecret(t *testing.T) {
	secret := authenticated.NewSecretKeyHex()

	cfg, err := loadWith(t, "", map[string]string{"GALAXY_CONSOLE_SECRET": secret})
	require.NoError(t, err)
	assert.Empty(t, cfg.Security.Secret, "the key is dropped once loaded")

	var reference authenticated.Signer
	require.NoError(t, reference.LoadSecretKeyFromHex(secret))

	token, err := Signer.Sign(time.Now(), "client")
	require.NoError(t, err)
	assert.NoError(t, reference.Verify(token, "client"), "tokens survive a restart with the same secret")
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name     string
		document string
		env      map[string]string
	}{
		{"unknown key", "basic:\n  hots: localhost\n", nil},
		{"load balancing", "", map[string]string{"GALAXY_CONSOLE_MASTER_LOAD_BALANCING": "sticky"}},
		{"master endpoint", "", map[string]string{"GALAXY_CONSOLE_MASTER_ENDPOINTS": "not a url"}},
		{"retries", "", map[string]string{"GALAXY_CONSOLE_MASTER_MAX_RETRIES": "0"}},
		{"secret", "", map[string]string{"GALAXY_CONSOLE_SECRET": "deadbeef"}},
		{"store path", "store:\n  path: \"\"\n", nil},
		{"socket with host", "", map[string]string{"GALAXY_CONSOLE_UNIXSOCKET": "/tmp/console.sock"}},
		{"limiter prefix", "", map[string]string{
			"GALAXY_CONSOLE_LIMITER":             "true",
			"GALAXY_CONSOLE_LIMITER_IPV4_PREFIX": "33",
		}},
		{"duration", "", map[string]string{"GALAXY_CONSOLE_MASTER_BASE_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadWith(t, tt.document, tt.env)
			assert.Error(t, err)
		})
	}
}

func TestShouldSkipServerLogging(t *testing.T) {
	t.Parallel()

	cfg := &ServerConfig{}

	assert.True(t, cfg.ShouldSkipServerLogging("/css/console.css"))
	assert.True(t, cfg.ShouldSkipServerLogging("/healthz"))
	assert.False(t, cfg.ShouldSkipServerLogging("/service/"))
}

func TestRedactedYAML(t *testing.T) {
	t.Parallel()

	cfg := &ServerConfig{}
	cfg.SetDefaults()
	cfg.Security.Secret = "very secret"

	out, err := cfg.RedactedYAML()
	require.NoError(t, err)

	assert.NotContains(t, string(out), "very secret")
	assert.Contains(t, string(out), redactedValue)
	assert.Contains(t, string(out), "10s")
	assert.Equal(t, "very secret", cfg.Security.Secret, "the config itself is untouched")
}
