package filer_sdk

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgefiler/filer_sdk_go/internal/httpx"
	"github.com/edgefiler/filer_sdk_go/pkg/taskmgr"
)

const sampleConfig = `
mode    = "HTTP"
api_url = "https://filer.example.com"
timeout = "45s"

headers = {
  "X-Filer-Tenant" = "acme"
}

retry {
  max_retries = 5
  base_delay  = "100ms"
  max_delay   = "3s"
}

tasks {
  poll_interval     = "250ms"
  max_poll_interval = "4s"
  timeout           = "20m"
}
`

func writeConfig(t *testing.T, name, body string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, name, []byte(body), 0o644))
	return fsys
}

func TestLoadConfig(t *testing.T) {
	fsys := writeConfig(t, "/etc/filer/filer.hcl", sampleConfig)

	cfg, err := LoadConfig(fsys, "/etc/filer/filer.hcl")
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Mode)
	assert.Equal(t, "https://filer.example.com", cfg.APIURL)
	assert.Equal(t, map[string]string{"X-Filer-Tenant": "acme"}, cfg.Headers)
	require.NotNil(t, cfg.Retry)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	require.NotNil(t, cfg.Tasks)

	policy, err := cfg.pollPolicy()
	require.NoError(t, err)
	assert.Equal(t, taskmgr.PollPolicy{Interval: 250 * time.Millisecond, MaxInterval: 4 * time.Second, Timeout: 20 * time.Minute}, policy)

	opts, err := cfg.httpOptions(hclog.NewNullLogger())
	require.NoError(t, err)
	// logger, timeout, headers, retry
	assert.Len(t, opts, 4)
}

func TestLoadConfigDefaults(t *testing.T) {
	fsys := writeConfig(t, "filer.hcl", `mock_seed = "seed.json"`)

	cfg, err := LoadConfig(fsys, "filer.hcl")
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.Mode)
	assert.Equal(t, "seed.json", cfg.MockSeed)
	assert.Nil(t, cfg.Retry)

	policy, err := cfg.pollPolicy()
	require.NoError(t, err)
	assert.Equal(t, taskmgr.DefaultPollPolicy, policy)

	opts, err := cfg.httpOptions(hclog.NewNullLogger())
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name, file, body string
	}{
		{name: "syntax", file: "a.hcl", body: `mode = `},
		{name: "unknown attribute", file: "a.hcl", body: `region = "eu"`},
		{name: "bad mode", file: "a.hcl", body: `mode = "grpc"`},
		{name: "http without url", file: "a.hcl", body: `mode = "http"`},
		{name: "bad url", file: "a.hcl", body: `api_url = "not a url"`},
		{name: "bad duration", file: "a.hcl", body: "tasks {\n  timeout = \"soon\"\n}"},
		{name: "zero task timeout", file: "a.hcl", body: "tasks {\n  timeout = \"0s\"\n}"},
		{name: "negative poll interval", file: "a.hcl", body: "tasks {\n  poll_interval = \"-1s\"\n}"},
		{name: "negative retries", file: "a.hcl", body: "retry {\n  max_retries = -1\n}"},
		{name: "unsupported extension", file: "a.yaml", body: `mode = "mock"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fsys := writeConfig(t, tc.file, tc.body)
			_, err := LoadConfig(fsys, tc.file)
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(afero.NewMemMapFs(), "missing.hcl")
	assert.Error(t, err)
	_, err = LoadConfig(afero.NewMemMapFs(), "")
	assert.Error(t, err)
}

func TestDurationsAggregatesErrors(t *testing.T) {
	_, err := durations(map[string]string{"a": "1x", "b": "2s", "c": "later"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")

	d, err := durations(map[string]string{"a": "", "b": "2s"})
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Duration{"b": 2 * time.Second}, d)
}

func TestRetryDisabled(t *testing.T) {
	cfg := Config{Retry: &RetryConfig{Disabled: true, MaxRetries: 4}}
	opts, err := cfg.httpOptions(hclog.NewNullLogger())
	require.NoError(t, err)

	client, err := httpx.NewClient("https://filer.example.com", opts...)
	require.NoError(t, err)
	assert.NotNil(t, client)
}
