package filer_sdk_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgefiler/filer_sdk_go/pkg/backup"
	"github.com/edgefiler/filer_sdk_go/pkg/filer_sdk"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
	"github.com/edgefiler/filer_sdk_go/pkg/gateway/mock"
)

var fastTasks = &filer_sdk.TaskConfig{PollInterval: "1ms", MaxPollInterval: "2ms", Timeout: "2s"}

func TestNewMockRuntimeWithSeed(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/seed.json", []byte(`{
		"/config/backup": {"_classname": "BackupSettings", "bandwidthLimit": 1024}
	}`), 0o644))

	rt, err := filer_sdk.New(&filer_sdk.Config{MockSeed: "/seed.json", Tasks: fastTasks}, hclog.NewNullLogger(),
		filer_sdk.WithFs(fsys), filer_sdk.WithMockOptions(mock.WithTaskPolls(2)))
	require.NoError(t, err)
	assert.Equal(t, gateway.ModeMock, rt.Mode)
	require.NotNil(t, rt.Mock)

	rt.Mock.SimulateBackupFolder(mock.FolderMissing, "")
	require.NoError(t, rt.Backup.Configure(context.Background(), "p@ss"))

	stored, err := rt.Gateway.Get(context.Background(), backup.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, string(backup.Secret), stored["encryptionMode"])
	assert.Equal(t, "p@ss", stored["sharedSecret"])
	assert.Equal(t, float64(1024), stored["bandwidthLimit"])
}

func TestNewHTTPRuntimeAgainstMockServer(t *testing.T) {
	appliance := mock.New(mock.WithTaskPolls(1))
	folder := appliance.SimulateBackupFolder(mock.FolderEncrypted, "s3cret")
	srv := httptest.NewServer(appliance.Handler())
	defer srv.Close()

	rt, err := filer_sdk.New(&filer_sdk.Config{
		APIURL: srv.URL,
		Retry:  &filer_sdk.RetryConfig{MaxRetries: 1, BaseDelay: "1ms"},
		Tasks:  fastTasks,
	}, hclog.NewNullLogger())
	require.NoError(t, err)
	assert.Equal(t, gateway.ModeHTTP, rt.Mode)
	assert.Nil(t, rt.Mock)

	ctx := context.Background()
	assert.ErrorIs(t, rt.Backup.Configure(ctx, "guess"), backup.ErrIncorrectPassphrase)
	require.NoError(t, rt.Backup.Configure(ctx, "s3cret"))

	stored, err := appliance.Config(backup.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, string(backup.Secret), stored["encryptionMode"])
	assert.Equal(t, folder.Salt(), stored["passPhraseSalt"])
	assert.Equal(t, float64(30), stored["retentionDays"])
}

func TestNewFromEnv(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/filer.hcl", []byte("mode = \"mock\"\n\ntasks {\n  timeout = \"1m\"\n}\n"), 0o644))

	t.Setenv(filer_sdk.EnvConfig, "/etc/filer.hcl")
	t.Setenv(gateway.EnvMode, "")
	t.Setenv(gateway.EnvAPIURL, "")
	t.Setenv(gateway.EnvMockSeed, "")

	rt, err := filer_sdk.NewFromEnv(nil, filer_sdk.WithFs(fsys))
	require.NoError(t, err)
	assert.Equal(t, gateway.ModeMock, rt.Mode)

	srv := httptest.NewServer(mock.New().Handler())
	defer srv.Close()
	t.Setenv(gateway.EnvMode, "auto")
	t.Setenv(gateway.EnvAPIURL, srv.URL)

	rt, err = filer_sdk.NewFromEnv(nil, filer_sdk.WithFs(fsys))
	require.NoError(t, err)
	assert.Equal(t, gateway.ModeHTTP, rt.Mode)

	defaults, err := rt.Gateway.Get(context.Background(), mock.DefaultsPath)
	require.NoError(t, err)
	assert.Equal(t, "BackupSettings", defaults["_classname"])
}

func TestNewFromEnvErrors(t *testing.T) {
	t.Setenv(filer_sdk.EnvConfig, "")
	t.Setenv(gateway.EnvMode, "http")
	t.Setenv(gateway.EnvAPIURL, "")
	t.Setenv(gateway.EnvMockSeed, "")
	_, err := filer_sdk.NewFromEnv(nil)
	assert.Error(t, err)

	t.Setenv(gateway.EnvMode, "mock")
	t.Setenv(gateway.EnvMockSeed, "/does/not/exist.json")
	_, err = filer_sdk.NewFromEnv(nil, filer_sdk.WithFs(afero.NewMemMapFs()))
	assert.Error(t, err)

	t.Setenv(gateway.EnvMockSeed, "")
	t.Setenv(filer_sdk.EnvConfig, "/missing.hcl")
	_, err = filer_sdk.NewFromEnv(nil, filer_sdk.WithFs(afero.NewMemMapFs()))
	assert.Error(t, err)
}

func TestNewDefaultsToMock(t *testing.T) {
	rt, err := filer_sdk.New(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, gateway.ModeMock, rt.Mode)
	require.NotNil(t, rt.Backup)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rt.Backup.Start(ctx))
	assert.Len(t, rt.Mock.CallsTo(backup.ActionStart), 1)
	assert.Equal(t, mock.SyncRunning, rt.Mock.Sync().State())

	require.NoError(t, rt.Backup.Suspend(ctx))
	assert.Equal(t, mock.SyncSuspended, rt.Mock.Sync().State())
	require.NoError(t, rt.Backup.Unsuspend(ctx))
	assert.Equal(t, mock.SyncRunning, rt.Mock.Sync().State())
}
