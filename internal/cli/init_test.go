package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/ddmatrix/internal/config"
	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func setInitEnv(t *testing.T, api, app, ssid, password string) {
	t.Helper()
	t.Setenv(EnvAPIKey, api)
	t.Setenv(EnvAppKey, app)
	t.Setenv(EnvSSID, ssid)
	t.Setenv(EnvWiFiPassword, password)
}

func TestInit_NonInteractive_Success(t *testing.T) {
	dir := t.TempDir()
	setInitEnv(t, "api-1234", "app-5678", "office", "hunter2")

	var buf bytes.Buffer
	require.NoError(t, Init(&buf, InitOptions{Dir: dir, NonInteractive: true}))

	// The starter metrics file must pass the dashboard's own loader.
	metrics, err := config.LoadMetrics(filepath.Join(dir, config.DefaultMetricsFile))
	require.NoError(t, err)
	assert.Equal(t, starterMetrics(), metrics)

	secretsPath := filepath.Join(dir, config.DefaultSecretsFile)
	info, err := os.Stat(secretsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	creds, err := secrets.Load(secrets.NewFileStore(secretsPath))
	require.NoError(t, err)
	assert.Equal(t, secrets.Secrets{SSID: "office", Password: "hunter2", APIKey: "api-1234", AppKey: "app-5678"}, creds)

	assert.Contains(t, buf.String(), "Wrote "+secretsPath)
	assert.NotContains(t, buf.String(), "are empty")
}

func TestInit_NonInteractive_MissingKeysWarns(t *testing.T) {
	dir := t.TempDir()
	setInitEnv(t, "", "", "", "")

	var buf bytes.Buffer
	require.NoError(t, Init(&buf, InitOptions{Dir: dir, NonInteractive: true}))
	assert.Contains(t, buf.String(), "dd_api and dd_app are empty")
}

func TestInit_NonInteractive_ExistingFiles(t *testing.T) {
	dir := t.TempDir()
	setInitEnv(t, "api-1234", "app-5678", "", "")
	metricsPath := filepath.Join(dir, config.DefaultMetricsFile)
	require.NoError(t, os.WriteFile(metricsPath, []byte(`{"mine": true}`), 0644))

	var buf bytes.Buffer
	err := Init(&buf, InitOptions{Dir: dir, NonInteractive: true})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "Already exists")

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Equal(t, `{"mine": true}`, string(data), "file must be left alone")
}

func TestInit_NonInteractive_Force(t *testing.T) {
	dir := t.TempDir()
	setInitEnv(t, "api-1234", "app-5678", "", "")
	metricsPath := filepath.Join(dir, config.DefaultMetricsFile)
	require.NoError(t, os.WriteFile(metricsPath, []byte(`{"mine": true}`), 0644))

	var buf bytes.Buffer
	require.NoError(t, Init(&buf, InitOptions{Dir: dir, NonInteractive: true, Overwrite: true}))

	_, err := config.LoadMetrics(metricsPath)
	assert.NoError(t, err)
}

func TestInit_Keyring(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	setInitEnv(t, "api-1234", "app-5678", "", "")

	var buf bytes.Buffer
	require.NoError(t, Init(&buf, InitOptions{Dir: dir, NonInteractive: true, Keyring: true}))

	creds, err := secrets.Load(secrets.NewKeyringStore(secrets.ServiceName))
	require.NoError(t, err)
	assert.Equal(t, "api-1234", creds.APIKey)
	assert.Equal(t, "app-5678", creds.AppKey)
	assert.Contains(t, buf.String(), "Saved credentials to the keyring")
}

func TestConfirmOverwrite(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.json")
	present := filepath.Join(dir, "present.json")
	require.NoError(t, os.WriteFile(present, []byte("{}"), 0644))

	ok, err := confirmOverwrite(InitOptions{NonInteractive: true}, missing)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = confirmOverwrite(InitOptions{NonInteractive: true, Overwrite: true}, present)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = confirmOverwrite(InitOptions{NonInteractive: true}, missing, present)
	require.Error(t, err)
	assert.Contains(t, err.Error(), present)
}
