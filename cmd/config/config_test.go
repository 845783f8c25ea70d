package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pendant-go/internal/conf"
)

func TestInitWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cmd := Command(&conf.Settings{})
	cmd.SetArgs([]string{"init", path})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "releasethreshold")

	// second run refuses to overwrite
	cmd = Command(&conf.Settings{})
	cmd.SetArgs([]string{"init", path})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	require.Error(t, cmd.Execute())
}

func TestInitSkipsSetup(t *testing.T) {
	cmd := Command(&conf.Settings{})
	initCmd, _, err := cmd.Find([]string{"init"})
	require.NoError(t, err)
	assert.Contains(t, initCmd.Annotations, SkipSetup)
}

func TestPrintMasksPassword(t *testing.T) {
	settings := &conf.Settings{}
	settings.MQTT.Password = "hunter2"

	data, err := conf.Dump(settings)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
	assert.Equal(t, "hunter2", settings.MQTT.Password, "dump must not modify the live settings")
}
