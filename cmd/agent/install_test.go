package agent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderInitScript(t *testing.T) {
	p := installParams{Exec: "/usr/local/bin/ppagent", Config: "/etc/ppagent/config.json", User: "miner"}

	for _, kind := range initSystemNames() {
		script, sys, err := renderInitScript(kind, p)
		require.NoError(t, err, kind)
		assert.Contains(t, string(script), "/usr/local/bin/ppagent run --config /etc/ppagent/config.json", kind)
		assert.Contains(t, string(script), "miner", kind)
		assert.NotEmpty(t, sys.path, kind)
	}

	_, sys, err := renderInitScript("sysv", p)
	require.NoError(t, err)
	assert.Equal(t, "/etc/init.d/ppagent", sys.path)
	assert.EqualValues(t, 0o751, sys.mode)
}

func TestRenderInitScriptUnknown(t *testing.T) {
	_, _, err := renderInitScript("launchd", installParams{})
	assert.ErrorContains(t, err, "unknown init system")
}

func TestInstallDryRun(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"install", "systemd", "--dry-run", "--user", "pp"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		installDryRun = false
		installUser = "root"
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "# /etc/systemd/system/ppagent.service")
	assert.Contains(t, out.String(), "User=pp")
}
