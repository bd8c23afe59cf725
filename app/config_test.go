package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)

	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		dumpJSON, dumpSecrets = false, false
	})

	require.NoError(t, rootCmd.Execute())

	return out.String()
}

func TestConfigDumpRedactsSecrets(t *testing.T) {
	out := runRoot(t, "config", "dump", "--json", "--config", "../etc/")

	assert.Contains(t, out, `"Title": "inkpress"`)
	assert.NotContains(t, out, "change-me-change-me")
	assert.NotContains(t, out, "revalidate-secret")
}

func TestConfigDumpTOMLWithSecrets(t *testing.T) {
	out := runRoot(t, "config", "dump", "--secrets", "--config", "../etc/")

	assert.Contains(t, out, "[Webserver]")
	assert.Contains(t, out, "revalidate-secret")
}
