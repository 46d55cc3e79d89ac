package cli

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBuildVars(t *testing.T, version, commit, date string) {
	t.Helper()
	oldV, oldC, oldD := Version, GitCommit, BuildDate
	Version, GitCommit, BuildDate = version, commit, date
	t.Cleanup(func() { Version, GitCommit, BuildDate = oldV, oldC, oldD })
}

func TestVersionCommand_Text(t *testing.T) {
	withBuildVars(t, "1.4.0", "abc1234", "2026-01-02")

	// No config is loaded, so a missing file is not an error here.
	out, err := runRoot(t, "--config", "/nonexistent/predictpesa.yaml", "version")
	require.NoError(t, err)
	assert.Equal(t, "predictpesa 1.4.0 (commit: abc1234, built: 2026-01-02, "+runtime.Version()+")\n", out)
}

func TestVersionCommand_JSON(t *testing.T) {
	withBuildVars(t, "1.4.0", "abc1234", "2026-01-02")

	out, err := runRoot(t, "version", "--json")
	require.NoError(t, err)

	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, BuildInfo{
		Version:   "1.4.0",
		Commit:    "abc1234",
		BuildDate: "2026-01-02",
		GoVersion: runtime.Version(),
	}, info)
}
