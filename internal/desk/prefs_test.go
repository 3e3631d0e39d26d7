package desk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefs_RoundTripAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")

	assert.Equal(t, Prefs{Theme: defaultTheme}, LoadPrefs(path), "missing file")

	require.NoError(t, SavePrefs(path, Prefs{ApprovedOnly: true, Theme: "light"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "approved_only = true")
	assert.Equal(t, Prefs{ApprovedOnly: true, Theme: "light"}, LoadPrefs(path))
}

func TestPrefs_Broken(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.toml")
	require.NoError(t, os.WriteFile(garbage, []byte("approved_only = [oops"), 0o644))
	assert.Equal(t, Prefs{Theme: defaultTheme}, LoadPrefs(garbage))

	unknownTheme := filepath.Join(dir, "theme.toml")
	require.NoError(t, os.WriteFile(unknownTheme, []byte("approved_only = true\ntheme = \"neon\"\n"), 0o644))
	assert.Equal(t, Prefs{ApprovedOnly: true, Theme: defaultTheme}, LoadPrefs(unknownTheme))
}
