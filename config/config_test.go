package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/targetgod/spec"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"/etc/target/fabric", "/var/lib/target/fabric"}, cfg.SpecDirs)
	assert.Equal(t, "strict", cfg.Mode)
	assert.False(t, cfg.LegacyFilters)
}

func TestLoadExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "spec_dirs:\n  - /opt/fabric\nmode: lenient\nlegacy_filters: true\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/fabric"}, cfg.SpecDirs)
	assert.Equal(t, "lenient", cfg.Mode)
	assert.True(t, cfg.LegacyFilters)
}

func TestLoadKeepsDefaultsForUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: lenient\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/etc/target/fabric", "/var/lib/target/fabric"}, cfg.SpecDirs)
	assert.Equal(t, "lenient", cfg.Mode)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"unknown mode": "mode: chaotic\n",
		"not yaml":     "mode: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.WriteFile("config.yaml", []byte("mode: lenient\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "lenient", cfg.Mode)
}

func TestParserOptions(t *testing.T) {
	strict := &Config{Mode: "strict"}
	lenient := &Config{Mode: "lenient"}
	legacy := &Config{Mode: "strict", LegacyFilters: true}

	// Unknown keys prove the mode wiring.
	body := []byte("mystery = 1\n")
	_, err := spec.Parse(body, "fab", strict.ParserOptions()...)
	assert.ErrorIs(t, err, spec.ErrUnknownKey)
	_, err = spec.Parse(body, "fab", lenient.ParserOptions()...)
	assert.NoError(t, err)

	// A historical shell filter proves the legacy wiring.
	body = []byte("wwn_from_files = /sys/class/fc_host/host*/port_name\nwwn_from_files_filter = \"sed -e s/^0x//\"\n")
	_, err = spec.Parse(body, "fab", strict.ParserOptions()...)
	assert.ErrorIs(t, err, spec.ErrUnsupportedRule)
	d, err := spec.Parse(body, "fab", legacy.ParserOptions()...)
	require.NoError(t, err)
	assert.True(t, d.NeedsWWN())
}
