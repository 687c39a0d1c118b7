package cfg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r-che/cadfael/common/fschecks"
	"github.com/r-che/cadfael/crawler"
	"github.com/r-che/cadfael/enrich/macho"
)

func parseFlags(t *testing.T, args ...string) *ProgConfig {
	t.Helper()

	pc := New()
	fs := pflag.NewFlagSet("cadfael-test", pflag.ContinueOnError)
	pc.AddFlags(fs)
	require.NoError(t, fs.Parse(args))

	return pc
}

func writeFile(t *testing.T, name, data string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), mode))
	require.NoError(t, os.Chmod(path, mode))

	return path
}

func TestDefaults(t *testing.T) {
	pc := parseFlags(t)
	require.NoError(t, pc.Prepare())

	assert.Equal(t, DefaultDB, pc.DBCfg.HostPort)
	assert.Equal(t, DefaultDBID, pc.DBCfg.ID)
	assert.False(t, pc.DBCfg.ReadOnly)
	assert.Nil(t, pc.DBCfg.PrivCfg)

	assert.Equal(t, []string{macho.ModuleName}, pc.Modules)
	assert.Equal(t, "", pc.Faults)
	assert.Equal(t, 0, pc.Workers)
	assert.Equal(t, crawler.DefaultPollInterval, pc.PollInterval)
	assert.Equal(t, crawler.DefaultHashChunk, pc.HashChunk)
	assert.Equal(t, macho.DefaultCodesign, pc.Codesign)
}

func TestFlags(t *testing.T) {
	pc := parseFlags(t, "--db", "redis://localhost:6379/2", "--dbid", "catalog", "--db-readonly",
		"-q", "--debug", "--nologts", "-l", "/tmp/cadfael.log")
	require.NoError(t, pc.Prepare())

	assert.Equal(t, "redis://localhost:6379/2", pc.DBCfg.HostPort)
	assert.Equal(t, "catalog", pc.DBCfg.ID)
	assert.True(t, pc.DBCfg.ReadOnly)
	assert.True(t, pc.Quiet)
	assert.True(t, pc.Debug)
	assert.True(t, pc.NoLogTS)
	assert.Equal(t, "/tmp/cadfael.log", pc.LogFile)
}

func TestSettingsFile(t *testing.T) {
	settings := writeFile(t, "settings.yaml", `
modules: []
faults: /var/tmp/faults
workers: 2
poll_interval: 30s
hash_chunk: 65536
codesign: [ "/opt/bin/codesign", "-dv" ]
`, 0o644)

	pc := parseFlags(t, "--settings", settings)
	require.NoError(t, pc.Prepare())

	assert.Empty(t, pc.Modules)
	assert.Equal(t, "/var/tmp/faults", pc.Faults)
	assert.Equal(t, 2, pc.Workers)
	assert.Equal(t, 30 * time.Second, pc.PollInterval)
	assert.Equal(t, 65536, pc.HashChunk)
	assert.Equal(t, []string{"/opt/bin/codesign", "-dv"}, pc.Codesign)
}

func TestEnvOverridesSettings(t *testing.T) {
	settings := writeFile(t, "settings.json", `{"workers": 2, "faults": "/from/file"}`, 0o644)
	t.Setenv("CADFAEL_WORKERS", "5")
	t.Setenv("CADFAEL_POLL_INTERVAL", "5s")

	pc := parseFlags(t, "-s", settings)
	require.NoError(t, pc.Prepare())

	assert.Equal(t, 5, pc.Workers)
	assert.Equal(t, 5 * time.Second, pc.PollInterval)
	assert.Equal(t, "/from/file", pc.Faults)
}

func TestInvalidSettings(t *testing.T) {
	tests := []string{
		`workers: -1`,
		`hash_chunk: 0`,
		`poll_interval: 0s`,
		`codesign: []`,
	}

	for _, test := range tests {
		pc := parseFlags(t, "-s", writeFile(t, "settings.yaml", test, 0o644))
		if err := pc.Prepare(); err == nil {
			t.Errorf("Settings %q must be rejected", test)
		}
	}

	pc := parseFlags(t, "-s", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, pc.Prepare())
}

func TestPrivCfg(t *testing.T) {
	priv := writeFile(t, "priv.json", `{"auth": {"username": "cadfael", "password": "secret"}}`, 0o600)

	pc := parseFlags(t, "--db-priv-cfg", priv)
	require.NoError(t, pc.Prepare())
	assert.Equal(t, map[string]any{"username": "cadfael", "password": "secret"}, pc.DBCfg.PrivCfg["auth"])

	// Readable by others
	pc = parseFlags(t, "--db-priv-cfg", writeFile(t, "priv.json", `{}`, 0o644))
	err := pc.Prepare()
	var errPerm *fschecks.ErrPerm
	assert.True(t, errors.As(err, &errPerm), "got %v", err)

	// Not a JSON
	pc = parseFlags(t, "--db-priv-cfg", writeFile(t, "priv.json", `user=cadfael`, 0o600))
	assert.Error(t, pc.Prepare())
}

func TestClone(t *testing.T) {
	pc := parseFlags(t)
	require.NoError(t, pc.Prepare())

	c := pc.Clone()
	c.Modules[0] = "changed"
	c.Codesign[0] = "changed"

	assert.Equal(t, macho.ModuleName, pc.Modules[0])
	assert.Equal(t, macho.DefaultCodesign[0], pc.Codesign[0])
}

func TestModules(t *testing.T) {
	t.Setenv("CADFAEL_MODULES", macho.ModuleName + "," + macho.ModuleName)

	pc := parseFlags(t)
	require.NoError(t, pc.Prepare())
	assert.Equal(t, []string{macho.ModuleName}, pc.Modules)

	t.Setenv("CADFAEL_MODULES", "x-elf-binary")
	assert.Error(t, parseFlags(t).Prepare())
}
