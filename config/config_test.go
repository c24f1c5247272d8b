package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8443", cfg.ListenAddress)
	require.Equal(t, 100, cfg.RateLimit.MaxRequests)
	require.FileExists(t, path)
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.toml")
	contents := `ListenAddress = "0.0.0.0:9443"
DataDir = "/var/lib/station"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9443", cfg.ListenAddress)
	require.Equal(t, "/var/lib/station", cfg.DataDir)
	require.Equal(t, 20, cfg.Scheduler.BatchSize)
	require.Equal(t, 50, cfg.Scheduler.ProcessingCap)
}

func TestLoadParsesUpgraderAndSystemInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "station.toml")
	contents := `ListenAddress = ":8443"
DataDir = "./data"

[Upgrader]
SharedSecret = "topsecret"
AuthorizationHeader = "x-station-token"
AllowedClientCommonNames = ["upgraderd"]

[SystemInit]
DisasterRecoveryQuorum = 1

[[SystemInit.AdminUsers]]
Name = "root"
Identities = ["deadbeef"]

[[SystemInit.DisasterRecoveryCommittee]]
Name = "ops-1"
Identities = ["cafebabe"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "topsecret", cfg.Upgrader.SharedSecret)
	require.Equal(t, "x-station-token", cfg.Upgrader.AuthorizationHeaderName())
	require.Equal(t, []string{"upgraderd"}, cfg.Upgrader.AllowedClientCommonNames)
	require.Len(t, cfg.SystemInit.AdminUsers, 1)
	require.Equal(t, "root", cfg.SystemInit.AdminUsers[0].Name)
	require.EqualValues(t, 1, cfg.SystemInit.DisasterRecoveryQuorum)
}

func TestValidateRejectsInvalidRateLimit(t *testing.T) {
	cfg := defaultConfig()
	cfg.RateLimit.MaxRequests = 0
	require.Error(t, Validate(cfg))
}

func TestValidateRejectsQuorumLargerThanCommittee(t *testing.T) {
	cfg := defaultConfig()
	cfg.SystemInit.AdminUsers = []AdminUser{{Name: "root", Identities: []string{"ab"}}}
	cfg.SystemInit.DisasterRecoveryCommittee = []DisasterRecoveryMember{{Name: "ops-1", Identities: []string{"cd"}}}
	cfg.SystemInit.DisasterRecoveryQuorum = 2
	require.Error(t, Validate(cfg))
}

func TestResolveSharedSecretPrefersInlineThenFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file\n"), 0o600))

	inline := NetworkSecurity{SharedSecret: "inline-secret"}
	secret, err := inline.ResolveSharedSecret(dir, nil)
	require.NoError(t, err)
	require.Equal(t, "inline-secret", secret)

	fileOnly := NetworkSecurity{SharedSecretFile: "secret.txt"}
	secret, err = fileOnly.ResolveSharedSecret(dir, nil)
	require.NoError(t, err)
	require.Equal(t, "from-file", secret)

	envOnly := NetworkSecurity{SharedSecretEnv: "STATION_SECRET"}
	secret, err = envOnly.ResolveSharedSecret(dir, func(key string) (string, bool) {
		if key == "STATION_SECRET" {
			return "from-env", true
		}
		return "", false
	})
	require.NoError(t, err)
	require.Equal(t, "from-env", secret)
}
