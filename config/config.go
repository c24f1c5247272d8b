// Package config loads STATION's TOML configuration, adapted from the
// teacher's config.Load (config/config.go): decode-or-create-default, then
// apply defaults and validate before returning to the caller.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// RateLimit holds a sliding-window size and per-window quota. cmd/stationd
// does not pass it to authz.NewLimiter, which uses its built-in window and
// quota.
type RateLimit struct {
	WindowSeconds int `toml:"WindowSeconds"`
	MaxRequests   int `toml:"MaxRequests"`
}

// Scheduler holds the background job settings. Only PeriodMillis is read,
// by cmd/stationd's scheduler loop; BatchSize and ProcessingCap are
// validated but not passed to package scheduler, which uses its
// MaxBatchSize and MaxProcessing constants.
type Scheduler struct {
	BatchSize      int `toml:"BatchSize"`
	ProcessingCap  int `toml:"ProcessingCap"`
	PeriodMillis   int `toml:"PeriodMillis"`
}

// NetworkSecurity configures the transport the upgrader's gRPC connection
// authenticates over, grounded on network.BuildServerSecurity /
// network/security.go's shape: either a shared-secret header, mTLS client
// certificates, or both.
type NetworkSecurity struct {
	ListenAddress            string   `toml:"ListenAddress"`
	SharedSecret             string   `toml:"SharedSecret"`
	SharedSecretFile         string   `toml:"SharedSecretFile"`
	SharedSecretEnv          string   `toml:"SharedSecretEnv"`
	AuthorizationHeader      string   `toml:"AuthorizationHeader"`
	AllowInsecure            bool     `toml:"AllowInsecure"`
	AllowUnauthenticatedReads bool    `toml:"AllowUnauthenticatedReads"`
	ServerTLSCertFile        string   `toml:"ServerTLSCertFile"`
	ServerTLSKeyFile         string   `toml:"ServerTLSKeyFile"`
	ClientCAFile             string   `toml:"ClientCAFile"`
	ClientTLSCertFile        string   `toml:"ClientTLSCertFile"`
	ClientTLSKeyFile         string   `toml:"ClientTLSKeyFile"`
	ServerCAFile             string   `toml:"ServerCAFile"`
	AllowedClientCommonNames []string `toml:"AllowedClientCommonNames"`
	ServerName               string   `toml:"ServerName"`
}

// AuthorizationHeaderName returns the configured header, defaulting to
// "authorization" the same way network.NewTokenAuthenticator does.
func (s NetworkSecurity) AuthorizationHeaderName() string {
	if s.AuthorizationHeader == "" {
		return "authorization"
	}
	return s.AuthorizationHeader
}

// ResolveSharedSecret returns the configured shared secret, preferring an
// inline value, then a file on disk (resolved relative to baseDir), then an
// environment variable looked up through lookup (os.LookupEnv in
// production, a fake in tests).
func (s NetworkSecurity) ResolveSharedSecret(baseDir string, lookup func(string) (string, bool)) (string, error) {
	if s.SharedSecret != "" {
		return s.SharedSecret, nil
	}
	if s.SharedSecretFile != "" {
		path := s.SharedSecretFile
		if baseDir != "" && !isAbs(path) {
			path = baseDir + string(os.PathSeparator) + path
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read shared secret file: %w", err)
		}
		return trimNewline(string(data)), nil
	}
	if s.SharedSecretEnv != "" && lookup != nil {
		if value, ok := lookup(s.SharedSecretEnv); ok {
			return value, nil
		}
	}
	return "", nil
}

// AdminUser seeds one administrator during SystemInit bootstrap.
type AdminUser struct {
	Name       string   `toml:"Name"`
	Identities []string `toml:"Identities"` // hex-encoded model.Principal values
}

// DisasterRecoveryMember seeds one upgrader disaster-recovery committee seat.
type DisasterRecoveryMember struct {
	Name       string   `toml:"Name"`
	Identities []string `toml:"Identities"`
}

// SystemInit is the bootstrap payload a fresh station is installed with,
// per SPEC_FULL.md §6.5's SystemInstall tagged union (the Init variant).
type SystemInit struct {
	AdminUsers                []AdminUser              `toml:"AdminUsers"`
	DisasterRecoveryCommittee []DisasterRecoveryMember `toml:"DisasterRecoveryCommittee"`
	DisasterRecoveryQuorum    uint16                   `toml:"DisasterRecoveryQuorum"`
}

// Auth configures api/httpapi's bearer-token principal resolution, adapted
// from the teacher's gateway AuthConfig down to the single HMAC secret
// STATION's JWT subject-claim scheme needs.
type Auth struct {
	HMACSecret string `toml:"HMACSecret"`
}

// Config is STATION's top-level runtime configuration.
type Config struct {
	ListenAddress string          `toml:"ListenAddress"`
	DataDir       string          `toml:"DataDir"`
	RateLimit     RateLimit       `toml:"RateLimit"`
	Scheduler     Scheduler       `toml:"Scheduler"`
	Auth          Auth            `toml:"Auth"`
	Upgrader      NetworkSecurity `toml:"Upgrader"`
	SystemInit    SystemInit      `toml:"SystemInit"`
}

func defaultConfig() Config {
	return Config{
		ListenAddress: ":8443",
		DataDir:       "./station-data",
		RateLimit: RateLimit{
			WindowSeconds: 3600,
			MaxRequests:   100,
		},
		Scheduler: Scheduler{
			BatchSize:     20,
			ProcessingCap: 50,
			PeriodMillis:  500,
		},
	}
}

// Load reads path, applying defaults for anything left unset and validating
// the result. A missing file is not an error: a default configuration is
// written to path and returned, matching the teacher's createDefault
// behaviour.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path, cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	defaults := defaultConfig()
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaults.ListenAddress
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = defaults.RateLimit.WindowSeconds
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = defaults.RateLimit.MaxRequests
	}
	if cfg.Scheduler.BatchSize == 0 {
		cfg.Scheduler.BatchSize = defaults.Scheduler.BatchSize
	}
	if cfg.Scheduler.ProcessingCap == 0 {
		cfg.Scheduler.ProcessingCap = defaults.Scheduler.ProcessingCap
	}
	if cfg.Scheduler.PeriodMillis == 0 {
		cfg.Scheduler.PeriodMillis = defaults.Scheduler.PeriodMillis
	}
}

func writeDefault(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create default config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return nil
}

func isAbs(path string) bool {
	return len(path) > 0 && path[0] == os.PathSeparator
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
