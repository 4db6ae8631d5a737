package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the optional defaults flags can override, loaded from a
// `.c2pa.yaml` file (spec.md §6, SPEC_FULL §4.L).
type Config struct {
	// Alg is the default hash algorithm used when --alg is not given
	// ("sha256", "sha384" or "sha512"). The signature algorithm is not
	// configurable: it follows from the signer's key type.
	Alg string `yaml:"alg"`

	// ClaimGenerator is the claim_generator string stamped into claims
	// signed by the CLI; when empty, "c2pa-go/c2patool" is used.
	ClaimGenerator string `yaml:"claim_generator"`

	// TrustAnchors is a path to a PEM bundle of trust-anchor certificates
	// used for the signingCredential.trusted/untrusted check.
	TrustAnchors string `yaml:"trust_anchors"`

	// HistoryDB is the path to the operation-history sqlite database.
	// Empty disables history logging.
	HistoryDB string `yaml:"history_db"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	historyPath := ".c2pa/history.db"
	if err == nil {
		historyPath = home + "/.c2pa/history.db"
	}
	return &Config{
		Alg:       "sha256",
		HistoryDB: historyPath,
	}
}

// Load reads path and merges it over DefaultConfig. A missing file yields
// the defaults with a nil readErr. An unreadable or unparsable file also
// yields the defaults, with readErr describing the failure; cfg is always
// usable, so the CLI logs readErr (only under --debug) without aborting,
// matching §4.L's best-effort loading.
func Load(path string) (cfg *Config, readErr error) {
	cfg = DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if file.Alg != "" {
		cfg.Alg = file.Alg
	}
	if file.ClaimGenerator != "" {
		cfg.ClaimGenerator = file.ClaimGenerator
	}
	if file.TrustAnchors != "" {
		cfg.TrustAnchors = file.TrustAnchors
	}
	if file.HistoryDB != "" {
		cfg.HistoryDB = file.HistoryDB
	}
	return cfg, nil
}
