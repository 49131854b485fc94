package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/ledger"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".archiveverify", "config.json")
)

type Config struct {
	// ArchiveURL is the MyEMSL endpoint.
	ArchiveURL string `json:"archive_url"`

	// CertFile is the PEM certificate required before any archive query.
	CertFile string `json:"cert_file"`

	// LedgerRoot holds the per-dataset ledger files, laid out as
	// instrument/yearQuarter/results.<dataset>.
	LedgerRoot string `json:"ledger_root"`

	// BackupRoot, when set, receives a best-effort copy of every saved
	// ledger, mirroring LedgerRoot's layout.
	BackupRoot string `json:"backup_root"`

	// TransferRoot holds per-dataset upload staging directories with
	// the transient upload manifests.
	TransferRoot string `json:"transfer_root"`

	// SourceRoot holds the datasets' local source directories, used
	// when no manifest is usable.
	SourceRoot string `json:"source_root"`

	// RemoteRoot is the archive-side path prefix for canonical paths.
	RemoteRoot string `json:"remote_root"`

	// PassLogPath is the local SQLite pass-history database.
	PassLogPath string `json:"passlog_path"`

	Path string `json:"-"`
}

// Validate fills defaults and normalizes paths. Only parameters every
// pass needs are required here; parameters a specific pass needs
// (e.g. SourceRoot for the scan fallback) fail at point of use.
func (c *Config) Validate() error {
	if c.ArchiveURL == "" {
		return fmt.Errorf("archive url is required")
	}
	if c.LedgerRoot == "" {
		return fmt.Errorf("ledger root is required")
	}
	if c.RemoteRoot == "" {
		c.RemoteRoot = ledger.DefaultRemoteRoot
	}

	for _, p := range []*string{&c.CertFile, &c.LedgerRoot, &c.BackupRoot, &c.TransferRoot, &c.SourceRoot, &c.PassLogPath} {
		if *p == "" {
			continue
		}
		resolved, err := utils.ResolvePath(*p)
		if err != nil {
			return err
		}
		*p = resolved
	}

	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.Path = path
	return &cfg, nil
}
