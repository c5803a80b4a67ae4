package telemetry

import (
	"path/filepath"
	"time"

	"codeberg.org/mutker/hostwatch/internal/errors"
)

const (
	defaultDirPerm      = 0o755
	defaultDBPath       = "hostwatch.db"
	defaultBatchSize    = 10
	defaultBatchTimeout = 30 * time.Second
	defaultMaxBuffered  = 1000
	backupDirName       = "backups"
)

type Config struct {
	DBPath       string
	Enabled      bool
	BatchSize    int
	BatchTimeout time.Duration
	// MaxBuffered bounds the entries kept while the database rejects
	// writes. The oldest are dropped first.
	MaxBuffered int
	// BackupDir defaults to a backups directory next to the database.
	BackupDir string
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		Enabled:      false,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		MaxBuffered:  defaultMaxBuffered,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 || c.MaxBuffered < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			BatchSize    int
			BatchTimeout time.Duration
			// MaxBuffered bounds the entries kept while the database rejects
			// writes. The oldest are dropped first.
			MaxBuffered int
		}{
			BatchSize:    c.BatchSize,
			BatchTimeout: c.BatchTimeout,
		})
	}

	return nil
}

func (c Config) maxBuffered() int {
	limit := c.MaxBuffered
	if limit == 0 {
		limit = defaultMaxBuffered
	}

	return max(limit, c.BatchSize, 1)
}

func (c Config) backupDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}

	return filepath.Join(filepath.Dir(c.DBPath), backupDirName)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
