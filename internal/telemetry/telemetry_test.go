package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/hostwatch/internal/alert"
	"codeberg.org/mutker/hostwatch/internal/document"
	"codeberg.org/mutker/hostwatch/internal/host"
	"codeberg.org/mutker/hostwatch/internal/logger"
	"codeberg.org/mutker/hostwatch/internal/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig(t *testing.T, batch int) Config {
	t.Helper()

	dir := t.TempDir()
	return Config{
		DBPath:    filepath.Join(dir, "ledger", "hostwatch.db"),
		Enabled:   true,
		BatchSize: batch,
		BackupDir: filepath.Join(dir, "backups"),
	}
}

func testEntry(ts time.Time) *Entry {
	doc := document.Assemble(host.Snapshot{
		CPUPercent:     reading.Of(91.5),
		MemoryPercent:  reading.Of(40.0),
		DiskPercent:    reading.Failed[float64](),
		BatteryPercent: reading.Unavailable[float64](),
		BatteryPlugged: reading.Unavailable[bool](),
	}, alert.Set{"CPU high: 91.5%"}, nil, ts)

	return NewEntry(doc, "logs_xml/log_20240101_000000.xml")
}

func countRows(t *testing.T, path string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n))
	return n
}

func TestDisabledIsNoop(t *testing.T) {
	rec, err := NewService(Config{Enabled: false}, logger.Get())
	require.NoError(t, err)

	assert.NoError(t, rec.Record(context.Background(), testEntry(time.Now())))
	assert.NoError(t, rec.Close())
}

func TestEnabledRequiresPath(t *testing.T) {
	_, err := NewService(Config{Enabled: true}, logger.Get())
	assert.Error(t, err)
}

func TestRecordFlushesOnBatchSize(t *testing.T) {
	cfg := testConfig(t, 2)
	rec, err := NewService(cfg, logger.Get())
	require.NoError(t, err)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rec.Record(context.Background(), testEntry(ts)))
	assert.Equal(t, 0, countRows(t, cfg.DBPath), "first entry stays buffered")

	require.NoError(t, rec.Record(context.Background(), testEntry(ts.Add(time.Minute))))
	assert.Equal(t, 2, countRows(t, cfg.DBPath))

	require.NoError(t, rec.Close())
}

func TestCloseFlushesBuffer(t *testing.T) {
	cfg := testConfig(t, 10)
	rec, err := NewService(cfg, logger.Get())
	require.NoError(t, err)

	require.NoError(t, rec.Record(context.Background(), testEntry(time.Now())))
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close(), "close is idempotent")

	assert.Equal(t, 1, countRows(t, cfg.DBPath))
}

func TestStoredValues(t *testing.T) {
	cfg := testConfig(t, 1)
	rec, err := NewService(cfg, logger.Get())
	require.NoError(t, err)

	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, rec.Record(context.Background(), testEntry(ts)))
	require.NoError(t, rec.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var (
		cpu        sql.NullFloat64
		disk       sql.NullFloat64
		diskStatus string
		battStatus string
		plugged    sql.NullInt64
		alerts     int
		micro      int64
		path       string
	)
	require.NoError(t, db.QueryRow(`
        SELECT cpu_percent, disk_percent, disk_status, battery_status,
               battery_plugged, alert_count, unix_micro, archive_path
        FROM snapshots`).Scan(&cpu, &disk, &diskStatus, &battStatus, &plugged, &alerts, &micro, &path))

	assert.True(t, cpu.Valid)
	assert.InDelta(t, 91.5, cpu.Float64, 0.0001)
	assert.False(t, disk.Valid)
	assert.Equal(t, "error", diskStatus)
	assert.Equal(t, "unavailable", battStatus)
	assert.False(t, plugged.Valid)
	assert.Equal(t, 1, alerts)
	assert.Equal(t, ts.UnixMicro(), micro)
	assert.Equal(t, "logs_xml/log_20240101_000000.xml", path)
}

func TestRecordHonorsCancelledContext(t *testing.T) {
	rec, err := NewService(testConfig(t, 1), logger.Get())
	require.NoError(t, err)
	defer rec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, rec.Record(ctx, testEntry(time.Now())))
	assert.Error(t, rec.Record(context.Background(), nil))
}

func TestSchemaMismatchBacksUp(t *testing.T) {
	cfg := testConfig(t, 1)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`
        CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
        INSERT INTO schema_versions VALUES (99, datetime('now'));`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	rec, err := NewService(cfg, logger.Get())
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	backups, err := filepath.Glob(filepath.Join(cfg.BackupDir, "telemetry_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	db, err = sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestBufferIsBoundedWhileWritesFail(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.MaxBuffered = 3
	repo, err := NewRepository(cfg, logger.Get())
	require.NoError(t, err)
	r := repo.(*repository)

	_, err = r.db.Exec("DROP TABLE snapshots")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Error(t, repo.Record(testEntry(t0.Add(time.Duration(i)*time.Minute))))
	}

	r.mu.Lock()
	var kept []time.Time
	for _, e := range r.buffer {
		kept = append(kept, e.Timestamp)
	}
	r.mu.Unlock()

	assert.Equal(t, []time.Time{
		t0.Add(2 * time.Minute),
		t0.Add(3 * time.Minute),
		t0.Add(4 * time.Minute),
	}, kept, "oldest entries are dropped first")

	require.NoError(t, repo.Close())
}

func TestMaxBufferedNeverBelowBatch(t *testing.T) {
	assert.Equal(t, defaultMaxBuffered, Config{BatchSize: 10}.maxBuffered())
	assert.Equal(t, 50, Config{BatchSize: 50, MaxBuffered: 5}.maxBuffered())
	assert.Equal(t, 5, Config{BatchSize: 1, MaxBuffered: 5}.maxBuffered())
}
