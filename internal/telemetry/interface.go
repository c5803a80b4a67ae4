// Package telemetry keeps an optional sqlite ledger of archived documents.
// It is write only; nothing in hostwatch reads the ledger back.
package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/hostwatch/internal/document"
	"codeberg.org/mutker/hostwatch/internal/reading"
)

// Recorder stores ledger entries.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
	Close() error
}

type Repository interface {
	Record(entry *Entry) error
	Close() error
}

// Entry is one archived document as stored in the ledger. Metrics that were
// not measured are stored as NULL with their status alongside.
type Entry struct {
	Timestamp      time.Time
	CPUPercent     reading.Float
	MemoryPercent  reading.Float
	DiskPercent    reading.Float
	BatteryPercent reading.Float
	BatteryPlugged reading.Bool
	AlertCount     int
	WeatherOK      bool
	ArchivePath    string
}

// NewEntry builds the ledger entry for a document archived at path.
func NewEntry(doc document.Document, path string) *Entry {
	return &Entry{
		Timestamp:      doc.Timestamp,
		CPUPercent:     doc.Snapshot.CPUPercent,
		MemoryPercent:  doc.Snapshot.MemoryPercent,
		DiskPercent:    doc.Snapshot.DiskPercent,
		BatteryPercent: doc.Snapshot.BatteryPercent,
		BatteryPlugged: doc.Snapshot.BatteryPlugged,
		AlertCount:     len(doc.Alerts),
		WeatherOK:      doc.Weather != nil && doc.Weather.OK(),
		ArchivePath:    path,
	}
}
