// Package document assembles the published status document and encodes it.
//
// A Document is built once per cycle and never changed afterwards. The same
// Document, and therefore the same timestamp, is used for the live write and
// for the archive write of that cycle.
package document

import (
	"slices"
	"time"

	"codeberg.org/mutker/hostwatch/internal/alert"
	"codeberg.org/mutker/hostwatch/internal/host"
	"codeberg.org/mutker/hostwatch/internal/weather"
)

// TimestampLayout is ISO-8601 with microseconds and the local offset.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

type Document struct {
	Snapshot  host.Snapshot
	Alerts    alert.Set
	Weather   *weather.Snapshot
	Timestamp time.Time
}

// Assemble builds the document for one cycle. A nil weather snapshot means
// enrichment is disabled and the weather record is left out.
func Assemble(snap host.Snapshot, alerts alert.Set, w *weather.Snapshot, now time.Time) Document {
	doc := Document{
		Snapshot:  snap,
		Alerts:    slices.Clone(alerts),
		Timestamp: now,
	}
	if doc.Alerts == nil {
		doc.Alerts = alert.Set{}
	}
	if w != nil {
		ws := *w
		doc.Weather = &ws
	}

	return doc
}

// FormattedTimestamp returns the document timestamp as published.
func (d Document) FormattedTimestamp() string {
	return d.Timestamp.Format(TimestampLayout)
}
