// Package publisher drives the publication cycle: sample the host, derive
// alerts, optionally attach weather, then write the live document and, on
// the archive cadence, an archive document.
package publisher

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/hostwatch/internal/alert"
	"codeberg.org/mutker/hostwatch/internal/document"
	"codeberg.org/mutker/hostwatch/internal/errors"
	"codeberg.org/mutker/hostwatch/internal/host"
	"codeberg.org/mutker/hostwatch/internal/logger"
	"codeberg.org/mutker/hostwatch/internal/telemetry"
	"codeberg.org/mutker/hostwatch/internal/weather"
)

type State int32

const (
	StateIdle State = iota
	StateSampling
	StateEvaluating
	StateEnriching
	StatePublishing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateEvaluating:
		return "evaluating"
	case StateEnriching:
		return "enriching"
	case StatePublishing:
		return "publishing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Config struct {
	SampleInterval  time.Duration
	ArchiveInterval time.Duration
	LivePath        string
	Thresholds      alert.Thresholds
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.SampleInterval <= 0 || c.ArchiveInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, struct {
			SampleInterval  time.Duration
			ArchiveInterval time.Duration
		}{
			SampleInterval:  c.SampleInterval,
			ArchiveInterval: c.ArchiveInterval,
		})
	}
	if c.LivePath == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "live path is empty")
	}

	return c.Thresholds.Validate()
}

// Writer persists one encoded document at path, replacing any previous file.
type Writer interface {
	Write(path string, doc document.Document) error
}

// Namer picks a fresh archive path for a cycle timestamp.
type Namer interface {
	NameFor(t time.Time) (string, error)
}

type Deps struct {
	Host host.Provider
	// Weather is optional; nil disables enrichment and the weather record.
	Weather   weather.Provider
	Writer    Writer
	Namer     Namer
	Telemetry telemetry.Recorder
	Metrics   *Metrics
	Now       func() time.Time
}

// CycleResult describes what one cycle did.
type CycleResult struct {
	Timestamp   time.Time
	Alerts      alert.Set
	LiveErr     error
	Archived    bool
	ArchivePath string
	ArchiveErr  error
}

type Scheduler struct {
	cfg   Config
	deps  Deps
	state atomic.Int32

	// lastArchive is only touched by the goroutine running cycles.
	lastArchive time.Time
}

func New(cfg Config, deps Deps) *Scheduler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Telemetry == nil {
		deps.Telemetry = noopRecorder{}
	}

	return &Scheduler{
		cfg:  cfg,
		deps: deps,
	}
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// Run cycles until ctx is cancelled. The first cycle starts immediately and
// each following one is due SampleInterval after the previous cycle started.
// A cycle that overruns its slot is followed directly by the next one; missed
// slots are not replayed. Cancellation lets an in-flight cycle finish.
func (s *Scheduler) Run(ctx context.Context) error {
	errFactory := errors.New()

	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if s.deps.Host == nil || s.deps.Writer == nil || s.deps.Namer == nil {
		return errFactory.New(ErrMissingDep)
	}

	logger.Info().
		Dur("interval", s.cfg.SampleInterval).
		Dur("archive_interval", s.cfg.ArchiveInterval).
		Str("live_path", s.cfg.LivePath).
		Bool("weather", s.deps.Weather != nil).
		Msg("Publisher started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			logger.Info().Msg("Publisher stopped")
			return nil
		case <-timer.C:
		}

		// Both channels may be ready at once.
		if ctx.Err() != nil {
			continue
		}

		start := s.deps.Now()
		res := s.Cycle(context.WithoutCancel(ctx), start)
		logCycle(res)

		timer.Reset(max(s.cfg.SampleInterval-s.deps.Now().Sub(start), 0))
	}
}

// Cycle runs one publication cycle stamped with now.
func (s *Scheduler) Cycle(ctx context.Context, now time.Time) CycleResult {
	errFactory := errors.New()
	defer s.setState(StateIdle)

	if s.lastArchive.IsZero() {
		s.lastArchive = now
	}

	s.setState(StateSampling)
	snap := s.deps.Host.Sample(ctx)

	s.setState(StateEvaluating)
	alerts := alert.Evaluate(snap, s.cfg.Thresholds)

	var ws *weather.Snapshot
	if s.deps.Weather != nil {
		s.setState(StateEnriching)
		w := s.deps.Weather.Fetch(ctx)
		ws = &w
	}

	s.setState(StatePublishing)
	doc := document.Assemble(snap, alerts, ws, now)
	res := CycleResult{
		Timestamp: now,
		Alerts:    doc.Alerts,
	}

	if err := s.deps.Writer.Write(s.cfg.LivePath, doc); err != nil {
		res.LiveErr = errFactory.Wrap(ErrLiveWrite, err)
	}

	if now.Sub(s.lastArchive) >= s.cfg.ArchiveInterval {
		s.archive(ctx, doc, &res)
	}

	s.deps.Metrics.observe(res, ws != nil && !ws.OK(), s.deps.Now().Sub(now))

	return res
}

// archive writes doc to a fresh archive path. lastArchive only advances on
// success so a failed archive is retried on the next cycle.
func (s *Scheduler) archive(ctx context.Context, doc document.Document, res *CycleResult) {
	errFactory := errors.New()

	path, err := s.deps.Namer.NameFor(doc.Timestamp)
	if err != nil {
		res.ArchiveErr = errFactory.Wrap(ErrArchiveName, err)
		return
	}

	if err := s.deps.Writer.Write(path, doc); err != nil {
		res.ArchiveErr = errFactory.Wrap(ErrArchiveWrite, err)
		return
	}

	res.Archived = true
	res.ArchivePath = path
	s.lastArchive = doc.Timestamp

	if err := s.deps.Telemetry.Record(ctx, telemetry.NewEntry(doc, path)); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to record telemetry")
	}
}

func logCycle(res CycleResult) {
	var coded errors.Error

	if res.LiveErr != nil && errors.As(res.LiveErr, &coded) {
		logger.ErrorWithCode(coded).Msg("Live status write failed")
	} else {
		logger.Info().
			Str("timestamp", res.Timestamp.Format(document.TimestampLayout)).
			Strs("alerts", res.Alerts).
			Msg("Status updated")
	}

	if res.ArchiveErr != nil && errors.As(res.ArchiveErr, &coded) {
		logger.ErrorWithCode(coded).Msg("Archive write failed")
	}
	if res.Archived {
		logger.Info().Str("path", res.ArchivePath).Msg("Archive written")
	}
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, *telemetry.Entry) error { return nil }

func (noopRecorder) Close() error { return nil }
