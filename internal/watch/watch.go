// Package watch discovers Phoenix station directories dropped into a watch
// directory and offers them to the pipeline once they have settled.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/magnetotellurics/phx2mth5/internal/domain"
	"github.com/magnetotellurics/phx2mth5/internal/phoenix"
)

// markerName is written into a station directory once it has been handled,
// so restarts do not reconvert finished recordings.
const markerName = ".mth5_done"

// Watcher polls a directory for station recordings. A recording is offered
// only after no file under it has changed for the settle period, which
// keeps half-copied SD card dumps out of the pipeline.
type Watcher struct {
	dir    string
	poll   time.Duration
	settle time.Duration
	clock  clockwork.Clock
	logger *slog.Logger
}

// New creates a Watcher over dir.
func New(dir string, poll, settle time.Duration, clock clockwork.Clock, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:    dir,
		poll:   poll,
		settle: settle,
		clock:  clock,
		logger: logger,
	}
}

// ExtractBatch blocks until at least one settled, unhandled recording is
// found or the context is cancelled. At most max recordings are returned.
func (w *Watcher) ExtractBatch(ctx context.Context, max int) ([]domain.Recording, error) {
	for {
		recs, err := w.scan(max)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			return recs, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-w.clock.After(w.poll):
		}
	}
}

// scan walks the watch directory once.
func (w *Watcher) scan(max int) ([]domain.Recording, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("scan watch dir %q: %w", w.dir, err)
	}

	var recs []domain.Recording
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		stationDir := filepath.Join(w.dir, e.Name())

		if _, err := os.Stat(filepath.Join(stationDir, markerName)); err == nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(stationDir, phoenix.RecMetaFileName)); err != nil {
			continue // not a station directory (yet)
		}

		settled, err := w.settled(stationDir)
		if err != nil {
			w.logger.Warn("settle check failed", "dir", stationDir, "error", err)
			continue
		}
		if !settled {
			continue
		}

		rec := domain.NewRecording(stationDir, domain.DefaultArchiveName)
		rec.Ack = func(_ context.Context) error { return w.markDone(stationDir) }
		recs = append(recs, rec)

		if max > 0 && len(recs) >= max {
			break
		}
	}
	return recs, nil
}

// settled reports whether nothing under dir has been modified within the
// settle period.
func (w *Watcher) settled(dir string) (bool, error) {
	deadline := w.clock.Now().Add(-w.settle)

	settled := true
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(deadline) {
			settled = false
			return filepath.SkipAll
		}
		return nil
	})
	return settled && err == nil, err
}

// markDone drops the handled marker into a station directory.
func (w *Watcher) markDone(stationDir string) error {
	path := filepath.Join(stationDir, markerName)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("write done marker: %w", err)
	}
	w.logger.Debug("recording marked done", "dir", stationDir)
	return nil
}
