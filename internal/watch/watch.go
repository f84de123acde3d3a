// Package watch keeps the stored spec in sync with the spec file on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/eugenenazirov/specd/internal/metrics"
	"github.com/eugenenazirov/specd/internal/specfile"
	"github.com/eugenenazirov/specd/internal/storage"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher loads a spec file into storage and reloads it when it changes.
type Watcher struct {
	path     string
	store    storage.Storage
	logger   *zap.Logger
	metrics  *metrics.Metrics
	debounce time.Duration

	done chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle before reloading.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithMetrics records load attempts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// New constructs a Watcher for path.
func New(path string, store storage.Storage, logger *zap.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		store:    store,
		logger:   logger.Named("watch"),
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Load parses the spec file and stores it.
func (w *Watcher) Load() error {
	return w.load(metrics.SourceFile)
}

// Reload re-parses the spec file. On failure the stored spec is left untouched.
// A file whose content matches the stored spec is not stored again.
func (w *Watcher) Reload() error {
	return w.load(metrics.SourceReload)
}

func (w *Watcher) load(source string) error {
	start := time.Now()
	spec, err := specfile.ParseFile(w.path)
	w.metrics.ObserveLoad(source, time.Since(start), err)
	if err != nil {
		return err
	}

	if current, getErr := w.store.Get(); getErr == nil && source == metrics.SourceReload {
		if current.Spec.Equal(spec) {
			w.logger.Debug("spec file unchanged", zap.String("path", w.path))
			return nil
		}
	}

	if err := w.store.Set(spec, source); err != nil {
		return fmt.Errorf("store spec: %w", err)
	}
	w.metrics.SetSettingsLoaded(spec.Len())
	w.logger.Info("spec loaded",
		zap.String("path", w.path),
		zap.String("source", source),
		zap.Int("settings", spec.Len()),
	)
	return nil
}

// Start begins watching the spec file. The directory is watched rather than
// the file itself so that editors and atomic writers that replace the file
// through a rename are still observed. The watch stops when ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.done = make(chan struct{})
	w.logger.Info("watching spec file", zap.String("path", w.path))

	go w.loop(ctx, fsw)
	return nil
}

// Done is closed once the watch loop has exited. It is nil before Start.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer func() {
		_ = fsw.Close()
	}()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("spec watcher stopped")
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("spec file changed", zap.String("op", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := w.Reload(); err != nil {
				level := zap.ErrorLevel
				if errors.Is(err, specfile.ErrSyntax) {
					level = zap.WarnLevel
				}
				w.logger.Log(level, "spec reload failed, keeping previous spec", zap.Error(err))
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("spec watcher error", zap.Error(err))
		}
	}
}
