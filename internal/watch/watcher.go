package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// mediaExtensions are the file types accepted from the inbox.
var mediaExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
	".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".flac": true, ".ogg": true,
}

// IsMediaFile reports whether the filename carries an accepted media
// extension. Shared with the HTTP upload handler so both intake paths accept
// the same formats.
func IsMediaFile(name string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(name))]
}

// IntakeFunc receives a settled media file from the inbox. It owns moving or
// copying the file; the watcher never deletes anything itself.
type IntakeFunc func(ctx context.Context, path string) error

// Watcher monitors an inbox directory for dropped media files and feeds them
// into the same intake path as an HTTP upload. This lets batch tooling or a
// network share enqueue media without touching the API.
type Watcher struct {
	inboxDir string
	intake   IntakeFunc
	log      zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	watcher *fsnotify.Watcher

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	filesProcessed atomic.Int64
	filesSkipped   atomic.Int64
}

// New creates an inbox watcher. Start must be called to begin watching.
func New(ctx context.Context, inboxDir string, intake IntakeFunc, log zerolog.Logger) *Watcher {
	wctx, cancel := context.WithCancel(ctx)
	return &Watcher{
		inboxDir:       inboxDir,
		intake:         intake,
		log:            log.With().Str("component", "inbox-watcher").Logger(),
		ctx:            wctx,
		cancel:         cancel,
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Start initializes the fsnotify watcher and begins watching. Existing files
// in the inbox are picked up by a background backfill pass.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.inboxDir, 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fsw

	if err := fsw.Add(w.inboxDir); err != nil {
		fsw.Close()
		return err
	}

	w.log.Info().Str("inbox", w.inboxDir).Msg("inbox watcher started")
	go w.watchLoop()
	go w.backfill()
	return nil
}

// Stop closes the watcher and cancels in-flight intake.
func (w *Watcher) Stop() {
	w.cancel()
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().
		Int64("files_processed", w.filesProcessed.Load()).
		Int64("files_skipped", w.filesSkipped.Load()).
		Msg("inbox watcher stopped")
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			if !IsMediaFile(event.Name) {
				continue
			}
			w.scheduleIntake(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleIntake debounces intake by 2s. Media files are large; the debounce
// coalesces Create+Write bursts and waits for the file to finish landing.
func (w *Watcher) scheduleIntake(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(2 * time.Second)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(2*time.Second, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.process(path)
	})
}

func (w *Watcher) process(path string) {
	if w.ctx.Err() != nil {
		return
	}
	if err := w.intake(w.ctx, path); err != nil {
		w.filesSkipped.Add(1)
		w.log.Warn().Err(err).Str("path", path).Msg("inbox intake failed")
		return
	}
	w.filesProcessed.Add(1)
	w.log.Info().Str("path", path).Msg("inbox file ingested")
}

// backfill picks up files that were already sitting in the inbox at startup.
func (w *Watcher) backfill() {
	var files []string
	_ = filepath.WalkDir(w.inboxDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !IsMediaFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if len(files) == 0 {
		return
	}

	w.log.Info().Int("files", len(files)).Msg("inbox backfill starting")
	for _, f := range files {
		if w.ctx.Err() != nil {
			return
		}
		w.process(f)
	}
}
