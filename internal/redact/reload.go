package redact

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/fsnotify/fsnotify"
)

// Reloader watches a redaction config file and hot-swaps the rule set on
// change, so long-lived clients pick up new patterns without a restart.
type Reloader struct {
	watcher  *fsnotify.Watcher
	redactor *Redactor
	path     string
}

// NewReloader creates a file watcher for the given config path. The file
// must exist at watch time.
func NewReloader(redactor *Redactor, path string) (*Reloader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("redact config %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}
	return &Reloader{watcher: watcher, redactor: redactor, path: path}, nil
}

// Run watches for file changes and reloads rules. Blocks until ctx is
// cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	log := clog.FromContext(ctx)

	// Debounce: wait 500ms after the last write before reloading.
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := r.reload(); err != nil {
						log.Warn("redact config hot-reload failed", "path", r.path, "error", err)
					} else {
						log.Info("redact config reloaded", "path", r.path)
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("redact config watcher error", "error", err)
		}
	}
}

func (r *Reloader) reload() error {
	cfg, err := LoadConfig(r.path)
	if err != nil {
		return err
	}
	rules, err := Compile(cfg)
	if err != nil {
		return err
	}
	r.redactor.SetRules(rules)
	return nil
}
