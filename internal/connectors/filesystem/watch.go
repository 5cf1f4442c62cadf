package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// watchBuffer bounds the change channel so a slow consumer does not
// stall the fsnotify event loop immediately.
const watchBuffer = 64

// Watch pushes change references for file events under the root until
// the context is cancelled. The returned channel is closed on exit.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.ChangeRef, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// fsnotify watches are not recursive; register every subdirectory.
	err = filepath.WalkDir(c.cfg.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != c.cfg.Root && c.skipName(entry.Name()) {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.cfg.Root, err)
	}

	ch := make(chan domain.ChangeRef, watchBuffer)
	go c.forwardEvents(ctx, watcher, ch)
	return ch, nil
}

func (c *Connector) forwardEvents(ctx context.Context, watcher *fsnotify.Watcher, ch chan<- domain.ChangeRef) {
	defer close(ch)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			c.handleEvent(ctx, watcher, event, ch)
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (c *Connector) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event, ch chan<- domain.ChangeRef) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !c.skipName(filepath.Base(event.Name)) {
				_ = watcher.Add(event.Name)
			}
			return
		}
	}

	rel, err := filepath.Rel(c.cfg.Root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if c.skipName(filepath.Base(rel)) || mimeTypeFor(rel) == "" || !c.accepts(rel) {
		return
	}

	var kind domain.ChangeKind
	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		kind = domain.ChangeDelete
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		kind = domain.ChangeUpsert
	default:
		return
	}

	ref := domain.ChangeRef{
		ExternalID: rel,
		Kind:       kind,
		Timestamp:  time.Now().UTC(),
		Category:   categoryDoc,
	}
	select {
	case ch <- ref:
	case <-ctx.Done():
	}
}
