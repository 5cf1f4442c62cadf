// Package filesystem indexes a local directory tree. Listing walks the
// root and filters by extension, glob patterns and modification time;
// watch mode pushes change events via fsnotify.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
)

const categoryDoc = "doc"

// Connector indexes files under a configured root directory.
type Connector struct {
	sourceID string
	cfg      *Config
}

var (
	_ driven.Connector = (*Connector)(nil)
	_ driven.Watcher   = (*Connector)(nil)
)

// New creates a filesystem connector from source configuration.
func New(source domain.Source) (*Connector, error) {
	cfg, err := ParseConfig(source)
	if err != nil {
		return nil, err
	}
	return &Connector{sourceID: source.ID, cfg: cfg}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() domain.SourceType {
	return domain.SourceTypeFilesystem
}

// SourceID returns the configured source id.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns what this connector supports.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsIncremental: true,
		SupportsWatch:       true,
		EmitsDeletes:        false,
		Cursor:              driven.CursorTimestamp,
		Categories:          []string{categoryDoc},
	}
}

// Validate checks the root exists, is a directory and is readable.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.cfg.Root)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", c.cfg.Root)
	}

	dir, err := os.Open(c.cfg.Root)
	if err != nil {
		return fmt.Errorf("open root: %w", err)
	}
	defer dir.Close()
	if _, err := dir.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read root: %w", err)
	}
	return nil
}

// ListChanged walks the root and returns every indexable file modified
// after the cursor. The proposed cursor is left empty; change
// timestamps alone advance the timestamp cursor.
func (c *Connector) ListChanged(ctx context.Context, cursor string) ([]domain.ChangeRef, string, error) {
	since := parseCursor(cursor)

	var refs []domain.ChangeRef
	err := filepath.WalkDir(c.cfg.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if entry.IsDir() {
			if path != c.cfg.Root && c.skipName(entry.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || c.skipName(entry.Name()) {
			return nil
		}

		rel, err := filepath.Rel(c.cfg.Root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if mimeTypeFor(rel) == "" || !c.accepts(rel) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			// Deleted between the dir read and the stat.
			return nil
		}
		if info.Size() > c.cfg.MaxFileBytes {
			return nil
		}

		modified := info.ModTime().UTC()
		if !since.IsZero() && !modified.After(since) {
			return nil
		}

		refs = append(refs, domain.ChangeRef{
			ExternalID: rel,
			Kind:       domain.ChangeUpsert,
			Timestamp:  modified,
			Category:   categoryDoc,
		})
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("walk %s: %w", c.cfg.Root, err)
	}

	return refs, "", nil
}

// Fetch reads one file. The external id is the slash-separated path
// relative to the root.
func (c *Connector) Fetch(ctx context.Context, externalID string) (*domain.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	local := filepath.FromSlash(externalID)
	if externalID == "" || !filepath.IsLocal(local) {
		return nil, fmt.Errorf("%w: path %q escapes the source root", domain.ErrInvalidInput, externalID)
	}
	abs := filepath.Join(c.cfg.Root, local)

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", externalID, err)
	}
	if info.Size() > c.cfg.MaxFileBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)",
			domain.ErrInvalidInput, externalID, info.Size(), c.cfg.MaxFileBytes)
	}

	payload, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", externalID, err)
	}

	return &domain.RawItem{
		SourceID:   c.sourceID,
		ExternalID: externalID,
		URI:        "file://" + filepath.ToSlash(abs),
		MIMEType:   mimeTypeFor(externalID),
		Payload:    payload,
		Metadata: map[string]any{
			"file_name":   info.Name(),
			"modified_at": info.ModTime().UTC(),
			"size":        info.Size(),
		},
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Close releases resources. Watch goroutines stop with their context.
func (c *Connector) Close() error {
	return nil
}

// skipName reports whether a dot-file or dot-directory is excluded.
func (c *Connector) skipName(name string) bool {
	return !c.cfg.FollowHidden && strings.HasPrefix(name, ".")
}

// accepts applies the include and exclude globs to a relative path.
func (c *Connector) accepts(relPath string) bool {
	if matchesAny(relPath, c.cfg.Exclude) {
		return false
	}
	if len(c.cfg.Include) == 0 {
		return true
	}
	return matchesAny(relPath, c.cfg.Include)
}

// matchesAny matches a slash-separated path against glob patterns,
// trying the base name first and then the full relative path.
func matchesAny(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == "*" {
			return true
		}
		if ok, err := filepath.Match(pattern, filepath.Base(relPath)); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(pattern, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// parseCursor tolerates malformed cursors by treating them as the
// beginning, matching the domain's timestamp cursor semantics.
func parseCursor(cursor string) time.Time {
	if cursor == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, cursor)
	if err != nil {
		return time.Time{}
	}
	return t
}
