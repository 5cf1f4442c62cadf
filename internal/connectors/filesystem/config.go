package filesystem

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// DefaultMaxFileBytes is the per-file size cap. Larger files are
// skipped at listing time and rejected at fetch time.
const DefaultMaxFileBytes = 2 << 20

// Config holds filesystem connector configuration.
type Config struct {
	// Root is the directory to index. Required; made absolute.
	Root string

	// Include limits listing to paths matching one of these glob
	// patterns (matched against the base name and the relative path).
	// Empty means everything.
	Include []string

	// Exclude drops paths matching one of these glob patterns.
	// Exclusion wins over inclusion.
	Exclude []string

	// FollowHidden descends into dot-directories and lists dot-files.
	FollowHidden bool

	// MaxFileBytes is the per-file size cap.
	MaxFileBytes int64
}

// ParseConfig extracts configuration from a Source.
func ParseConfig(source domain.Source) (*Config, error) {
	root := strings.TrimSpace(source.Config["root"])
	if root == "" {
		return nil, fmt.Errorf("%w: filesystem source needs a root directory", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}

	cfg := &Config{
		Root:         abs,
		Include:      splitPatterns(source.Config["include"]),
		Exclude:      splitPatterns(source.Config["exclude"]),
		FollowHidden: source.Config["follow_hidden"] == "true",
		MaxFileBytes: DefaultMaxFileBytes,
	}

	if val := source.Config["max_file_bytes"]; val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			cfg.MaxFileBytes = n
		}
	}

	return cfg, nil
}

func splitPatterns(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
