package github

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// Config holds GitHub connector configuration for one repository.
type Config struct {
	// Owner is the repository owner (user or organisation). Required.
	Owner string

	// Repo is the repository name. Required.
	Repo string

	// Token is the access token used for API calls. Required; both
	// PATs and OAuth access tokens work.
	Token string

	// Branch overrides the default branch for file listing (optional).
	Branch string

	// FilePatterns limits file listing to paths matching one of these
	// glob patterns (matched against the base name and the full path).
	// Empty means every non-binary file.
	FilePatterns []string
}

// ParseConfig extracts configuration from a Source.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{
		Owner:  strings.TrimSpace(source.Config["owner"]),
		Repo:   strings.TrimSpace(source.Config["repo"]),
		Token:  strings.TrimSpace(source.Config["token"]),
		Branch: strings.TrimSpace(source.Config["branch"]),
	}

	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("%w: github source needs owner and repo", domain.ErrInvalidInput)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: github source needs a token", domain.ErrInvalidInput)
	}

	if val := source.Config["file_patterns"]; val != "" {
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.FilePatterns = append(cfg.FilePatterns, p)
			}
		}
	}

	return cfg, nil
}

// FullName returns the owner/repo form used in URLs and logs.
func (c *Config) FullName() string {
	return c.Owner + "/" + c.Repo
}
