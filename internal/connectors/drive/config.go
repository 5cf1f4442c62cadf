package drive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// DefaultPageSize is the page size for listing requests.
const DefaultPageSize = 100

// Config holds Google Drive connector configuration.
type Config struct {
	// Token is the OAuth access token used for API calls. Required.
	Token string

	// FolderID limits syncing to the direct children of one folder
	// (optional). Empty syncs the whole drive.
	FolderID string

	// MIMETypes limits syncing to specific MIME types (optional).
	MIMETypes []string

	// PageSize is the page size for API requests.
	PageSize int64
}

// ParseConfig extracts configuration from a Source.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{
		Token:    strings.TrimSpace(source.Config["token"]),
		FolderID: strings.TrimSpace(source.Config["folder_id"]),
		PageSize: DefaultPageSize,
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: drive source needs a token", domain.ErrInvalidInput)
	}

	if val := source.Config["mime_types"]; val != "" {
		for _, m := range strings.Split(val, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.MIMETypes = append(cfg.MIMETypes, m)
			}
		}
	}

	if val := source.Config["page_size"]; val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}

	return cfg, nil
}
