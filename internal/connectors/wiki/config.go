package wiki

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// Config holds wiki connector configuration for one space.
type Config struct {
	// BaseURL is the wiki instance root, without a trailing slash.
	// Required.
	BaseURL string

	// Space is the space key to index. Required.
	Space string

	// Token is a personal access token sent as a bearer token. Either
	// Token or the Email and APIToken pair must be set.
	Token string

	// Email and APIToken authenticate with basic auth, the scheme
	// cloud-hosted instances use.
	Email    string
	APIToken string
}

// ParseConfig extracts configuration from a Source.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := &Config{
		BaseURL:  strings.TrimRight(strings.TrimSpace(source.Config["base_url"]), "/"),
		Space:    strings.TrimSpace(source.Config["space"]),
		Token:    strings.TrimSpace(source.Config["token"]),
		Email:    strings.TrimSpace(source.Config["email"]),
		APIToken: strings.TrimSpace(source.Config["api_token"]),
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: wiki source needs a base_url", domain.ErrInvalidInput)
	}
	if cfg.Space == "" {
		return nil, fmt.Errorf("%w: wiki source needs a space key", domain.ErrInvalidInput)
	}
	if cfg.Token == "" && (cfg.Email == "" || cfg.APIToken == "") {
		return nil, fmt.Errorf("%w: wiki source needs a token, or an email and api_token pair", domain.ErrInvalidInput)
	}

	return cfg, nil
}
