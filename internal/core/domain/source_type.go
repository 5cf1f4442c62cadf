package domain

// SourceType identifies which connector implementation serves a source.
type SourceType string

// Supported source types.
const (
	// SourceTypeGitHub syncs repository doc files, wiki pages and issues.
	SourceTypeGitHub SourceType = "github"

	// SourceTypeWiki syncs pages from a Confluence-compatible wiki.
	SourceTypeWiki SourceType = "wiki"

	// SourceTypeDrive syncs documents from a Google Drive folder.
	SourceTypeDrive SourceType = "drive"

	// SourceTypeFilesystem syncs files from a local directory tree.
	SourceTypeFilesystem SourceType = "filesystem"
)

// AllSourceTypes returns every supported source type.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeGitHub,
		SourceTypeWiki,
		SourceTypeDrive,
		SourceTypeFilesystem,
	}
}

// IsValid reports whether the source type is supported.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeGitHub, SourceTypeWiki, SourceTypeDrive, SourceTypeFilesystem:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// Description returns a human-readable description for CLI output.
func (t SourceType) Description() string {
	switch t {
	case SourceTypeGitHub:
		return "GitHub repository (docs, wiki, issues)"
	case SourceTypeWiki:
		return "Confluence-compatible wiki"
	case SourceTypeDrive:
		return "Google Drive folder"
	case SourceTypeFilesystem:
		return "Local directory"
	default:
		return "Unknown"
	}
}
