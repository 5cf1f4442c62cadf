package github

import (
	"mime"
	"path/filepath"
	"strings"
)

// maxFileBytes is the per-file size cap for repository blobs.
const maxFileBytes = 1024 * 1024

// extMIMETypes maps file extensions to MIME types for common types not
// in Go's registry.
var extMIMETypes = map[string]string{
	".md": "text/markdown", ".markdown": "text/markdown",
	".go": "text/x-go", ".py": "text/x-python", ".rs": "text/x-rust",
	".ts": "text/typescript", ".tsx": "text/typescript",
	".yaml": "text/yaml", ".yml": "text/yaml", ".toml": "text/toml",
	".sh": "text/x-shellscript", ".bash": "text/x-shellscript",
	".sql": "text/x-sql", ".rb": "text/x-ruby", ".java": "text/x-java",
	".c": "text/x-c", ".h": "text/x-c", ".cpp": "text/x-c++",
}

// detectFileMIMEType determines the MIME type from a file extension.
func detectFileMIMEType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "text/plain"
	}

	// Check our custom mappings first (avoids Go's mime returning
	// video/mp2t for .ts).
	if t, ok := extMIMETypes[strings.ToLower(ext)]; ok {
		return t
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType != "" {
		if idx := strings.Index(mimeType, ";"); idx != -1 {
			mimeType = strings.TrimSpace(mimeType[:idx])
		}
		return mimeType
	}

	return "text/plain"
}

// matchesPatterns checks if a path matches any of the glob patterns.
// Empty patterns match everything.
func matchesPatterns(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
		// Also try matching against the full path.
		matched, err = filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// isBinaryExtension checks if a file extension indicates a binary file.
func isBinaryExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	binaryExts := map[string]bool{
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".7z": true,
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".webp": true,
		".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
		".mp3": true, ".mp4": true, ".avi": true, ".mov": true,
		".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
		".bin": true, ".dat": true, ".db": true, ".sqlite": true,
		".pyc": true, ".pyo": true, ".class": true, ".o": true, ".a": true,
	}
	return binaryExts[ext]
}
