package filesystem

import (
	"path"
	"strings"
)

// extMIMETypes maps file extensions to the MIME types the normaliser
// registry dispatches on. Extensions outside this table are not listed.
// Defined explicitly so .ts resolves to TypeScript rather than the
// video/mp2t the standard mime package reports.
var extMIMETypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".rst":      "text/plain",
	".adoc":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdown":    "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".epub":     "application/epub+zip",
	".eml":      "message/rfc822",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".java":     "text/x-java",
	".c":        "text/x-c",
	".h":        "text/x-c",
	".cpp":      "text/x-c++",
	".cc":       "text/x-c++",
	".hpp":      "text/x-c++",
	".rb":       "text/x-ruby",
	".sh":       "text/x-shellscript",
	".bash":     "text/x-shellscript",
	".sql":      "text/x-sql",
	".csv":      "text/csv",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".js":       "text/javascript",
	".mjs":      "text/javascript",
	".ts":       "text/typescript",
	".tsx":      "text/typescript",
	".css":      "text/css",
	".json":     "application/json",
	".xml":      "application/xml",
}

// wellKnownNames are extensionless files treated as plain text.
var wellKnownNames = map[string]string{
	"README":     "text/plain",
	"LICENSE":    "text/plain",
	"CHANGELOG":  "text/plain",
	"Makefile":   "text/plain",
	"Dockerfile": "text/plain",
}

// mimeTypeFor returns the MIME type for a slash-separated path, or the
// empty string when the file is not indexable.
func mimeTypeFor(relPath string) string {
	base := path.Base(relPath)
	if mime, ok := wellKnownNames[base]; ok {
		return mime
	}
	return extMIMETypes[strings.ToLower(path.Ext(base))]
}
