package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

// Google Workspace MIME types that can be exported.
const (
	MIMETypeGoogleDoc    = "application/vnd.google-apps.document"
	MIMETypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MIMETypeGoogleSlides = "application/vnd.google-apps.presentation"
	MIMETypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMIMEText = "text/plain"
	ExportMIMECSV  = "text/csv"
)

// MaxExportSize is the maximum size for downloaded content (5MB).
const MaxExportSize = 5 * 1024 * 1024

// binaryDocMIMEs are non-text container formats downloaded raw; their
// normalisers unpack them downstream.
var binaryDocMIMEs = map[string]bool{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/epub+zip": true,
}

// fetchPayload retrieves a file's content. Workspace files are exported
// to a text format; the returned MIME type is the effective one.
func fetchPayload(ctx context.Context, svc *drive.Service, file *drive.File) ([]byte, string, error) {
	switch file.MimeType {
	case MIMETypeGoogleDoc, MIMETypeGoogleSlides:
		payload, err := exportFile(ctx, svc, file.Id, ExportMIMEText)
		return payload, ExportMIMEText, err
	case MIMETypeGoogleSheet:
		payload, err := exportFile(ctx, svc, file.Id, ExportMIMECSV)
		return payload, ExportMIMECSV, err
	}

	if !isTextMIME(file.MimeType) && !binaryDocMIMEs[file.MimeType] {
		return nil, "", fmt.Errorf("%w: unsupported mime type %s", domain.ErrInvalidInput, file.MimeType)
	}
	if file.Size > MaxExportSize {
		return nil, "", fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, MaxExportSize)
	}

	resp, err := svc.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, MaxExportSize))
	if err != nil {
		return nil, "", fmt.Errorf("read file content: %w", err)
	}

	return payload, file.MimeType, nil
}

// exportFile exports a Google Workspace file to the given format.
func exportFile(ctx context.Context, svc *drive.Service, fileID, exportMIME string) ([]byte, error) {
	resp, err := svc.Files.Export(fileID, exportMIME).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("export file: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, MaxExportSize))
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	return payload, nil
}

// shouldIndex reports whether a listed file is worth fetching.
func shouldIndex(file *drive.File, cfg *Config) bool {
	if file.MimeType == MIMETypeFolder || file.Trashed {
		return false
	}

	// Change feed entries are not folder-scoped, so re-check here.
	if cfg.FolderID != "" && !hasParent(file, cfg.FolderID) {
		return false
	}

	if len(cfg.MIMETypes) > 0 {
		found := false
		for _, want := range cfg.MIMETypes {
			if file.MimeType == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	switch file.MimeType {
	case MIMETypeGoogleDoc, MIMETypeGoogleSheet, MIMETypeGoogleSlides:
		return true
	}
	return isTextMIME(file.MimeType) || binaryDocMIMEs[file.MimeType]
}

func hasParent(file *drive.File, folderID string) bool {
	for _, parent := range file.Parents {
		if parent == folderID {
			return true
		}
	}
	return false
}

// isTextMIME checks if a MIME type is likely text content.
func isTextMIME(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}

	switch mimeType {
	case "application/json",
		"application/xml",
		"application/javascript",
		"application/x-yaml",
		"application/x-sh",
		"application/sql":
		return true
	}
	return false
}
