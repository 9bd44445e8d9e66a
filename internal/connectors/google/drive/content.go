package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/drive/v3"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
	ExportMimePDF  = "application/pdf"
)

// ExportMIMEType picks the export format for a Workspace file:
// spreadsheets as CSV, documents as plain text, everything else as PDF.
func ExportMIMEType(mimeType string) string {
	switch mimeType {
	case domain.MimeTypeGoogleSheet:
		return ExportMimeCSV
	case domain.MimeTypeGoogleDoc:
		return ExportMimeText
	default:
		return ExportMimePDF
	}
}

// Fetch downloads a file's bytes, exporting Workspace files.
// Content longer than maxBytes fails with domain.ErrFileTooLarge;
// maxBytes <= 0 disables the limit.
func Fetch(ctx context.Context, svc *drive.Service, fileID, mimeType string, maxBytes int64) ([]byte, error) {
	file := domain.FileMetadata{ID: fileID, MIMEType: mimeType}

	var (
		resp *http.Response
		err  error
	)
	if file.IsWorkspaceFile() {
		resp, err = svc.Files.Export(fileID, ExportMIMEType(mimeType)).Context(ctx).Download()
	} else {
		resp, err = svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	}
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrFileTooLarge, fileID, maxBytes)
	}
	return data, nil
}
