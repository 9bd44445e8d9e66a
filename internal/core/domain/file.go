package domain

import (
	"path"
	"strings"
	"time"
)

// MIME types with special handling during sync.
const (
	MimeTypeFolder       = "application/vnd.google-apps.folder"
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	mimeTypeWorkspace    = "application/vnd.google-apps."
)

// ItemType distinguishes selectable Drive items.
type ItemType string

// Selectable item types.
const (
	ItemTypeFile   ItemType = "file"
	ItemTypeFolder ItemType = "folder"
)

// IsValid returns true if the item type is recognised.
func (t ItemType) IsValid() bool {
	return t == ItemTypeFile || t == ItemTypeFolder
}

// FileMetadata describes a Drive file or folder as returned by a listing.
type FileMetadata struct {
	ID           string
	Name         string
	IsFolder     bool
	MIMEType     string
	ModifiedTime time.Time
	// Size is zero for native Workspace files, which have no stored bytes.
	Size int64
	// Checksum is the provider's MD5 content checksum, when one exists.
	Checksum string
}

// VersionHint identifies the file's content version: the checksum when
// present, otherwise the modification timestamp.
func (f FileMetadata) VersionHint() string {
	if f.Checksum != "" {
		return f.Checksum
	}
	if !f.ModifiedTime.IsZero() {
		return f.ModifiedTime.UTC().Format(time.RFC3339Nano)
	}
	return ""
}

// IsWorkspaceFile reports whether the file is a native Google Workspace
// document that must be exported rather than downloaded.
func (f FileMetadata) IsWorkspaceFile() bool {
	return strings.HasPrefix(f.MIMEType, mimeTypeWorkspace) && f.MIMEType != MimeTypeFolder
}

// ExtensionFor picks the staged blob extension for a file.
// The name's own extension wins; otherwise it is inferred from the MIME
// type, with Workspace files taking the extension of their export format.
// Anything unrecognised is staged as .txt.
func ExtensionFor(name, mimeType string) string {
	if ext := path.Ext(name); ext != "" && ext != "." {
		return strings.ToLower(ext)
	}

	switch {
	case mimeType == MimeTypeGoogleSheet:
		return ".csv"
	case mimeType == MimeTypeGoogleDoc:
		return ".txt"
	case strings.HasPrefix(mimeType, mimeTypeWorkspace):
		return ".pdf"
	case strings.Contains(mimeType, "pdf"):
		return ".pdf"
	case strings.Contains(mimeType, "wordprocessingml"), strings.Contains(mimeType, "msword"):
		return ".docx"
	case strings.Contains(mimeType, "spreadsheetml"), strings.Contains(mimeType, "ms-excel"):
		return ".xlsx"
	case strings.Contains(mimeType, "presentationml"), strings.Contains(mimeType, "ms-powerpoint"):
		return ".pptx"
	case mimeType == "text/csv":
		return ".csv"
	default:
		return ".txt"
	}
}
