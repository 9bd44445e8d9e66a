package drive

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/aganswers/drivesync/internal/connectors/google"
	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
)

// Ensure Files implements the interface.
var _ driven.DriveFiles = (*Files)(nil)

// RootFolderID addresses the root of the user's My Drive.
const RootFolderID = "root"

// DefaultTimeout bounds each Drive request unless WithTimeout overrides it.
const DefaultTimeout = 30 * time.Second

const (
	fileFields      = "id, name, mimeType, modifiedTime, md5Checksum, size"
	listFields      = "nextPageToken, files(" + fileFields + ")"
	defaultPageSize = 100
)

// Files lists Drive items on behalf of a user access token.
type Files struct {
	base     http.RoundTripper
	limiter  *google.RateLimiter
	opts     []option.ClientOption
	pageSize int64
	timeout  time.Duration
}

// NewFiles creates a Drive lister. base carries requests (typically a
// retrying transport); opts are passed to every Drive service.
func NewFiles(base http.RoundTripper, opts ...option.ClientOption) *Files {
	return &Files{
		base:     base,
		limiter:  google.NewRateLimiter(google.ServiceDrive),
		opts:     opts,
		pageSize: defaultPageSize,
		timeout:  DefaultTimeout,
	}
}

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func (f *Files) WithTimeout(d time.Duration) *Files {
	if d > 0 {
		f.timeout = d
	}
	return f
}

func (f *Files) service(ctx context.Context, accessToken string) (*drive.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	svc, err := google.NewDriveService(ctx, ts, f.base, f.opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// ListChildren returns the non-trashed direct children of a folder.
func (f *Files) ListChildren(ctx context.Context, accessToken, folderID string) ([]domain.FileMetadata, error) {
	if folderID == "" {
		folderID = RootFolderID
	}
	svc, err := f.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))
	var files []domain.FileMetadata
	pageToken := ""
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, f.timeout)
		call := svc.Files.List().
			Q(query).
			Fields(listFields).
			PageSize(f.pageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(callCtx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		cancel()
		f.limiter.Observe(err)
		if err != nil {
			return nil, google.WrapError(err)
		}

		for _, file := range page.Files {
			files = append(files, ToMetadata(file))
		}
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// GetMetadata returns one file's metadata.
func (f *Files) GetMetadata(ctx context.Context, accessToken, fileID string) (*domain.FileMetadata, error) {
	svc, err := f.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	file, err := svc.Files.Get(fileID).Fields(fileFields).SupportsAllDrives(true).Context(callCtx).Do()
	f.limiter.Observe(err)
	if err != nil {
		return nil, google.WrapError(err)
	}

	meta := ToMetadata(file)
	return &meta, nil
}

// ToMetadata converts a Drive API file to domain metadata.
func ToMetadata(file *drive.File) domain.FileMetadata {
	meta := domain.FileMetadata{
		ID:       file.Id,
		Name:     file.Name,
		MIMEType: file.MimeType,
		IsFolder: file.MimeType == domain.MimeTypeFolder,
		Size:     file.Size,
		Checksum: file.Md5Checksum,
	}
	if file.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, file.ModifiedTime); err == nil {
			meta.ModifiedTime = t
		}
	}
	return meta
}

// escapeQuery escapes a value for use inside a quoted Drive query term.
func escapeQuery(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}
