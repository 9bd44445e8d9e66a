package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aganswers/drivesync/internal/connectors/google"
	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/logger"
	"github.com/aganswers/drivesync/internal/retry"
)

// Ensure Client implements the interfaces.
var (
	_ driven.GroupDirectory = (*Client)(nil)
	_ driven.ContentFetcher = (*Client)(nil)
)

const (
	// maxCreateAttempts bounds group creation under name collisions.
	maxCreateAttempts = 5

	// RoleOwner is the directory role granted to the admin identity.
	RoleOwner = "OWNER"

	sharedWithMeQuery = "sharedWithMe = true and trashed = false"
)

// Config configures the group client.
type Config struct {
	// AdminEmail is the administrative identity added to every group.
	AdminEmail string
	// Domain is the organisation domain groups are created in.
	Domain string
	// MaxFileSize bounds content downloads. Zero means unlimited.
	MaxFileSize int64
	// MetadataTimeout bounds each directory, listing and permission call.
	MetadataTimeout time.Duration
	// DownloadTimeout bounds each content download or export.
	DownloadTimeout time.Duration
	// Policy is applied to every new group.
	Policy GroupPolicy
}

// Default call timeouts, used when Config leaves them zero.
const (
	DefaultMetadataTimeout = 30 * time.Second
	DefaultDownloadTimeout = 5 * time.Minute
)

func (c Config) metadataTimeout() time.Duration {
	if c.MetadataTimeout > 0 {
		return c.MetadataTimeout
	}
	return DefaultMetadataTimeout
}

func (c Config) downloadTimeout() time.Duration {
	if c.DownloadTimeout > 0 {
		return c.DownloadTimeout
	}
	return DefaultDownloadTimeout
}

// Client is the Group Directory Client.
type Client struct {
	dir   DirectoryAPI
	drive DriveAPI
	cfg   Config

	// memberRetry absorbs the directory's delay between group creation
	// and group visibility.
	memberRetry retry.Policy
	suffix      func() string
}

// NewClient creates a group client over the given APIs.
func NewClient(dir DirectoryAPI, drv DriveAPI, cfg Config) *Client {
	return &Client{
		dir:         dir,
		drive:       drv,
		cfg:         cfg,
		memberRetry: retry.Policy{MaxAttempts: 5, BackoffFactor: time.Second},
		suffix:      randomHex,
	}
}

// NewClientFromServices creates a group client backed by Google services.
func NewClientFromServices(svcs *google.Services, cfg Config) *Client {
	return NewClient(NewDirectoryAPI(svcs.Directory, svcs.Settings), NewDriveAPI(svcs.Drive), cfg)
}

// CreateProjectGroup creates the project's group and returns its email.
// A taken address is retried with a random suffix, up to five attempts.
// Adding the admin as owner and applying the group policy are best effort.
func (c *Client) CreateProjectGroup(ctx context.Context, projectName string) (string, error) {
	slug := SanitizeName(projectName)
	displayName := fmt.Sprintf("%s Project Group", projectName)
	description := fmt.Sprintf("Files shared with this group are synced into project %q.", projectName)

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		local := slug
		if attempt > 0 {
			local = slug + "-" + c.suffix()
		}
		email := fmt.Sprintf("%s-drive@%s", local, c.cfg.Domain)

		callCtx, cancel := c.callContext(ctx)
		outcome, err := c.dir.InsertGroup(callCtx, email, displayName, description)
		cancel()
		switch outcome {
		case OutcomeOK:
			logger.Info("created group %s for project %q", email, projectName)
			if _, err := c.addAdmin(ctx, email); err != nil {
				logger.Warn("group %s: could not add %s as owner: %v", email, c.cfg.AdminEmail, err)
			}
			c.configureSettings(ctx, email)
			return email, nil
		case OutcomeAlreadyExists:
			logger.Debug("group %s already exists, retrying with suffix", email)
			continue
		default:
			if err == nil {
				err = fmt.Errorf("unexpected outcome %s", outcome)
			}
			return "", fmt.Errorf("create group %s: %w", email, err)
		}
	}
	return "", fmt.Errorf("create group for project %q: %w", projectName, domain.ErrExhaustedRetries)
}

// addAdmin adds the admin identity as owner, retrying while the new
// group is not yet visible. An existing membership counts as success.
func (c *Client) addAdmin(ctx context.Context, groupEmail string) (bool, error) {
	outcome, err := retry.Do(ctx, c.memberRetry,
		func(ctx context.Context) (Outcome, error) {
			ctx, cancel := c.callContext(ctx)
			defer cancel()
			return c.dir.InsertMember(ctx, groupEmail, c.cfg.AdminEmail, RoleOwner)
		},
		func(o Outcome, _ error) bool { return o == OutcomeNotFound },
	)
	switch outcome {
	case OutcomeOK:
		return true, nil
	case OutcomeAlreadyExists:
		return false, nil
	case OutcomeNotFound:
		return false, fmt.Errorf("group %s: %w", groupEmail, domain.ErrNotFound)
	default:
		return false, err
	}
}

// configureSettings applies the group policy; failures are only logged.
func (c *Client) configureSettings(ctx context.Context, groupEmail string) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	if err := c.dir.PatchSettings(ctx, groupEmail, c.cfg.Policy); err != nil {
		logger.Warn("group %s: could not apply settings: %v", groupEmail, err)
	}
}

// EnsureAdminIsMember adds the admin identity as owner if it is not
// already a member. Returns true when membership was added.
func (c *Client) EnsureAdminIsMember(ctx context.Context, groupEmail string) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	members, err := c.dir.ListMembers(callCtx, groupEmail)
	cancel()
	if err != nil {
		return false, fmt.Errorf("list members of %s: %w", groupEmail, err)
	}
	for _, m := range members {
		if strings.EqualFold(m.Email, c.cfg.AdminEmail) {
			return false, nil
		}
	}
	return c.addAdmin(ctx, groupEmail)
}

// DeleteProjectGroup deletes a group. Returns false when it did not exist.
func (c *Client) DeleteProjectGroup(ctx context.Context, groupEmail string) (bool, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	outcome, err := c.dir.DeleteGroup(ctx, groupEmail)
	switch outcome {
	case OutcomeOK:
		logger.Info("deleted group %s", groupEmail)
		return true, nil
	case OutcomeNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("delete group %s: %w", groupEmail, err)
	}
}

// ListFilesSharedWithGroup returns the files visible to the admin identity
// that carry an active permission for the group. Files whose permissions
// cannot be read are skipped.
func (c *Client) ListFilesSharedWithGroup(ctx context.Context, groupEmail string) ([]domain.FileMetadata, error) {
	var shared []domain.FileMetadata
	pageToken := ""
	for {
		callCtx, cancel := c.callContext(ctx)
		files, next, err := c.drive.ListFiles(callCtx, sharedWithMeQuery, pageToken)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("list files shared with %s: %w", groupEmail, err)
		}

		for _, f := range files {
			ok, err := c.sharedWith(ctx, f.ID, groupEmail)
			if err != nil {
				if errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound) {
					logger.Debug("skipping inaccessible file %s: %v", f.ID, err)
					continue
				}
				return nil, fmt.Errorf("permissions of %s: %w", f.ID, err)
			}
			if ok {
				shared = append(shared, f)
			}
		}

		if next == "" {
			return shared, nil
		}
		pageToken = next
	}
}

func (c *Client) sharedWith(ctx context.Context, fileID, groupEmail string) (bool, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	perms, err := c.drive.ListPermissions(ctx, fileID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Type == "group" && !p.Deleted && strings.EqualFold(p.EmailAddress, groupEmail) {
			return true, nil
		}
	}
	return false, nil
}

// FetchContent downloads or exports a file, bounded by MaxFileSize and
// DownloadTimeout. Content over the ceiling fails with domain.ErrFileTooLarge.
func (c *Client) FetchContent(ctx context.Context, fileID, mimeType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.downloadTimeout())
	defer cancel()

	data, err := c.drive.Fetch(ctx, fileID, mimeType, c.cfg.MaxFileSize)
	if err != nil {
		logger.Warn("fetch content of %s (%s): %v", fileID, mimeType, err)
		return nil, fmt.Errorf("fetch %s: %w", fileID, err)
	}
	return data, nil
}

// callContext bounds one metadata call.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.metadataTimeout())
}
