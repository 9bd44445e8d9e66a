package groups

import (
	"context"
	"strconv"

	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/groupssettings/v1"

	"github.com/aganswers/drivesync/internal/connectors/google"
	gdrive "github.com/aganswers/drivesync/internal/connectors/google/drive"
	"github.com/aganswers/drivesync/internal/core/domain"
)

const (
	sharedFilesPageSize = 100
	sharedFileFields    = "nextPageToken, files(id, name, mimeType, modifiedTime, md5Checksum, size)"
	permissionFields    = "nextPageToken, permissions(id, type, emailAddress, deleted)"
)

// Ensure the Google adapters implement the interfaces.
var (
	_ DirectoryAPI = (*googleDirectory)(nil)
	_ DriveAPI     = (*googleDrive)(nil)
)

// googleDirectory implements DirectoryAPI with the Admin SDK.
type googleDirectory struct {
	dir      *admin.Service
	settings *groupssettings.Service
	limiter  *google.RateLimiter
	sLimiter *google.RateLimiter
}

// NewDirectoryAPI wraps Admin Directory and Groups Settings services.
func NewDirectoryAPI(dir *admin.Service, settings *groupssettings.Service) DirectoryAPI {
	return &googleDirectory{
		dir:      dir,
		settings: settings,
		limiter:  google.NewRateLimiter(google.ServiceDirectory),
		sLimiter: google.NewRateLimiter(google.ServiceGroupsSettings),
	}
}

// outcomeOf classifies an API error into an outcome.
func outcomeOf(err error) (Outcome, error) {
	switch {
	case err == nil:
		return OutcomeOK, nil
	case google.IsConflict(err):
		return OutcomeAlreadyExists, nil
	case google.IsNotFound(err):
		return OutcomeNotFound, nil
	default:
		return OutcomeFailed, google.WrapError(err)
	}
}

func (g *googleDirectory) InsertGroup(ctx context.Context, email, name, description string) (Outcome, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return OutcomeFailed, err
	}
	_, err := g.dir.Groups.Insert(&admin.Group{
		Email:       email,
		Name:        name,
		Description: description,
	}).Context(ctx).Do()
	g.limiter.Observe(err)
	return outcomeOf(err)
}

func (g *googleDirectory) DeleteGroup(ctx context.Context, email string) (Outcome, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return OutcomeFailed, err
	}
	err := g.dir.Groups.Delete(email).Context(ctx).Do()
	g.limiter.Observe(err)
	return outcomeOf(err)
}

func (g *googleDirectory) InsertMember(ctx context.Context, groupEmail, memberEmail, role string) (Outcome, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return OutcomeFailed, err
	}
	_, err := g.dir.Members.Insert(groupEmail, &admin.Member{Email: memberEmail, Role: role}).Context(ctx).Do()
	g.limiter.Observe(err)
	return outcomeOf(err)
}

func (g *googleDirectory) ListMembers(ctx context.Context, groupEmail string) ([]Member, error) {
	var members []Member
	err := g.dir.Members.List(groupEmail).Pages(ctx, func(page *admin.Members) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		for _, m := range page.Members {
			members = append(members, Member{Email: m.Email, Role: m.Role})
		}
		return nil
	})
	g.limiter.Observe(err)
	if err != nil {
		return nil, google.WrapError(err)
	}
	return members, nil
}

func (g *googleDirectory) PatchSettings(ctx context.Context, groupEmail string, p GroupPolicy) error {
	if err := g.sLimiter.Wait(ctx); err != nil {
		return err
	}
	_, err := g.settings.Groups.Patch(groupEmail, &groupssettings.Groups{
		AllowExternalMembers: strconv.FormatBool(p.AllowExternalMembers),
		WhoCanJoin:           p.WhoCanJoin,
		WhoCanViewMembership: p.WhoCanViewMembership,
		WhoCanViewGroup:      p.WhoCanViewGroup,
		WhoCanPostMessage:    p.WhoCanPostMessage,
		AllowWebPosting:      strconv.FormatBool(p.AllowWebPosting),
	}).Context(ctx).Do()
	g.sLimiter.Observe(err)
	return google.WrapError(err)
}

// googleDrive implements DriveAPI with the Drive v3 API.
type googleDrive struct {
	svc     *drive.Service
	limiter *google.RateLimiter
}

// NewDriveAPI wraps a service-account Drive service.
func NewDriveAPI(svc *drive.Service) DriveAPI {
	return &googleDrive{svc: svc, limiter: google.NewRateLimiter(google.ServiceDrive)}
}

func (g *googleDrive) ListFiles(ctx context.Context, query, pageToken string) ([]domain.FileMetadata, string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	call := g.svc.Files.List().
		Q(query).
		Fields(sharedFileFields).
		PageSize(sharedFilesPageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	page, err := call.Do()
	g.limiter.Observe(err)
	if err != nil {
		return nil, "", google.WrapError(err)
	}

	files := make([]domain.FileMetadata, 0, len(page.Files))
	for _, f := range page.Files {
		files = append(files, gdrive.ToMetadata(f))
	}
	return files, page.NextPageToken, nil
}

func (g *googleDrive) ListPermissions(ctx context.Context, fileID string) ([]Permission, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var perms []Permission
	err := g.svc.Permissions.List(fileID).
		Fields(permissionFields).
		SupportsAllDrives(true).
		Pages(ctx, func(page *drive.PermissionList) error {
			for _, p := range page.Permissions {
				perms = append(perms, Permission{Type: p.Type, EmailAddress: p.EmailAddress, Deleted: p.Deleted})
			}
			return nil
		})
	g.limiter.Observe(err)
	if err != nil {
		return nil, google.WrapError(err)
	}
	return perms, nil
}

func (g *googleDrive) Fetch(ctx context.Context, fileID, mimeType string, maxBytes int64) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	data, err := gdrive.Fetch(ctx, g.svc, fileID, mimeType, maxBytes)
	g.limiter.Observe(err)
	return data, err
}
