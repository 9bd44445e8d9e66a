package groups

import (
	"context"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// Outcome tags the result of a provider call whose failure modes include
// expected, non-exceptional answers.
type Outcome int

const (
	// OutcomeOK means the call succeeded: the resource was created,
	// changed or deleted.
	OutcomeOK Outcome = iota
	// OutcomeAlreadyExists means the resource was already present.
	OutcomeAlreadyExists
	// OutcomeNotFound means the target resource does not exist (yet).
	OutcomeNotFound
	// OutcomeFailed means the call failed; the accompanying error says why.
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Member is a group member.
type Member struct {
	Email string
	Role  string
}

// Permission is a Drive permission grant on a file.
type Permission struct {
	Type         string
	EmailAddress string
	Deleted      bool
}

// DirectoryAPI is the subset of the Admin Directory and Groups Settings
// APIs the client needs.
type DirectoryAPI interface {
	InsertGroup(ctx context.Context, email, name, description string) (Outcome, error)
	DeleteGroup(ctx context.Context, email string) (Outcome, error)
	InsertMember(ctx context.Context, groupEmail, memberEmail, role string) (Outcome, error)
	ListMembers(ctx context.Context, groupEmail string) ([]Member, error)
	PatchSettings(ctx context.Context, groupEmail string, settings GroupPolicy) error
}

// DriveAPI is the subset of the Drive API the client needs.
type DriveAPI interface {
	// ListFiles returns one page of files matching query.
	ListFiles(ctx context.Context, query, pageToken string) ([]domain.FileMetadata, string, error)
	// ListPermissions returns every permission on a file.
	ListPermissions(ctx context.Context, fileID string) ([]Permission, error)
	// Fetch downloads or exports a file, bounded by maxBytes.
	Fetch(ctx context.Context, fileID, mimeType string, maxBytes int64) ([]byte, error)
}

// GroupPolicy is the access policy applied to every project group.
type GroupPolicy struct {
	AllowExternalMembers bool
	WhoCanJoin           string
	WhoCanViewMembership string
	WhoCanViewGroup      string
	WhoCanPostMessage    string
	AllowWebPosting      bool
}

// DefaultGroupPolicy keeps project groups closed: invite-only, members-only
// visibility, no outside members and no web posting.
func DefaultGroupPolicy() GroupPolicy {
	return GroupPolicy{
		AllowExternalMembers: false,
		WhoCanJoin:           "INVITED_CAN_JOIN",
		WhoCanViewMembership: "ALL_MEMBERS_CAN_VIEW",
		WhoCanViewGroup:      "ALL_MEMBERS_CAN_VIEW",
		WhoCanPostMessage:    "ALL_MANAGERS_CAN_POST",
		AllowWebPosting:      false,
	}
}
