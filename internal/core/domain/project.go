package domain

import (
	"strings"
	"time"
)

// Project is the workspace a Drive integration and its documents belong to.
type Project struct {
	ID   string
	Name string
	// GroupEmail is the provisioned Google Group, empty until created.
	GroupEmail string
	// Admins are the identities allowed to manage the project.
	Admins    []string
	CreatedAt time.Time
}

// CanAdminister reports whether identity is one of the project's admins.
// Comparison is case-insensitive.
func (p *Project) CanAdminister(identity string) bool {
	for _, admin := range p.Admins {
		if strings.EqualFold(admin, identity) {
			return true
		}
	}
	return false
}
