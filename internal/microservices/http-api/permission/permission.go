// Package permission holds the access rules of the API as pure predicates over
// (action, caller, owner). Handlers and services ask; nothing here touches storage.
package permission

import (
	"net/http"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
)

type Action int

const (
	Read Action = iota
	Write
)

// ActionFor classifies an HTTP method. GET, HEAD and OPTIONS are reads.
func ActionFor(method string) Action {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return Read
	}
	return Write
}

// Caller is the authenticated identity behind a request. A nil *Caller is anonymous.
type Caller struct {
	UserID      int64
	Username    string
	Role        models.Role
	IsSuperuser bool
}

// CallerFromUser builds a Caller from a stored account.
func CallerFromUser(u *models.User) *Caller {
	if u == nil {
		return nil
	}
	return &Caller{
		UserID:      u.ID,
		Username:    u.Username,
		Role:        u.Role,
		IsSuperuser: u.IsSuperuser,
	}
}

func (c *Caller) Authenticated() bool {
	return c != nil && c.UserID != 0
}

// IsAdmin is true for the admin role and for superusers.
func (c *Caller) IsAdmin() bool {
	return c.Authenticated() && (c.Role == models.RoleAdmin || c.IsSuperuser)
}

// IsModerator is true for moderators and everything above them.
func (c *Caller) IsModerator() bool {
	return c.Authenticated() && (c.Role == models.RoleModerator || c.IsAdmin())
}

// CanManageCatalog guards categories, genres and titles: anyone reads, admins write.
func CanManageCatalog(a Action, c *Caller) bool {
	return a == Read || c.IsAdmin()
}

// CanCreateContent guards review and comment collections: anyone reads,
// any authenticated caller posts.
func CanCreateContent(a Action, c *Caller) bool {
	return a == Read || c.Authenticated()
}

// CanModifyContent guards a single review or comment owned by ownerID.
func CanModifyContent(a Action, c *Caller, ownerID int64) bool {
	if a == Read {
		return true
	}
	if !c.Authenticated() {
		return false
	}
	return c.UserID == ownerID || c.IsModerator()
}

// CanManageUsers guards the user-management endpoints.
func CanManageUsers(c *Caller) bool {
	return c.IsAdmin()
}

// CanEditProfile allows a caller to read or update their own profile; admins may touch any.
func CanEditProfile(c *Caller, profileID int64) bool {
	if !c.Authenticated() {
		return false
	}
	return c.UserID == profileID || c.IsAdmin()
}

// CanChangeRole is the only path to a role change.
func CanChangeRole(c *Caller) bool {
	return c.IsAdmin()
}
