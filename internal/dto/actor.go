package dto

import "github.com/noah-isme/lms-admin-api/internal/models"

// Actor identifies the staff member behind a write. Name flows into recordedBy.
type Actor struct {
	UserID    string
	Name      string
	Role      models.UserRole
	IP        string
	UserAgent string
}

// IsSuperAdmin reports whether the actor holds the privileged tier.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == models.RoleSuperAdmin
}
