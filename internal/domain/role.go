package domain

// Role names carried in the JWT role claim.
const (
	RoleAdmin             = "Admin"
	RoleOrganizationAdmin = "OrganisationAdmin"
	RoleUser              = "User"
)

// Actor is the authenticated caller on whose behalf a service operation runs.
type Actor struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin reports whether the actor is a platform administrator. Platform
// administrators bypass organization-level authorization.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// SystemActor is used by background jobs.
var SystemActor = Actor{UserID: "system", Email: "system@yoma.world", Role: RoleAdmin}
