package constant

// Principal kinds. Each kind maps to its own identity table; the auth
// pipeline itself is shared.
const (
	KindUser  = "user"
	KindAdmin = "admin"
)

// Roles, ordered by privilege. Admin identities start at RoleAdmin.
const (
	RoleUser       = "user"
	RoleEditor     = "editor"
	RoleModerator  = "moderator"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Token types carried in the `type` claim. A refresh token is never
// accepted where an access token is required, and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const (
	DefaultTokenType = "Bearer"

	// MinPasswordLength is enforced before hashing on register and
	// password change.
	MinPasswordLength = 8

	// MinSecretBytes is the minimum signing secret size. Startup fails
	// below this.
	MinSecretBytes = 32

	// SessionIDBytes of entropy per session id (256 bits, base64url
	// encoded before storage).
	SessionIDBytes = 32

	TOTPIssuer = "SafraReport"
)

var roleRank = map[string]int{
	RoleUser:       0,
	RoleEditor:     1,
	RoleModerator:  2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// RoleAtLeast reports whether role meets or exceeds the required role.
// Unknown roles never satisfy any requirement.
func RoleAtLeast(role, required string) bool {
	r, ok := roleRank[role]
	if !ok {
		return false
	}
	req, ok := roleRank[required]
	if !ok {
		return false
	}
	return r >= req
}

// ValidRole reports whether role is one of the known role names.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}
