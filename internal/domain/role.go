package domain

// Role is the closed set of application roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// NormalizeRole maps a stored role string onto the closed enumeration.
// The legacy value "public" predates the enumeration and maps to RoleUser,
// as does anything unrecognized.
func NormalizeRole(raw string) Role {
	switch raw {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleUser), "public":
		return RoleUser
	default:
		return RoleUser
	}
}

// Permission names an application capability gated on the resolved identity.
type Permission string

const (
	PermViewContent   Permission = "content:view"
	PermUploadContent Permission = "content:upload"
	PermManageUsers   Permission = "users:manage"
)

// HasPermission reports whether the identity may exercise the permission.
// Admins hold every permission; regular users hold content permissions only
// once approved.
func (i *Identity) HasPermission(p Permission) bool {
	if i == nil {
		return false
	}
	if i.Role == RoleAdmin {
		return true
	}
	switch p {
	case PermViewContent, PermUploadContent:
		return i.Approved
	default:
		return false
	}
}
