package access

import (
	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
)

type Permission string

const (
	PermApplicationsCreate  Permission = "applications:create"
	PermApplicationsManage  Permission = "applications:manage"
	PermApplicationsApprove Permission = "applications:approve"
	PermApplicationsReject  Permission = "applications:reject"
	PermApplicationsAssign  Permission = "applications:assign"
	PermVerificationsRun    Permission = "verifications:run"
	PermPaymentsManage      Permission = "payments:manage"
	PermContactsImport      Permission = "contacts:import"
	PermContactsDelete      Permission = "contacts:delete"
)

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleCreditManager Role = "credit_manager"
	RoleAgent         Role = "agent"
	RoleViewer        Role = "viewer"
)

var rolePermissions = map[Role][]Permission{
	RoleCreditManager: {
		PermApplicationsApprove, PermApplicationsReject, PermApplicationsAssign,
		PermApplicationsManage, PermVerificationsRun, PermPaymentsManage,
		PermContactsImport, PermContactsDelete,
	},
	RoleAgent: {
		PermApplicationsCreate, PermApplicationsManage, PermVerificationsRun,
		PermPaymentsManage, PermContactsImport,
	},
	RoleViewer: nil,
}

// Principal is the authenticated caller. OrgID partitions every read and write.
type Principal struct {
	UserID string
	OrgID  string
	Role   Role
	// Extra grants on top of the role.
	Extra []Permission
}

// System is used for webhook- and worker-driven changes that have no user.
func System(orgID string) Principal {
	return Principal{UserID: "system", OrgID: orgID, Role: RoleAdmin}
}

func (p Principal) Can(perm Permission) bool {
	if p.Role == RoleAdmin {
		return true
	}
	for _, g := range rolePermissions[p.Role] {
		if g == perm {
			return true
		}
	}
	for _, g := range p.Extra {
		if g == perm {
			return true
		}
	}
	return false
}

// Require fails closed: an unauthenticated principal never passes.
func (p Principal) Require(perm Permission) error {
	if p.UserID == "" || p.OrgID == "" {
		return apperr.ErrForbidden.Msg("authentication required")
	}
	if !p.Can(perm) {
		return apperr.ErrForbidden.WithMeta(map[string]any{"permission": string(perm)})
	}
	return nil
}

// Authenticated checks identity only, for read routes.
func (p Principal) Authenticated() error {
	if p.UserID == "" || p.OrgID == "" {
		return apperr.ErrForbidden.Msg("authentication required")
	}
	return nil
}
