// Package rbac maps role names to permission sets. It is pure and safe for
// concurrent use; callers gate access by calling HasPermission explicitly.
package rbac

import (
	"slices"
	"strings"
)

// Wildcard grants every permission.
const Wildcard = "*"

// Role names as stored against users.
const (
	SuperAdmin = "SUPER_ADMIN"
	Admin      = "ADMIN"
	Cashier    = "CAJERO"
	Cook       = "COCINERO"
	Waiter     = "MESERO"
	Courier    = "REPARTIDOR"
	Customer   = "CLIENTE"
)

// DefaultRole is assigned on registration and assumed at login when a user
// has no roles at all.
const DefaultRole = Customer

// Permissions understood by the rest of the system.
const (
	PermProfileRead      = "profile:read"
	PermProfileUpdate    = "profile:update"
	PermMenuRead         = "menu:read"
	PermMenuManage       = "menu:manage"
	PermOrdersRead       = "orders:read"
	PermOrdersCreate     = "orders:create"
	PermOrdersUpdate     = "orders:update"
	PermKitchenRead      = "kitchen:read"
	PermKitchenUpdate    = "kitchen:update"
	PermCashOpen         = "cash:open"
	PermCashClose        = "cash:close"
	PermReportsRead      = "reports:read"
	PermDeliveriesRead   = "deliveries:read"
	PermDeliveriesUpdate = "deliveries:update"
	PermUsersRead        = "users:read"
	PermUsersManage      = "users:manage"
	PermUsersManageRoles = "users:manage_roles"
)

var permissions = map[string][]string{
	SuperAdmin: {Wildcard},
	Admin: {
		PermProfileRead, PermProfileUpdate,
		PermMenuRead, PermMenuManage,
		PermOrdersRead, PermOrdersCreate, PermOrdersUpdate,
		PermKitchenRead,
		PermCashOpen, PermCashClose,
		PermReportsRead,
		PermDeliveriesRead,
		PermUsersRead, PermUsersManage, PermUsersManageRoles,
	},
	Cashier: {
		PermProfileRead, PermProfileUpdate,
		PermMenuRead,
		PermOrdersRead, PermOrdersCreate, PermOrdersUpdate,
		PermCashOpen, PermCashClose,
	},
	Cook: {
		PermProfileRead, PermProfileUpdate,
		PermMenuRead,
		PermOrdersRead,
		PermKitchenRead, PermKitchenUpdate,
	},
	Waiter: {
		PermProfileRead, PermProfileUpdate,
		PermMenuRead,
		PermOrdersRead, PermOrdersCreate, PermOrdersUpdate,
	},
	Courier: {
		PermProfileRead, PermProfileUpdate,
		PermOrdersRead,
		PermDeliveriesRead, PermDeliveriesUpdate,
	},
	Customer: {
		PermProfileRead, PermProfileUpdate,
		PermMenuRead,
		PermOrdersCreate,
	},
}

// Known reports whether role is a defined role name.
func Known(role string) bool {
	_, ok := permissions[Normalize(role)]
	return ok
}

// Roles returns every defined role name, sorted.
func Roles() []string {
	out := make([]string, 0, len(permissions))
	for r := range permissions {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Normalize upper-cases and trims a role name.
func Normalize(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}

// Resolve returns the union of the permissions granted by roles, sorted and
// without duplicates. Any role carrying the wildcard collapses the result
// to ["*"]. Unknown roles grant nothing.
func Resolve(roles []string) []string {
	seen := make(map[string]struct{})
	for _, r := range roles {
		for _, p := range permissions[Normalize(r)] {
			if p == Wildcard {
				return []string{Wildcard}
			}
			seen[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// HasPermission reports whether granted covers every required permission.
// An empty required set is always satisfied.
func HasPermission(granted []string, required ...string) bool {
	if slices.Contains(granted, Wildcard) {
		return true
	}
	for _, r := range required {
		if !slices.Contains(granted, r) {
			return false
		}
	}
	return true
}

// HasAnyRole reports whether have shares at least one role with want.
func HasAnyRole(have []string, want ...string) bool {
	for _, h := range have {
		h = Normalize(h)
		for _, w := range want {
			if h == Normalize(w) {
				return true
			}
		}
	}
	return false
}

// WithDefault returns roles normalized and deduplicated, or [DefaultRole]
// when roles is empty.
func WithDefault(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = Normalize(r)
		if r == "" || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return []string{DefaultRole}
	}
	return out
}
