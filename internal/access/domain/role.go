// Package domain defines the access control model: roles, permissions, and
// the principal attempting an operation.
//
// The role table is static. There is no management API; changing it means
// changing this file, which keeps the mapping reviewable in one place.
package domain

// Permission names one action on tenant data.
type Permission string

const (
	PermissionReadOwnData        Permission = "read_own_data"
	PermissionWriteOwnData       Permission = "write_own_data"
	PermissionReadCustomerData   Permission = "read_customer_data"
	PermissionWriteCustomerData  Permission = "write_customer_data"
	PermissionDeleteCustomerData Permission = "delete_customer_data"
	PermissionExportCustomerData Permission = "export_customer_data"
)

// Role names a class of actor.
type Role string

const (
	// RoleCustomerUser can work with their own data inside their tenant.
	RoleCustomerUser Role = "customer_user"

	// RoleCustomerAdmin can additionally read, write, delete, and export any
	// data inside their tenant.
	RoleCustomerAdmin Role = "customer_admin"

	// RoleSystemAdmin operates the platform but holds no customer data
	// permissions. The deny is explicit: operating the system must never
	// imply reading tenant plaintext.
	RoleSystemAdmin Role = "system_admin"

	// RoleReadonlyAnalyst works exclusively with anonymized datasets and
	// holds no permissions on customer data.
	RoleReadonlyAnalyst Role = "readonly_analyst"
)

// RolePermissions is the static role to permission table.
var RolePermissions = map[Role][]Permission{
	RoleCustomerUser: {
		PermissionReadOwnData,
		PermissionWriteOwnData,
	},
	RoleCustomerAdmin: {
		PermissionReadOwnData,
		PermissionWriteOwnData,
		PermissionReadCustomerData,
		PermissionWriteCustomerData,
		PermissionDeleteCustomerData,
		PermissionExportCustomerData,
	},
	RoleSystemAdmin:     {},
	RoleReadonlyAnalyst: {},
}

// Principal is the authenticated actor attempting an operation.
type Principal struct {
	Actor    string
	TenantID string
	Role     Role
}
