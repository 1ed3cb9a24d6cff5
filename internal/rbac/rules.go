package rbac

// Simple default policy. Expand as needed. Fine-grained score reads (owner vs
// classmate, hide_final_grades) are decided by the gradebook read policy, not
// here — this table only gates the HTTP surface.
var RolePermissions = map[string][]string{
	"student": {
		"score:view",
		"user:change_password",
	},
	"teacher": {
		"course:create",
		"course:update",
		"course:enroll",
		"score:view",
		"score:update",
		"score:delete",
		"users:bulk_upsert",
		"users:list",
	},
	"admin": {
		"*", // everything
	},
}
