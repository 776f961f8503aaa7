package rbac

// Default role policy for the exam core. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"attempt:start",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
	},
	"instructor": {
		"exam:view",
		"exam:create",
		"question:create",
		"question:view",
		"assignment:create",
		"assignment:view",
		"attempt:view-all",
		"answer:grade",
		"stats:view",
	},
	"parent": {
		"attempt:view-children",
	},
	"admin": {
		"*", // everything
	},
}
