package rbac

// Default policy. Students only ever see their own progress; handlers scope
// reads to the subject unless the role holds the matching *-all permission.
var RolePermissions = map[string][]string{
	"student": {
		"lesson:view",
		"content:view",
		"submission:create",
		"progress:view-own",
		"submission:view-own",
	},
	"teacher": {
		"lesson:*",
		"content:*",
		"progress:view-all",
		"submission:view-all",
		"submission:grade",
		"users:list",
		"events:view",
	},
	"admin": {
		"*", // everything
	},
}
