package model

import (
	"fmt"
	"strings"
)

// Role is an access level.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleFull     Role = "full"
	RoleReadOnly Role = "readonly"
)

// Roles lists every valid role, most privileged first.
var Roles = []Role{RoleAdmin, RoleFull, RoleReadOnly}

// ParseRole converts a stored or typed role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q (want admin, full or readonly)", s)
}

// Operation is an action a role may be allowed to perform on a table.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Mutates reports whether the operation changes stored data.
func (o Operation) Mutates() bool {
	return o == OpCreate || o == OpUpdate || o == OpDelete
}
