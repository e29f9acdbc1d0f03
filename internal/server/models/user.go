// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/common"
)

// Role governs authorization decisions.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleUser        Role = "user"
	RoleEditor      Role = "editor"
	RoleChiefEditor Role = "chiefeditor"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleUser, RoleEditor, RoleChiefEditor}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole converts s to a Role. Unknown values yield common.ErrorInvalidInput.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: role %q is not valid", common.ErrorInvalidInput, s)
	}
	return r, nil
}

// User is a directory record. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	ProfileImage *string   `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// WithoutSecrets returns a copy of u with the password hash cleared.
func (u *User) WithoutSecrets() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}

// UserPatch lists the mutable columns. Nil fields are left untouched.
// Id and email are immutable after creation.
type UserPatch struct {
	Name         *string
	ProfileImage *string
	PasswordHash *string
	Role         *Role
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.ProfileImage == nil && p.PasswordHash == nil && p.Role == nil
}

// NormalizeEmail is the single place emails are case-folded.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
