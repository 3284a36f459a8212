package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a closed set of role tags a profile can carry.
type Role string

const (
	RoleStudent  Role = "student"
	RoleClassRep Role = "class-representative"
	RoleSenior   Role = "senior"
	RoleOfficial Role = "official"
	RoleAdmin    Role = "admin"
)

var ValidRoles = []Role{RoleStudent, RoleClassRep, RoleSenior, RoleOfficial, RoleAdmin}

// ParseRole maps a raw string onto the closed role set.
func ParseRole(s string) (Role, bool) {
	for _, r := range ValidRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Account status values.
const (
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// User is the durable per-principal profile stored in the users collection.
// Anonymous principals (issued by access-code redemption) carry no email or
// password hash.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Password  string             `bson:"password,omitempty" json:"-"` // bcrypt hash
	Roles     []Role             `bson:"roles" json:"roles"`
	Disabled  bool               `bson:"disabled" json:"disabled"`
	Status    string             `bson:"status" json:"status"` // active, blocked
	Anonymous bool               `bson:"anonymous,omitempty" json:"anonymous,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasRole reports whether the profile carries the given role tag.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsOfficial reports whether the profile may perform administrative actions.
// Admin implies official.
func (u *User) IsOfficial() bool {
	return u.HasRole(RoleOfficial) || u.HasRole(RoleAdmin)
}
