package models

import "time"

type UserRole string

const (
	RoleMember UserRole = "member"
	RoleAdmin  UserRole = "admin"
)

var roleTier = map[UserRole]int{
	RoleMember: 1,
	RoleAdmin:  2,
}

func IsValidRole(role UserRole) bool {
	_, ok := roleTier[role]
	return ok
}

// HasAtLeast reports whether any of the given roles meets the required tier.
func HasAtLeast(roles []UserRole, required UserRole) bool {
	need, ok := roleTier[required]
	if !ok {
		return false
	}
	for _, role := range roles {
		if tier, ok := roleTier[role]; ok && tier >= need {
			return true
		}
	}
	return false
}

type User struct {
	ID        string     `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	FirstName string     `json:"first_name" db:"first_name"`
	LastName  string     `json:"last_name" db:"last_name"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	Roles     []UserRole `json:"roles" db:"roles"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
