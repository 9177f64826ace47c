package domain

import "time"

// Role enumerates the fixed set of account roles. Roles are immutable after
// registration and validated at the boundary; an unknown role string is
// rejected rather than silently matching nothing.
type Role string

const (
	RoleSupplier Role = "supplier"
	RoleDriver   Role = "driver"
	RoleConsumer Role = "consumer"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a raw role string against the closed enum.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleSupplier, RoleDriver, RoleConsumer, RoleAdmin:
		return Role(raw), true
	default:
		return "", false
	}
}

// User is the domain model for every account type in the system.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Phone        *string
	Address      *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
