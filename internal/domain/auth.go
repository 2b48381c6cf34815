package domain

// Role differentiates admin and outlet principals.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleOutlet Role = "OUTLET"
)
