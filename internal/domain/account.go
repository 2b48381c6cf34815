package domain

import "time"

// Account is a sign-in identity. Outlet accounts carry the outlet name they
// submit tickets for; the admin account normally has none.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Outlet       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OutletName returns the bound outlet or an empty string.
func (a Account) OutletName() string {
	if a.Outlet == nil {
		return ""
	}
	return *a.Outlet
}
