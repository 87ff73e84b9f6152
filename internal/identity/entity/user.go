package entity

import "time"

type User struct {
	ID             int64
	FirstName      string
	LastName       string
	Username       string
	Email          string
	Mobile         string
	PasswordHash   string
	EmailVerified  bool
	MobileVerified bool
	Enabled        bool
	Locked         bool
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName prefers the first name and falls back to the username.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

type NewUser struct {
	ID           int64
	FirstName    string
	LastName     string
	Username     string
	Email        string
	Mobile       string
	PasswordHash string
}

// Convergence reports what a verification flag update did.
// FlagChanged is false when the flag was already set.
// Activated is true only for the single call that enabled the account.
type Convergence struct {
	FlagChanged bool
	Activated   bool
	User        User
}

// UserTaken flags which unique fields of a registration already belong to someone.
type UserTaken struct {
	Username bool
	Email    bool
	Mobile   bool
}
