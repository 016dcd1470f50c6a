// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a registered user of the service. PasswordHash is the bcrypt
// digest of the account's password; it never leaves the server — callers
// receive AccountView instead.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountView is the public projection of an Account, safe to return to
// clients.
type AccountView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// View returns the public projection of the account.
func (a *Account) View() *AccountView {
	return &AccountView{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
	}
}
