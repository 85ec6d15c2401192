// Package models defines server-side data models persisted in the credential
// store and exchanged between the service and transport layers.
package models

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserPublicView is the part of a User that may be returned to callers.
type UserPublicView struct {
	ID       int64  `json:"id"`
	UserName string `json:"username"`
	Email    string `json:"email"`
}

// Public strips the password hash.
func (u *User) Public() *UserPublicView {
	return &UserPublicView{ID: u.ID, UserName: u.UserName, Email: u.Email}
}
