package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile extends a user with presentation fields. Online mirrors the
// redis presence flag into the relational store so history queries can
// filter without touching redis.
type Profile struct {
	UserID int64   `json:"user_id"`
	Bio    *string `json:"bio"`
	Online bool    `json:"online"`
}
