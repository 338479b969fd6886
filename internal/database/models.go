package database

import "time"

// LastLocation is the single cached location row.
type LastLocation struct {
	ID        uint      `db:"id"`
	Latitude  float64   `db:"latitude"`
	Longitude float64   `db:"longitude"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Session is the signed-in user. At most one row exists; no row means
// nobody is signed in.
type Session struct {
	ID         uint      `db:"id"`
	UserID     string    `db:"user_id"`
	Credential string    `db:"credential"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// PushToken is the device push token.
type PushToken struct {
	ID        uint      `db:"id"`
	Token     string    `db:"token"`
	UpdatedAt time.Time `db:"updated_at"`
}
