package model

import "time"

// User is an administrative/dashboard operator. Only presence fields are
// tracked here; credentials live behind the authentication service.
type User struct {
	ID         int        `db:"id"          json:"id"`
	Email      string     `db:"email"       json:"email"`
	Name       *string    `db:"name"        json:"name"`
	IsOnline   bool       `db:"is_online"   json:"is_online"`
	LastActive *time.Time `db:"last_active" json:"last_active"`
	CreatedAt  time.Time  `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"  json:"updated_at"`
}
