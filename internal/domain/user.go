package domain

import "time"

const (
	MaxFullNameLen = 100
	MaxEmailLen    = 255
)

// User maps the users table.
type User struct {
	ID           int64     `db:"user_id"`       // BIGSERIAL, PRIMARY KEY
	FullName     string    `db:"full_name"`     // VARCHAR(100), NOT NULL
	Email        string    `db:"email"`         // VARCHAR(255), NOT NULL, UNIQUE
	PasswordHash []byte    `db:"password_hash"` // BYTEA, NOT NULL; never plaintext
	Role         Role      `db:"role"`          // VARCHAR(20), NOT NULL
	CreatedAt    time.Time `db:"created_at"`
}

func (u *User) HasRole(r Role) bool {
	return u != nil && u.Role == r
}
