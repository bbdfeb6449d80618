package rulebook

import (
	"time"
)

// Project is the owning record a rulebook hangs off. Projects are managed
// by the wider platform; this core only reads them and seeds rulebooks
// from their titles.
type Project struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Name      string     `json:"name" db:"name"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}
