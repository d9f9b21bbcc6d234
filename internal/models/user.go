package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID `db:"id"`
	ExtID      string    `db:"ext_id"`
	Disabled   bool      `db:"disabled"`
	Superuser  bool      `db:"superuser"`
	Created    time.Time `db:"created"`
	Username   string    `db:"username"`
	GivenName  *string   `db:"given_name"`
	FamilyName *string   `db:"family_name"`
	FullName   *string   `db:"full_name"`
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return !u.Disabled
}
