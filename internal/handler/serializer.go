package handler

import (
	"time"

	"backend/internal/models"
)

// The response shapes are declared field by field on purpose: what goes
// over the wire is exactly what is listed here, nothing inherited from
// the database model.

type UserAttributes struct {
	ExtID      string    `json:"ext_id"`
	Disabled   bool      `json:"disabled"`
	Superuser  bool      `json:"superuser"`
	Created    time.Time `json:"created"`
	Username   string    `json:"username"`
	GivenName  *string   `json:"given_name"`
	FamilyName *string   `json:"family_name"`
	FullName   *string   `json:"full_name"`
}

type UserData struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes UserAttributes `json:"attributes"`
}

type UserResponse struct {
	Data UserData `json:"data"`
}

func newUserResponse(user *models.User) UserResponse {
	return UserResponse{
		Data: UserData{
			ID:   user.ID.String(),
			Type: "user",
			Attributes: UserAttributes{
				ExtID:      user.ExtID,
				Disabled:   user.Disabled,
				Superuser:  user.Superuser,
				Created:    user.Created,
				Username:   user.Username,
				GivenName:  user.GivenName,
				FamilyName: user.FamilyName,
				FullName:   user.FullName,
			},
		},
	}
}
