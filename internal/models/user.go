package models

import "time"

// User represents a row in the PostgreSQL users table.
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Password        string    `json:"-"` // never serialize
	BirthDate       time.Time `json:"birth_date"`
	CanBeContacted  bool      `json:"can_be_contacted"`
	CanDataBeShared bool      `json:"can_data_be_shared"`
	CreatedTime     time.Time `json:"created_time"`
}

// AgeAt returns the whole-year age of someone born on birth at the
// given reference date.
func AgeAt(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		years--
	}
	return years
}

// SignupRequest is the JSON body for POST /api/signup.
type SignupRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	BirthDate       string `json:"birth_date"` // YYYY-MM-DD
	CanBeContacted  bool   `json:"can_be_contacted"`
	CanDataBeShared bool   `json:"can_data_be_shared"`
}

// UpdateUserRequest is the JSON body for PUT/PATCH /api/users/me.
// Nil fields are left unchanged.
type UpdateUserRequest struct {
	Username        *string `json:"username"`
	Password        *string `json:"password"`
	BirthDate       *string `json:"birth_date"`
	CanBeContacted  *bool   `json:"can_be_contacted"`
	CanDataBeShared *bool   `json:"can_data_be_shared"`
}

// TokenRequest is the JSON body for POST /api/token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the JSON body for POST /api/token/refresh.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// TokenResponse is the JSON body returned by the token endpoints.
type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
