package models

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsVerified bool `json:"is_verified"`

	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}
