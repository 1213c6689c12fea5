package model

import "github.com/google/uuid"

// User is the shape handed over by the authentication collaborator. The API
// never manages credentials; it only consumes the identity and role carried
// in the session token.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     Role      `json:"role"`
}
