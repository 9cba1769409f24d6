// internal/models/user.go
package models

import "github.com/google/uuid"

// User is a registered participant. The ID doubles as the participant's
// ledger account key, so their spendable balance lives under the same UUID.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`
	IsAdmin  bool      `json:"is_admin"`
}
