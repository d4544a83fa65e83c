package models

import (
	"gorm.io/gorm"
)

// Customer is a read-only collaborator: registration and profile management
// are out of scope, the booking core only resolves ownership and contact
// details for notifications.
type Customer struct {
	gorm.Model

	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
