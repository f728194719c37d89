package models

import "time"

// SuperAdmin is the singleton highest-privilege account. The singleton column
// carries a unique index so the store itself rejects a second row.
type SuperAdmin struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	PhoneNumber    string     `db:"phone_number" json:"phoneNumber"`
	AadharNumber   string     `db:"aadhar_number" json:"-"`
	Lat            *float64   `db:"lat" json:"latitude,omitempty"`
	Lng            *float64   `db:"lng" json:"longitude,omitempty"`
	ProfilePicture *string    `db:"profile_picture" json:"profilePicture,omitempty"`
	IsActive       bool       `db:"is_active" json:"isActive"`
	LastLogin      *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	Singleton      bool       `db:"singleton" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}
