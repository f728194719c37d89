package models

import "time"

// DistrictApplication is a pending request from a prospective admin to have a
// district created for them. Owned exclusively by the application workflow:
// approval creates a District and deletes the application, rejection retains
// it with a decision reason.
type DistrictApplication struct {
	ID             string         `db:"id" json:"id"`
	Name           *string        `db:"name" json:"name,omitempty"`
	State          *string        `db:"state" json:"state,omitempty"`
	Country        *string        `db:"country" json:"country,omitempty"`
	Pincode        *string        `db:"pincode" json:"pincode,omitempty"`
	Address        *string        `db:"address" json:"address,omitempty"`
	Lat            *float64       `db:"lat" json:"lat,omitempty"`
	Lng            *float64       `db:"lng" json:"lng,omitempty"`
	AdminName      string         `db:"admin_name" json:"-"`
	AdminUsername  string         `db:"admin_username" json:"-"`
	AdminEmail     string         `db:"admin_email" json:"-"`
	AdminPhone     string         `db:"admin_phone_number" json:"-"`
	AdminAadhar    string         `db:"admin_aadhar_number" json:"-"`
	AdminPassword  string         `db:"admin_password_hash" json:"-"`
	Status         ApprovalStatus `db:"status" json:"status"`
	DecisionReason *string        `db:"decision_reason" json:"decisionReason,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// AdminProfile exposes the embedded applicant profile.
func (a *DistrictApplication) AdminProfile() AdminProfile {
	return AdminProfile{
		Name:         a.AdminName,
		Username:     a.AdminUsername,
		Email:        a.AdminEmail,
		PhoneNumber:  a.AdminPhone,
		AadharNumber: a.AdminAadhar,
		PasswordHash: a.AdminPassword,
	}
}

// ApplicationFilter captures list filters for district applications.
type ApplicationFilter struct {
	Status   ApprovalStatus
	Page     int
	PageSize int
}
