package models

import "time"

// UserRole represents the available roles for the RBAC system. The string
// values are part of the wire contract consumed by the dashboard frontend.
type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "superAdmin"
)

// ApprovalStatus tracks moderation state for admin accounts and district
// applications.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// User represents an account in the unified users table. Admins carry the
// district name/state they requested at signup even before a District exists.
type User struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Username       string         `db:"username" json:"username"`
	Email          string         `db:"email" json:"email"`
	PasswordHash   string         `db:"password_hash" json:"-"`
	Role           UserRole       `db:"role" json:"role"`
	DistrictID     *string        `db:"district_id" json:"districtId,omitempty"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approvalStatus"`
	DistrictName   *string        `db:"district_name" json:"districtName,omitempty"`
	State          *string        `db:"state" json:"state,omitempty"`
	PhoneNumber    *string        `db:"phone_number" json:"phoneNumber,omitempty"`
	AadharNumber   *string        `db:"aadhar_number" json:"-"`
	Language       string         `db:"language" json:"language"`
	Points         int            `db:"points" json:"points"`
	ProfilePicture *string        `db:"profile_picture" json:"profilePicture,omitempty"`
	IsActive       bool           `db:"is_active" json:"isActive"`
	LastLogin      *time.Time     `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	DistrictID     *string
	Role           *UserRole
	ApprovalStatus *ApprovalStatus
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

// UserStats aggregates a user's civic activity.
type UserStats struct {
	IssuesCreated   int `json:"issuesCreated"`
	IssuesResolved  int `json:"issuesResolved"`
	UpvotesReceived int `json:"upvotesReceived"`
	UpvotesGiven    int `json:"upvotesGiven"`
	TotalPoints     int `json:"totalPoints"`
}
