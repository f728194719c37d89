package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignupRequest covers all three registration paths. Role decides which
// branch the service takes; district fields only matter for admin signups.
type SignupRequest struct {
	Name         string   `json:"name" validate:"required"`
	Username     string   `json:"username" validate:"required"`
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=6"`
	Role         UserRole `json:"role" validate:"required,oneof=user admin superAdmin"`
	PhoneNumber  string   `json:"phoneNumber" validate:"required"`
	AadharNumber string   `json:"aadharNumber" validate:"required"`
	Language     string   `json:"language"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`

	// Admin signup only: the district the applicant wants to govern.
	DistrictName *string `json:"districtName"`
	State        *string `json:"state"`
	Country      *string `json:"country"`
	Pincode      *string `json:"pincode"`
	Address      *string `json:"address"`
}

// LoginRequest holds credentials for any of the login endpoints.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and the authenticated principal.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expiresIn"`
	User      AuthSubject `json:"user"`
	IssuedAt  time.Time   `json:"issuedAt"`
}

// AuthSubject describes the authenticated principal in responses. It covers
// citizens, district admins and the super admin alike.
type AuthSubject struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Username   string   `json:"username,omitempty"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	DistrictID *string  `json:"districtId,omitempty"`
	Points     int      `json:"points,omitempty"`
}

// SignupResponse is returned from registration. Admin applicants get no
// token; they receive the pending application instead.
type SignupResponse struct {
	Token       string               `json:"token,omitempty"`
	User        *AuthSubject         `json:"user,omitempty"`
	Application *DistrictApplication `json:"application,omitempty"`
	Message     string               `json:"-"`
}

// ForgotPasswordRequest initiates the OTP reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes the OTP reset flow.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// ChangePasswordRequest updates the password of an authenticated user.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// Decision actions shared by the application and moderation endpoints.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// ApplicationDecisionRequest approves or rejects a district application. The
// action field is only read by the combined decision endpoint; the dedicated
// approve/reject routes ignore it.
type ApplicationDecisionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// ModerateAdminRequest decides a pending admin account. Approval resolves the
// target district by name and state, falling back to the values the user
// stored at signup.
type ModerateAdminRequest struct {
	Action       string  `json:"action" validate:"required,oneof=approve reject"`
	DistrictName *string `json:"districtName"`
	State        *string `json:"state"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	Email      string   `json:"email"`
	DistrictID *string  `json:"district_id,omitempty"`
	jwt.RegisteredClaims
}
