package models

import "time"

// AdminProfile holds district-admin credentials and contact info embedded
// directly on a District or DistrictApplication record.
type AdminProfile struct {
	Name         string `json:"name"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	AadharNumber string `json:"-"`
	PasswordHash string `json:"-"`
}

// AdminBindingKind discriminates the two historical representations of "who
// administers this district".
type AdminBindingKind string

const (
	BindingNone       AdminBindingKind = "none"
	BindingReferenced AdminBindingKind = "referenced"
	BindingEmbedded   AdminBindingKind = "embedded"
)

// AdminBinding is the tagged variant over District admin representations.
type AdminBinding struct {
	Kind    AdminBindingKind
	UserID  string
	Profile *AdminProfile
}

// District represents an administrative region. AdminID references a User in
// the moderation path; the Admin* columns carry an embedded profile created by
// the application-approval path. The two representations coexist and are never
// merged.
type District struct {
	ID                  string     `db:"id" json:"id"`
	Name                string     `db:"name" json:"name"`
	State               string     `db:"state" json:"state"`
	Verified            bool       `db:"verified" json:"verified"`
	AdminID             *string    `db:"admin_id" json:"adminId,omitempty"`
	AdminName           *string    `db:"admin_name" json:"-"`
	AdminUsername       *string    `db:"admin_username" json:"-"`
	AdminEmail          *string    `db:"admin_email" json:"-"`
	AdminPhoneNumber    *string    `db:"admin_phone_number" json:"-"`
	AdminAadharNumber   *string    `db:"admin_aadhar_number" json:"-"`
	AdminPasswordHash   *string    `db:"admin_password_hash" json:"-"`
	Lat                 *float64   `db:"lat" json:"lat,omitempty"`
	Lng                 *float64   `db:"lng" json:"lng,omitempty"`
	Country             *string    `db:"country" json:"country,omitempty"`
	Pincode             *string    `db:"pincode" json:"pincode,omitempty"`
	Address             *string    `db:"address" json:"address,omitempty"`
	SourceApplicationID *string    `db:"source_application_id" json:"-"`
	IsActive            bool       `db:"is_active" json:"isActive"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
}

// AdminBinding resolves the tagged variant for this district. A referenced
// User wins when both representations are somehow present.
func (d *District) AdminBinding() AdminBinding {
	if d.AdminID != nil && *d.AdminID != "" {
		return AdminBinding{Kind: BindingReferenced, UserID: *d.AdminID}
	}
	if p := d.EmbeddedAdmin(); p != nil {
		return AdminBinding{Kind: BindingEmbedded, Profile: p}
	}
	return AdminBinding{Kind: BindingNone}
}

// EmbeddedAdmin returns the embedded profile when one is stored.
func (d *District) EmbeddedAdmin() *AdminProfile {
	if d.AdminEmail == nil || *d.AdminEmail == "" {
		return nil
	}
	profile := AdminProfile{Email: *d.AdminEmail}
	if d.AdminName != nil {
		profile.Name = *d.AdminName
	}
	if d.AdminUsername != nil {
		profile.Username = *d.AdminUsername
	}
	if d.AdminPhoneNumber != nil {
		profile.PhoneNumber = *d.AdminPhoneNumber
	}
	if d.AdminAadharNumber != nil {
		profile.AadharNumber = *d.AdminAadharNumber
	}
	if d.AdminPasswordHash != nil {
		profile.PasswordHash = *d.AdminPasswordHash
	}
	return &profile
}

// SetEmbeddedAdmin stores the profile onto the flattened columns.
func (d *District) SetEmbeddedAdmin(profile AdminProfile) {
	d.AdminName = &profile.Name
	d.AdminUsername = &profile.Username
	d.AdminEmail = &profile.Email
	d.AdminPhoneNumber = &profile.PhoneNumber
	d.AdminAadharNumber = &profile.AadharNumber
	d.AdminPasswordHash = &profile.PasswordHash
}

// DistrictFilter captures list filters for districts.
type DistrictFilter struct {
	State    string
	Verified *bool
	IsActive *bool
	Search   string
	Page     int
	PageSize int
}

// DistrictStats summarises activity inside a district.
type DistrictStats struct {
	District       string  `json:"district"`
	TotalUsers     int     `json:"totalUsers"`
	TotalIssues    int     `json:"totalIssues"`
	ResolvedIssues int     `json:"resolvedIssues"`
	PendingIssues  int     `json:"pendingIssues"`
	ResolutionRate float64 `json:"resolutionRate"`
	RecentIssues   []Issue `json:"recentIssues"`
}

// ResolvedLocation is the payload of the coordinates-to-district lookup.
type ResolvedLocation struct {
	DistrictName string    `json:"districtName,omitempty"`
	State        string    `json:"state,omitempty"`
	Country      string    `json:"country,omitempty"`
	Pincode      string    `json:"pincode,omitempty"`
	Address      string    `json:"address,omitempty"`
	Nearest      *District `json:"nearestDistrict,omitempty"`
	DistanceKm   *float64  `json:"distanceKm,omitempty"`
}
