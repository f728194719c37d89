package models

import "time"

type SOSContactType string

const (
	SOSPolice      SOSContactType = "police"
	SOSFire        SOSContactType = "fire"
	SOSAmbulance   SOSContactType = "ambulance"
	SOSDisaster    SOSContactType = "disaster"
	SOSWomenSafety SOSContactType = "women_safety"
	SOSChildSafety SOSContactType = "child_safety"
	SOSOtherHelp   SOSContactType = "other"
)

type EmergencyLevel string

const (
	EmergencyCritical EmergencyLevel = "critical"
	EmergencyHigh     EmergencyLevel = "high"
	EmergencyMedium   EmergencyLevel = "medium"
	EmergencyLow      EmergencyLevel = "low"
)

// SOSContact is an emergency service entry in a district's directory.
type SOSContact struct {
	ID             string         `db:"id" json:"id"`
	DistrictID     string         `db:"district_id" json:"districtId"`
	Name           string         `db:"name" json:"name"`
	Type           SOSContactType `db:"type" json:"type"`
	PhoneNumber    string         `db:"phone_number" json:"phoneNumber"`
	AltPhoneNumber *string        `db:"alt_phone_number" json:"altPhoneNumber,omitempty"`
	Address        *string        `db:"address" json:"address,omitempty"`
	Lat            *float64       `db:"lat" json:"latitude,omitempty"`
	Lng            *float64       `db:"lng" json:"longitude,omitempty"`
	EmergencyLevel EmergencyLevel `db:"emergency_level" json:"emergencyLevel"`
	Available24x7  bool           `db:"available_24x7" json:"available24x7"`
	OpensAt        *string        `db:"opens_at" json:"opensAt,omitempty"`
	ClosesAt       *string        `db:"closes_at" json:"closesAt,omitempty"`
	IsActive       bool           `db:"is_active" json:"isActive"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

type SOSFilter struct {
	DistrictID     string
	Type           SOSContactType
	EmergencyLevel EmergencyLevel
	ActiveOnly     bool
}
