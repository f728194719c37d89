package models

import "time"

type IssueStatus string

const (
	IssuePending    IssueStatus = "pending"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
	IssueRejected   IssueStatus = "rejected"
)

type IssueCategory string

const (
	IssueRoads       IssueCategory = "roads"
	IssueWater       IssueCategory = "water"
	IssueElectricity IssueCategory = "electricity"
	IssueSanitation  IssueCategory = "sanitation"
	IssueSafety      IssueCategory = "safety"
	IssueOther       IssueCategory = "other"
)

type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
	PriorityUrgent IssuePriority = "urgent"
)

type Issue struct {
	ID          string        `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Category    IssueCategory `db:"category" json:"category"`
	Priority    IssuePriority `db:"priority" json:"priority"`
	Status      IssueStatus   `db:"status" json:"status"`
	ReporterID  string        `db:"reporter_id" json:"reporterId"`
	DistrictID  *string       `db:"district_id" json:"districtId,omitempty"`
	Lat         *float64      `db:"lat" json:"latitude,omitempty"`
	Lng         *float64      `db:"lng" json:"longitude,omitempty"`
	Address     *string       `db:"address" json:"address,omitempty"`
	ImageURL    *string       `db:"image_url" json:"imageUrl,omitempty"`
	Upvotes     int           `db:"upvotes" json:"upvotes"`
	ResolvedAt  *time.Time    `db:"resolved_at" json:"resolvedAt,omitempty"`
	ResolvedBy  *string       `db:"resolved_by" json:"resolvedBy,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`

	// Populated on list/detail reads via join, not stored on the row.
	ReporterName string `db:"reporter_name" json:"reporterName,omitempty"`
}

type IssueFilter struct {
	Status     IssueStatus
	Category   IssueCategory
	Priority   IssuePriority
	DistrictID string
	ReporterID string
	Search     string
	Page       int
	PageSize   int
}

type IssueStats struct {
	Total      int `db:"total" json:"total"`
	Pending    int `db:"pending" json:"pending"`
	InProgress int `db:"in_progress" json:"inProgress"`
	Resolved   int `db:"resolved" json:"resolved"`
	Rejected   int `db:"rejected" json:"rejected"`
}
