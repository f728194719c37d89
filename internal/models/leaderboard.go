package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// LeaderboardEntry tracks a user's civic points. Achievements are kept as a
// JSON blob so badge definitions can evolve without migrations.
type LeaderboardEntry struct {
	ID            string         `db:"id" json:"id"`
	UserID        string         `db:"user_id" json:"userId"`
	Points        int            `db:"points" json:"points"`
	MonthlyPoints int            `db:"monthly_points" json:"monthlyPoints"`
	YearlyPoints  int            `db:"yearly_points" json:"yearlyPoints"`
	Rank          int            `db:"rank" json:"rank"`
	Achievements  types.JSONText `db:"achievements" json:"achievements"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`

	// Populated via join for ranked listings.
	UserName     string  `db:"user_name" json:"userName,omitempty"`
	DistrictName *string `db:"district_name" json:"districtName,omitempty"`
}

// Achievement mirrors the entries stored inside the achievements blob.
type Achievement struct {
	Badge    string    `json:"badge"`
	EarnedAt time.Time `json:"earnedAt"`
}

type LeaderboardFilter struct {
	DistrictID string
	Period     string // all | monthly | yearly
	Limit      int
}

// Point awards for civic activity.
const (
	PointsCreateIssue   = 10
	PointsUpvoteIssue   = 2
	PointsReceiveUpvote = 1
	PointsIssueResolved = 20
)
