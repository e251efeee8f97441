package model

import "time"

// Badge is an achievement earned by a user. Badges are surfaced read-only;
// awarding happens outside the API.
type Badge struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	Color    string    `json:"color"`
	BgColor  string    `json:"bg_color"`
	EarnedOn time.Time `json:"earned_on"`
}

// DefaultBadgeName is shown for users who have not earned a badge yet
const DefaultBadgeName = "Rising Star"
