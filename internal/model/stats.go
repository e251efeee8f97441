package model

// LeaderboardEntry is a ranked row of the XP leaderboard
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Image    string `json:"image"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
	Badge    string `json:"badge"`
}

// LeaderboardPeriod selects the leaderboard window. Both periods currently
// rank by lifetime XP; see the period handling in the stats service.
type LeaderboardPeriod string

const (
	LeaderboardPeriodWeek LeaderboardPeriod = "week"
	LeaderboardPeriodAll  LeaderboardPeriod = "all"
)

// IsValid returns true if the period is a recognized value
func (p LeaderboardPeriod) IsValid() bool {
	return p == LeaderboardPeriodWeek || p == LeaderboardPeriodAll
}

// DashboardStats summarizes a user's activity for their dashboard
type DashboardStats struct {
	SessionsAttended int `json:"sessions_attended"`
	GroupsJoined     int `json:"groups_joined"`
	SessionsHosted   int `json:"sessions_hosted"`
	XP               int `json:"xp"`
	Level            int `json:"level"`
}

// Dashboard is the full dashboard payload for a user
type Dashboard struct {
	Stats            DashboardStats `json:"stats"`
	UpcomingSessions []SessionView  `json:"upcoming_sessions"`
}

// AdminOverview buckets groups by moderation status with aggregate counts
type AdminOverview struct {
	Pending  []GroupStats `json:"pending"`
	Approved []GroupStats `json:"approved"`
	Rejected []GroupStats `json:"rejected"`
	Totals   AdminTotals  `json:"totals"`
}

// AdminTotals are the aggregate counts on the admin dashboard
type AdminTotals struct {
	Users    int `json:"users"`
	Groups   int `json:"groups"`
	Sessions int `json:"sessions"`
	Pending  int `json:"pending"`
}
