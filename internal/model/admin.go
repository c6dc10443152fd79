package model

// AdminStats is the dashboard summary returned by GET /api/admin/stats/.
type AdminStats struct {
	TotalUsers      int             `json:"total_users"`
	TotalListings   int             `json:"total_listings"`
	ActiveListings  int             `json:"active_listings"`
	PendingListings int             `json:"pending_listings"`
	ActivityChart   []ActivityPoint `json:"activity_chart"`
}

// ActivityPoint is one bucket of the dashboard activity chart.
type ActivityPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ModerationFilter selects a page of the admin listing queue.
type ModerationFilter struct {
	Status   string
	Search   string
	Ordering string
	Page     int
}
