package domain

// DashboardMetrics is the §4.8 counters surface returned by GET /api/metrics.
type DashboardMetrics struct {
	JobsTriggered      int     `json:"jobsTriggered"`
	SuccessRate        float64 `json:"successRate"`
	ArticlesScraped    int     `json:"articlesScraped"`
	AverageJobDuration float64 `json:"averageJobDuration"`
	ActiveJobs         int     `json:"activeJobs"`
	RecentErrors       int     `json:"recentErrors"`
}
