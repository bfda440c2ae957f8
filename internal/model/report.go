// internal/model/report.go
package model

import "time"

// Risk buckets for a department's click ratio.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// QuizAttemptRow is one quiz attempt joined with its recipient, fetched for a
// campaign without window filtering. The aggregation engine applies the
// campaign window itself so the filtering stays testable over fixtures.
type QuizAttemptRow struct {
	UserID     int        `json:"user_id"`
	UserName   string     `json:"name"`
	Email      string     `json:"email"`
	Department string     `json:"department"`
	Score      int        `json:"score"`
	Passed     bool       `json:"passed"`
	AttemptAt  time.Time  `json:"attempt_at"`
	ContinueAt *time.Time `json:"-"` // in-window "continue" decision time, nil if none
}

// QuizHistoryEntry is one attempt in a user's per-campaign score history.
type QuizHistoryEntry struct {
	Score     int       `json:"score"`
	Passed    bool      `json:"passed"`
	AttemptAt time.Time `json:"attempt_at"`
}

// RecipientRow is one recipient in a report detail list.
type RecipientRow struct {
	UserName   string     `json:"name"`
	Email      string     `json:"email"`
	Department string     `json:"department"`
	FirstAt    *time.Time `json:"first_at,omitempty"`
}

// DeptStat is one department's funnel counts for a single campaign.
type DeptStat struct {
	Department    string  `json:"department"`
	TotalTargets  int     `json:"total_targets"`
	Clicked       int     `json:"clicked"`
	Reported      int     `json:"reported"`
	QuizCompleted int     `json:"quiz_completed"`
	ClickRatio    float64 `json:"click_ratio"`
	RiskBucket    string  `json:"risk_bucket"`
}

// DeptClickStat is a department's all-time click ratio input.
type DeptClickStat struct {
	Department   string  `json:"department"`
	TotalTargets int     `json:"total_targets"`
	Clicked      int     `json:"clicked"`
	Ratio        float64 `json:"ratio"`
}

// TrainingRow classifies one ever-targeted user for the organization-wide
// training mandate.
type TrainingRow struct {
	UserID     int    `json:"user_id"`
	Department string `json:"department"`
	Eligible   bool   `json:"eligible"`
	Trained    bool   `json:"trained"`
}

// DeptTraining aggregates training progress per department.
type DeptTraining struct {
	Department string `json:"department"`
	Eligible   int    `json:"eligible"`
	Trained    int    `json:"trained"`
}

// CampaignReportRate feeds the best-performing-campaign pick.
type CampaignReportRate struct {
	CampaignID   int    `json:"campaign_id"`
	Name         string `json:"name"`
	TotalTargets int    `json:"total_targets"`
	Reported     int    `json:"reported"`
}

// RiskyUser is one entry in the top-risk employee list.
type RiskyUser struct {
	UserName          string `json:"name"`
	Email             string `json:"email"`
	Department        string `json:"department"`
	Clicks            int    `json:"clicks"`
	CampaignsTargeted int    `json:"campaigns_targeted"`
}

// CampaignReport is the full metrics bundle for one campaign.
type CampaignReport struct {
	CampaignID      int                        `json:"campaign_id"`
	CampaignName    string                     `json:"campaign_name"`
	Status          string                     `json:"status"`
	StartAt         time.Time                  `json:"start_at"`
	EndAt           time.Time                  `json:"end_at"`
	TotalTargets    int                        `json:"total_targets"`
	Clicked         int                        `json:"clicked"`
	Reported        int                        `json:"reported"`
	Ignored         int                        `json:"ignored"`
	ContinueCount   int                        `json:"continue_count"`
	GoBackCount     int                        `json:"go_back_count"`
	QuizCompleted   int                        `json:"quiz_completed"`
	TrainingPercent int                        `json:"training_percent"`
	FailureRatePct  int                        `json:"failure_rate_percent"`
	ReportRatePct   int                        `json:"report_rate_percent"`
	AvgScore        float64                    `json:"avg_score"`
	AvgScorePct     int                        `json:"avg_score_percent"`
	QuizResults     []QuizAttemptRow           `json:"quiz_results"`
	QuizHistory     map[int][]QuizHistoryEntry `json:"quiz_history"`
	DeptStats       []DeptStat                 `json:"department_stats"`
	Detail          string                     `json:"detail,omitempty"`
	DetailRows      []RecipientRow             `json:"detail_rows,omitempty"`
}

// DashboardReport is the cross-campaign admin overview.
type DashboardReport struct {
	TotalCampaigns     int             `json:"total_campaigns"`
	RunningCampaigns   int             `json:"running_campaigns"`
	ScheduledCampaigns int             `json:"scheduled_campaigns"`
	CompletedCampaigns int             `json:"completed_campaigns"`
	TargetedUsers      int             `json:"targeted_users"`
	ClickedUsers       int             `json:"clicked_users"`
	ReportedUsers      int             `json:"reported_users"`
	IgnoredUsers       int             `json:"ignored_users"`
	EligibleUsers      int             `json:"eligible_users"`
	TrainedUsers       int             `json:"trained_users"`
	TrainingPercent    int             `json:"training_percent"`
	DeptTraining       []DeptTraining  `json:"department_training"`
	BestCampaign       string          `json:"best_campaign"`
	BestReportRatePct  float64         `json:"best_report_rate_percent"`
	SafestDepartment   *DeptClickStat  `json:"safest_department,omitempty"`
	RiskiestDepartment *DeptClickStat  `json:"riskiest_department,omitempty"`
	TopRiskUsers       []RiskyUser     `json:"top_risk_users"`
}
