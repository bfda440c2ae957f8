package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/phishguard/phishguard-backend/internal/model"
)

// ReportRepositoryInterface is the read surface of the aggregation engine.
// Event and decision attribution is bounded by the owning campaign's
// [start_at, end_at] window in SQL; quiz attempts come back unfiltered so the
// service can apply the window as a pure function.
type ReportRepositoryInterface interface {
	TotalTargets(campaignID int) (int, error)
	DistinctEventUsers(campaignID int, kinds []string) (int, error)
	DecisionUserCount(campaignID int, decision string) (int, error)
	QuizRows(campaignID int) ([]model.QuizAttemptRow, error)
	EventDetailRows(campaignID int, kind string) ([]model.RecipientRow, error)
	IgnoredRows(campaignID int) ([]model.RecipientRow, error)
	DepartmentStats(campaignID int) ([]model.DeptStat, error)
	GlobalDepartmentClickStats() ([]model.DeptClickStat, error)
	TrainingRows() ([]model.TrainingRow, error)
	CampaignReportRates() ([]model.CampaignReportRate, error)
	TopRiskUsers(limit int) ([]model.RiskyUser, error)
	CompletedTargetedUsers() (int, error)
	CompletedEventUsers(kinds []string) (int, error)
	CompletedIgnoredUsers() (int, error)
}

type ReportRepository struct {
	DB *sql.DB
}

func (r *ReportRepository) TotalTargets(campaignID int) (int, error) {
	var n int
	err := r.DB.QueryRow(`
        SELECT COUNT(DISTINCT user_id)
        FROM campaign_targets
        WHERE campaign_id = $1
    `, campaignID).Scan(&n)
	return n, err
}

// DistinctEventUsers counts users with at least one matching in-window event.
func (r *ReportRepository) DistinctEventUsers(campaignID int, kinds []string) (int, error) {
	var n int
	err := r.DB.QueryRow(`
        SELECT COUNT(DISTINCT ct.user_id)
        FROM campaign_targets ct
        JOIN funnel_events ee ON ee.target_id = ct.target_id
        JOIN campaigns c      ON c.campaign_id = ct.campaign_id
        WHERE ct.campaign_id = $1
          AND ee.event_type = ANY($2)
          AND ee.created_at >= c.start_at
          AND ee.created_at <= c.end_at
    `, campaignID, pq.Array(kinds)).Scan(&n)
	return n, err
}

func (r *ReportRepository) DecisionUserCount(campaignID int, decision string) (int, error) {
	var n int
	err := r.DB.QueryRow(`
        SELECT COUNT(DISTINCT ct.user_id)
        FROM campaign_targets ct
        JOIN campaigns c ON c.campaign_id = ct.campaign_id
        JOIN warning_decisions wd
             ON wd.target_id = ct.target_id
            AND wd.decision  = $2
            AND wd.created_at >= c.start_at
            AND wd.created_at <= c.end_at
        WHERE ct.campaign_id = $1
    `, campaignID, decision).Scan(&n)
	return n, err
}

// QuizRows returns every attempt for the campaign's targets, annotated with
// the user's in-window "continue" decision time when one exists.
func (r *ReportRepository) QuizRows(campaignID int) ([]model.QuizAttemptRow, error) {
	rows, err := r.DB.Query(`
        SELECT
            u.user_id, u.name, u.email, COALESCE(d.name, 'Unknown'),
            qa.score, qa.passed, qa.created_at,
            (
                SELECT MIN(wd.created_at)
                FROM warning_decisions wd
                JOIN campaigns c ON c.campaign_id = ct.campaign_id
                WHERE wd.target_id = ct.target_id
                  AND wd.decision  = 'continue'
                  AND wd.created_at >= c.start_at
                  AND wd.created_at <= c.end_at
            )
        FROM quiz_attempts qa
        JOIN campaign_targets ct ON qa.target_id = ct.target_id
        JOIN users u             ON ct.user_id = u.user_id
        LEFT JOIN departments d  ON u.department_id = d.department_id
        WHERE ct.campaign_id = $1
        ORDER BY qa.created_at ASC
    `, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.QuizAttemptRow{}
	for rows.Next() {
		var row model.QuizAttemptRow
		if err := rows.Scan(&row.UserID, &row.UserName, &row.Email, &row.Department,
			&row.Score, &row.Passed, &row.AttemptAt, &row.ContinueAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// EventDetailRows lists recipients with an in-window event of the given kind,
// ordered by first occurrence.
func (r *ReportRepository) EventDetailRows(campaignID int, kind string) ([]model.RecipientRow, error) {
	rows, err := r.DB.Query(`
        SELECT u.name, u.email, COALESCE(d.name, 'Unknown'), MIN(ee.created_at) AS first_time
        FROM campaign_targets ct
        JOIN funnel_events ee   ON ee.target_id = ct.target_id
        JOIN campaigns c        ON c.campaign_id = ct.campaign_id
        JOIN users u            ON ct.user_id = u.user_id
        LEFT JOIN departments d ON u.department_id = d.department_id
        WHERE ct.campaign_id = $1
          AND ee.event_type  = $2
          AND ee.created_at >= c.start_at
          AND ee.created_at <= c.end_at
        GROUP BY u.user_id, u.name, u.email, d.name
        ORDER BY first_time ASC
    `, campaignID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecipientRows(rows, true)
}

// IgnoredRows lists targets with no in-window clicked or reported event.
func (r *ReportRepository) IgnoredRows(campaignID int) ([]model.RecipientRow, error) {
	rows, err := r.DB.Query(`
        SELECT u.name, u.email, COALESCE(d.name, 'Unknown')
        FROM campaign_targets ct
        JOIN users u            ON ct.user_id = u.user_id
        LEFT JOIN departments d ON u.department_id = d.department_id
        WHERE ct.campaign_id = $1
          AND NOT EXISTS (
              SELECT 1
              FROM funnel_events ee
              JOIN campaigns c ON c.campaign_id = ct.campaign_id
              WHERE ee.target_id = ct.target_id
                AND ee.event_type IN ('clicked', 'reported')
                AND ee.created_at >= c.start_at
                AND ee.created_at <= c.end_at
          )
        ORDER BY u.name ASC
    `, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecipientRows(rows, false)
}

func scanRecipientRows(rows *sql.Rows, withFirst bool) ([]model.RecipientRow, error) {
	out := []model.RecipientRow{}
	for rows.Next() {
		var row model.RecipientRow
		var err error
		if withFirst {
			err = rows.Scan(&row.UserName, &row.Email, &row.Department, &row.FirstAt)
		} else {
			err = rows.Scan(&row.UserName, &row.Email, &row.Department)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DepartmentStats aggregates the campaign's funnel per department.
func (r *ReportRepository) DepartmentStats(campaignID int) ([]model.DeptStat, error) {
	rows, err := r.DB.Query(`
        SELECT
            COALESCE(d.name, 'Unknown') AS department_name,
            COUNT(DISTINCT ct.user_id) AS total_targets,
            COUNT(DISTINCT ct.user_id) FILTER (WHERE EXISTS (
                SELECT 1 FROM funnel_events ee
                JOIN campaigns c2 ON c2.campaign_id = ct.campaign_id
                WHERE ee.target_id = ct.target_id
                  AND ee.event_type = 'clicked'
                  AND ee.created_at >= c2.start_at
                  AND ee.created_at <= c2.end_at
            )) AS clicked_users,
            COUNT(DISTINCT ct.user_id) FILTER (WHERE EXISTS (
                SELECT 1 FROM funnel_events ee2
                JOIN campaigns c3 ON c3.campaign_id = ct.campaign_id
                WHERE ee2.target_id = ct.target_id
                  AND ee2.event_type = 'reported'
                  AND ee2.created_at >= c3.start_at
                  AND ee2.created_at <= c3.end_at
            )) AS reported_users,
            COUNT(DISTINCT ct.user_id) FILTER (WHERE EXISTS (
                SELECT 1 FROM quiz_attempts qa
                JOIN campaigns c4 ON c4.campaign_id = ct.campaign_id
                JOIN warning_decisions wd
                     ON wd.target_id = ct.target_id
                    AND wd.decision  = 'continue'
                    AND wd.created_at >= c4.start_at
                    AND wd.created_at <= c4.end_at
                WHERE qa.target_id = ct.target_id
                  AND qa.created_at >= c4.start_at
                  AND qa.created_at <= c4.end_at
            )) AS quiz_completed
        FROM campaign_targets ct
        JOIN users u            ON ct.user_id = u.user_id
        LEFT JOIN departments d ON u.department_id = d.department_id
        WHERE ct.campaign_id = $1
        GROUP BY department_name
        ORDER BY total_targets DESC
    `, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DeptStat{}
	for rows.Next() {
		var s model.DeptStat
		if err := rows.Scan(&s.Department, &s.TotalTargets, &s.Clicked, &s.Reported, &s.QuizCompleted); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GlobalDepartmentClickStats feeds the safest/riskiest department pick across
// all campaigns.
func (r *ReportRepository) GlobalDepartmentClickStats() ([]model.DeptClickStat, error) {
	rows, err := r.DB.Query(`
        SELECT
            COALESCE(d.name, 'Unknown') AS department_name,
            COUNT(DISTINCT ct.user_id) AS total_targets,
            COUNT(DISTINCT ct.user_id) FILTER (WHERE EXISTS (
                SELECT 1 FROM funnel_events ee
                JOIN campaigns c2 ON c2.campaign_id = ct.campaign_id
                WHERE ee.target_id = ct.target_id
                  AND ee.event_type = 'clicked'
                  AND ee.created_at >= c2.start_at
                  AND ee.created_at <= c2.end_at
            )) AS clicked_users
        FROM campaign_targets ct
        JOIN users u            ON ct.user_id = u.user_id
        LEFT JOIN departments d ON u.department_id = d.department_id
        GROUP BY department_name
        HAVING COUNT(DISTINCT ct.user_id) > 0
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DeptClickStat{}
	for rows.Next() {
		var s model.DeptClickStat
		if err := rows.Scan(&s.Department, &s.TotalTargets, &s.Clicked); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TrainingRows classifies every ever-targeted user: eligible when any campaign
// holds an in-window "continue" decision for them, trained when such a
// campaign also holds an in-window quiz attempt. This deliberately spans all
// campaigns — the training mandate is organization-wide.
func (r *ReportRepository) TrainingRows() ([]model.TrainingRow, error) {
	rows, err := r.DB.Query(`
        SELECT
            u.user_id,
            COALESCE(d.name, 'Unknown') AS department_name,
            EXISTS (
                SELECT 1
                FROM campaign_targets ct
                JOIN campaigns c          ON ct.campaign_id = c.campaign_id
                JOIN warning_decisions wd ON wd.target_id = ct.target_id
                WHERE ct.user_id = u.user_id
                  AND wd.decision = 'continue'
                  AND wd.created_at >= c.start_at
                  AND wd.created_at <= c.end_at
            ) AS eligible,
            EXISTS (
                SELECT 1
                FROM campaign_targets ct2
                JOIN campaigns c2          ON ct2.campaign_id = c2.campaign_id
                JOIN warning_decisions wd2 ON wd2.target_id = ct2.target_id
                JOIN quiz_attempts qa      ON qa.target_id = ct2.target_id
                WHERE ct2.user_id = u.user_id
                  AND wd2.decision = 'continue'
                  AND wd2.created_at >= c2.start_at
                  AND wd2.created_at <= c2.end_at
                  AND qa.created_at  >= c2.start_at
                  AND qa.created_at  <= c2.end_at
            ) AS trained
        FROM users u
        LEFT JOIN departments d ON u.department_id = d.department_id
        WHERE EXISTS (SELECT 1 FROM campaign_targets ct3 WHERE ct3.user_id = u.user_id)
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TrainingRow{}
	for rows.Next() {
		var row model.TrainingRow
		if err := rows.Scan(&row.UserID, &row.Department, &row.Eligible, &row.Trained); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CampaignReportRates returns per-campaign reported/total inputs ordered by
// campaign id, so the best-campaign pick can break ties on first encountered.
func (r *ReportRepository) CampaignReportRates() ([]model.CampaignReportRate, error) {
	rows, err := r.DB.Query(`
        SELECT
            c.campaign_id,
            c.name,
            COUNT(DISTINCT ct.user_id) AS total_targets,
            COUNT(DISTINCT ct.user_id) FILTER (WHERE EXISTS (
                SELECT 1 FROM funnel_events ee
                WHERE ee.target_id = ct.target_id
                  AND ee.event_type = 'reported'
                  AND ee.created_at >= c.start_at
                  AND ee.created_at <= c.end_at
            )) AS reported_users
        FROM campaigns c
        JOIN campaign_targets ct ON ct.campaign_id = c.campaign_id
        GROUP BY c.campaign_id, c.name
        HAVING COUNT(DISTINCT ct.user_id) > 0
        ORDER BY c.campaign_id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CampaignReportRate{}
	for rows.Next() {
		var s model.CampaignReportRate
		if err := rows.Scan(&s.CampaignID, &s.Name, &s.TotalTargets, &s.Reported); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TopRiskUsers ranks users by in-window clicks across all campaigns.
func (r *ReportRepository) TopRiskUsers(limit int) ([]model.RiskyUser, error) {
	rows, err := r.DB.Query(`
        SELECT
            u.name,
            u.email,
            COALESCE(d.name, 'Unknown'),
            COUNT(ee.event_id) AS clicks,
            COUNT(DISTINCT ct.campaign_id) AS campaigns_targeted
        FROM campaign_targets ct
        JOIN users u            ON ct.user_id = u.user_id
        JOIN campaigns c        ON ct.campaign_id = c.campaign_id
        LEFT JOIN departments d ON u.department_id = d.department_id
        LEFT JOIN funnel_events ee
               ON ee.target_id = ct.target_id
              AND ee.event_type = 'clicked'
              AND ee.created_at >= c.start_at
              AND ee.created_at <= c.end_at
        GROUP BY u.user_id, u.name, u.email, d.name
        HAVING COUNT(ee.event_id) > 0
        ORDER BY clicks DESC, u.name ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.RiskyUser{}
	for rows.Next() {
		var u model.RiskyUser
		if err := rows.Scan(&u.UserName, &u.Email, &u.Department, &u.Clicks, &u.CampaignsTargeted); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ====================== Dashboard (completed campaigns) ======================

func (r *ReportRepository) CompletedTargetedUsers() (int, error) {
	var n int
	err := r.DB.QueryRow(`
        SELECT COUNT(DISTINCT ct.user_id)
        FROM campaign_targets ct
        JOIN campaigns c ON c.campaign_id = ct.campaign_id
        WHERE c.status = 'completed'
    `).Scan(&n)
	return n, err
}

func (r *ReportRepository) CompletedEventUsers(kinds []string) (int, error) {
	var n int
	err := r.DB.QueryRow(`
        SELECT COUNT(DISTINCT ct.user_id)
        FROM funnel_events ee
        JOIN campaign_targets ct ON ee.target_id = ct.target_id
        JOIN campaigns c         ON ct.campaign_id = c.campaign_id
        WHERE c.status = 'completed'
          AND ee.event_type = ANY($1)
          AND ee.created_at >= c.start_at
          AND ee.created_at <= c.end_at
    `, pq.Array(kinds)).Scan(&n)
	return n, err
}

func (r *ReportRepository) CompletedIgnoredUsers() (int, error) {
	var n int
	err := r.DB.QueryRow(`
        SELECT COUNT(DISTINCT ct.user_id)
        FROM campaign_targets ct
        JOIN campaigns c ON c.campaign_id = ct.campaign_id
        WHERE c.status = 'completed'
          AND NOT EXISTS (
              SELECT 1
              FROM funnel_events ee
              WHERE ee.target_id = ct.target_id
                AND ee.event_type IN ('clicked', 'reported')
                AND ee.created_at >= c.start_at
                AND ee.created_at <= c.end_at
          )
    `).Scan(&n)
	return n, err
}

var _ ReportRepositoryInterface = (*ReportRepository)(nil)
