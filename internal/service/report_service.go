// internal/service/report_service.go
package service

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/phishguard/phishguard-backend/internal/model"
	"github.com/phishguard/phishguard-backend/internal/repository"
)

// ReportService is the aggregation engine. Counts come from the report
// repository with window-bounded SQL; the combining arithmetic and the quiz
// window filtering are pure functions below, so the numbers can be verified
// over fixture data without a database.
type ReportService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	Reports      repository.ReportRepositoryInterface
	Logger       *zap.Logger
	Loc          *time.Location
	Now          func() time.Time
}

const topRiskLimit = 5

func (s *ReportService) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Loc)
	}
	return time.Now().In(s.Loc)
}

// CampaignReport computes the full metrics bundle for one campaign. detail
// optionally selects a recipient list: clicked, reported, ignored or quiz.
func (s *ReportService) CampaignReport(campaignID int, detail string) (*model.CampaignReport, error) {
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	report := &model.CampaignReport{
		CampaignID:   c.ID,
		CampaignName: c.Name,
		Status:       DeriveStatus(s.now(), c.StartAt, c.EndAt),
		StartAt:      c.StartAt,
		EndAt:        c.EndAt,
	}

	if report.TotalTargets, err = s.Reports.TotalTargets(campaignID); err != nil {
		return nil, err
	}
	if report.Clicked, err = s.Reports.DistinctEventUsers(campaignID, []string{string(model.EventClicked)}); err != nil {
		return nil, err
	}
	if report.Reported, err = s.Reports.DistinctEventUsers(campaignID, []string{string(model.EventReported)}); err != nil {
		return nil, err
	}
	acted, err := s.Reports.DistinctEventUsers(campaignID, []string{string(model.EventClicked), string(model.EventReported)})
	if err != nil {
		return nil, err
	}
	report.Ignored = ClampedIgnored(report.TotalTargets, acted)

	if report.ContinueCount, err = s.Reports.DecisionUserCount(campaignID, model.DecisionContinue); err != nil {
		return nil, err
	}
	if report.GoBackCount, err = s.Reports.DecisionUserCount(campaignID, model.DecisionBack); err != nil {
		return nil, err
	}

	quizRows, err := s.Reports.QuizRows(campaignID)
	if err != nil {
		return nil, err
	}
	report.QuizResults = LatestAttemptPerUser(quizRows, c.StartAt, c.EndAt)
	report.QuizHistory = BuildQuizHistory(quizRows, c.StartAt, c.EndAt)
	report.QuizCompleted = len(report.QuizResults)

	report.TrainingPercent = TrainingPercent(report.QuizCompleted, report.ContinueCount)
	if report.TotalTargets > 0 {
		report.FailureRatePct = roundPct(float64(report.Clicked) / float64(report.TotalTargets))
		report.ReportRatePct = roundPct(float64(report.Reported) / float64(report.TotalTargets))
	}
	report.AvgScore, report.AvgScorePct = AverageScore(report.QuizResults)

	deptStats, err := s.Reports.DepartmentStats(campaignID)
	if err != nil {
		return nil, err
	}
	for i := range deptStats {
		if deptStats[i].TotalTargets > 0 {
			deptStats[i].ClickRatio = float64(deptStats[i].Clicked) / float64(deptStats[i].TotalTargets)
		}
		deptStats[i].RiskBucket = RiskBucket(deptStats[i].ClickRatio)
	}
	report.DeptStats = deptStats

	if err := s.fillDetail(report, campaignID, detail); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) fillDetail(report *model.CampaignReport, campaignID int, detail string) error {
	switch detail {
	case string(model.EventClicked), string(model.EventReported):
		rows, err := s.Reports.EventDetailRows(campaignID, detail)
		if err != nil {
			return err
		}
		report.Detail, report.DetailRows = detail, rows
	case "ignored":
		rows, err := s.Reports.IgnoredRows(campaignID)
		if err != nil {
			return err
		}
		report.Detail, report.DetailRows = detail, rows
	case "quiz":
		rows := make([]model.RecipientRow, 0, len(report.QuizResults))
		for _, qr := range report.QuizResults {
			at := qr.AttemptAt
			rows = append(rows, model.RecipientRow{
				UserName:   qr.UserName,
				Email:      qr.Email,
				Department: qr.Department,
				FirstAt:    &at,
			})
		}
		report.Detail, report.DetailRows = detail, rows
	case "":
		// no detail list requested
	default:
		// unknown categories are ignored, matching the admin UI behaviour
	}
	return nil
}

// Dashboard computes the cross-campaign overview. Behaviour counts cover
// completed campaigns only; training progress spans all campaigns.
func (s *ReportService) Dashboard() (*model.DashboardReport, error) {
	campaigns, err := s.CampaignRepo.List()
	if err != nil {
		return nil, err
	}

	d := &model.DashboardReport{DeptTraining: []model.DeptTraining{}, TopRiskUsers: []model.RiskyUser{}}
	now := s.now()
	for _, c := range campaigns {
		d.TotalCampaigns++
		switch DeriveStatus(now, c.StartAt, c.EndAt) {
		case model.StatusRunning:
			d.RunningCampaigns++
		case model.StatusScheduled:
			d.ScheduledCampaigns++
		case model.StatusCompleted:
			d.CompletedCampaigns++
		}
	}

	if d.TargetedUsers, err = s.Reports.CompletedTargetedUsers(); err != nil {
		return nil, err
	}
	if d.ClickedUsers, err = s.Reports.CompletedEventUsers([]string{string(model.EventClicked)}); err != nil {
		return nil, err
	}
	if d.ReportedUsers, err = s.Reports.CompletedEventUsers([]string{string(model.EventReported)}); err != nil {
		return nil, err
	}
	if d.IgnoredUsers, err = s.Reports.CompletedIgnoredUsers(); err != nil {
		return nil, err
	}
	if d.IgnoredUsers < 0 {
		d.IgnoredUsers = 0
	}

	trainingRows, err := s.Reports.TrainingRows()
	if err != nil {
		return nil, err
	}
	d.EligibleUsers, d.TrainedUsers, d.DeptTraining = AggregateTraining(trainingRows)
	d.TrainingPercent = TrainingPercent(d.TrainedUsers, d.EligibleUsers)

	rates, err := s.Reports.CampaignReportRates()
	if err != nil {
		return nil, err
	}
	d.BestCampaign, d.BestReportRatePct = BestCampaign(rates)

	deptClicks, err := s.Reports.GlobalDepartmentClickStats()
	if err != nil {
		return nil, err
	}
	d.SafestDepartment, d.RiskiestDepartment = SafestAndRiskiest(deptClicks)

	if d.TopRiskUsers, err = s.Reports.TopRiskUsers(topRiskLimit); err != nil {
		return nil, err
	}
	return d, nil
}

// ====================== Pure aggregation helpers ======================

// ClampedIgnored is total targets minus those who clicked or reported,
// never negative.
func ClampedIgnored(total, acted int) int {
	if total <= 0 {
		return 0
	}
	if acted >= total {
		return 0
	}
	return total - acted
}

// TrainingPercent is round(100 * trained / eligible), 0 when nobody is
// eligible.
func TrainingPercent(trained, eligible int) int {
	if eligible <= 0 {
		return 0
	}
	return roundPct(float64(trained) / float64(eligible))
}

// RiskBucket classifies a department's click ratio.
func RiskBucket(ratio float64) string {
	switch {
	case ratio >= 0.5:
		return model.RiskHigh
	case ratio >= 0.2:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// LatestAttemptPerUser keeps, for each eligible user, the attempt with the
// greatest in-window timestamp. Eligible means the user has an in-window
// "continue" decision; attempts outside the campaign window never count, even
// if the user takes the quiz later.
func LatestAttemptPerUser(rows []model.QuizAttemptRow, start, end time.Time) []model.QuizAttemptRow {
	latest := map[int]model.QuizAttemptRow{}
	for _, row := range rows {
		if row.ContinueAt == nil || !InWindow(*row.ContinueAt, start, end) {
			continue
		}
		if !InWindow(row.AttemptAt, start, end) {
			continue
		}
		prev, ok := latest[row.UserID]
		if !ok || row.AttemptAt.After(prev.AttemptAt) {
			latest[row.UserID] = row
		}
	}

	out := make([]model.QuizAttemptRow, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// BuildQuizHistory groups every eligible in-window attempt per user, in
// chronological order, for the score-history view.
func BuildQuizHistory(rows []model.QuizAttemptRow, start, end time.Time) map[int][]model.QuizHistoryEntry {
	history := map[int][]model.QuizHistoryEntry{}
	for _, row := range rows {
		if row.ContinueAt == nil || !InWindow(*row.ContinueAt, start, end) {
			continue
		}
		if !InWindow(row.AttemptAt, start, end) {
			continue
		}
		history[row.UserID] = append(history[row.UserID], model.QuizHistoryEntry{
			Score:     row.Score,
			Passed:    row.Passed,
			AttemptAt: row.AttemptAt,
		})
	}
	for _, entries := range history {
		sort.Slice(entries, func(i, j int) bool { return entries[i].AttemptAt.Before(entries[j].AttemptAt) })
	}
	return history
}

// AverageScore is the mean of latest-attempt scores, one decimal, plus the
// same mean as a percentage of the maximum possible score.
func AverageScore(results []model.QuizAttemptRow) (float64, int) {
	if len(results) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Score
	}
	mean := float64(sum) / float64(len(results))
	avg := math.Round(mean*10) / 10
	pct := roundPct(mean / float64(QuizMaxScore()))
	return avg, pct
}

// AggregateTraining totals eligible/trained users and rolls them up per
// department.
func AggregateTraining(rows []model.TrainingRow) (int, int, []model.DeptTraining) {
	eligible, trained := 0, 0
	byDept := map[string]*model.DeptTraining{}
	order := []string{}

	for _, row := range rows {
		dept, ok := byDept[row.Department]
		if !ok {
			dept = &model.DeptTraining{Department: row.Department}
			byDept[row.Department] = dept
			order = append(order, row.Department)
		}
		if row.Eligible {
			eligible++
			dept.Eligible++
		}
		if row.Trained {
			trained++
			dept.Trained++
		}
	}

	out := make([]model.DeptTraining, 0, len(order))
	for _, name := range order {
		out = append(out, *byDept[name])
	}
	return eligible, trained, out
}

// BestCampaign picks the campaign with the highest reported/total ratio.
// Ties keep the first encountered.
func BestCampaign(rates []model.CampaignReportRate) (string, float64) {
	name := "Not available yet"
	best := -1.0
	for _, r := range rates {
		if r.TotalTargets <= 0 {
			continue
		}
		ratio := float64(r.Reported) / float64(r.TotalTargets)
		if ratio > best {
			best = ratio
			name = r.Name
		}
	}
	if best < 0 {
		return name, 0
	}
	return name, math.Round(best*1000) / 10
}

// SafestAndRiskiest picks the departments with the lowest and highest click
// ratio. First encountered wins on ties.
func SafestAndRiskiest(stats []model.DeptClickStat) (*model.DeptClickStat, *model.DeptClickStat) {
	var safest, riskiest *model.DeptClickStat
	for i := range stats {
		s := &stats[i]
		if s.TotalTargets > 0 {
			s.Ratio = float64(s.Clicked) / float64(s.TotalTargets)
		}
		if safest == nil || s.Ratio < safest.Ratio {
			safest = s
		}
		if riskiest == nil || s.Ratio > riskiest.Ratio {
			riskiest = s
		}
	}
	return safest, riskiest
}

func roundPct(ratio float64) int {
	return int(math.Round(ratio * 100))
}
