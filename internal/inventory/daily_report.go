package inventory

import (
	"strings"
	"time"

	apperrors "gcpanel/internal/errors"
)

type ReportStatus string

const (
	ReportDraft            ReportStatus = "draft"
	ReportSubmitted        ReportStatus = "submitted"
	ReportApproved         ReportStatus = "approved"
	ReportRevisionRequired ReportStatus = "revision_required"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportDraft, ReportSubmitted, ReportApproved, ReportRevisionRequired:
		return true
	}
	return false
}

type Weather string

const (
	WeatherSunny  Weather = "sunny"
	WeatherCloudy Weather = "cloudy"
	WeatherRainy  Weather = "rainy"
	WeatherSnow   Weather = "snow"
	WeatherWindy  Weather = "windy"
)

func (w Weather) Valid() bool {
	switch w {
	case WeatherSunny, WeatherCloudy, WeatherRainy, WeatherSnow, WeatherWindy:
		return true
	}
	return false
}

type WorkActivity struct {
	Description     string  `json:"description"`
	CrewSize        int     `json:"crew_size"`
	HoursWorked     float64 `json:"hours_worked"`
	Location        string  `json:"location,omitempty"`
	ProgressPercent int     `json:"progress_percent"`
}

type SafetyIncident struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
	ActionTaken string `json:"action_taken,omitempty"`
	ReportedBy  string `json:"reported_by,omitempty"`
}

// DailyReport is the superintendent's end-of-day site log.
type DailyReport struct {
	ID           string           `json:"id"`
	Date         time.Time        `json:"date"`
	ProjectCode  string           `json:"project_code,omitempty"`
	Weather      Weather          `json:"weather"`
	TemperatureF int              `json:"temperature_f"`
	CrewSize     int              `json:"crew_size"`
	WorkHours    float64          `json:"work_hours"`
	Status       ReportStatus     `json:"status"`
	CreatedBy    string           `json:"created_by"`
	WorkSummary  string           `json:"work_summary,omitempty"`
	Challenges   string           `json:"challenges,omitempty"`
	NextDayPlan  string           `json:"next_day_plan,omitempty"`
	Activities   []WorkActivity   `json:"activities,omitempty"`
	Incidents    []SafetyIncident `json:"incidents,omitempty"`
}

// CrewHours is crew size times hours worked.
func (r DailyReport) CrewHours() float64 {
	return float64(r.CrewSize) * r.WorkHours
}

func validateDailyReport(r *DailyReport) error {
	if r.Date.IsZero() {
		return apperrors.Validation("report date is required")
	}
	if strings.TrimSpace(r.CreatedBy) == "" {
		return apperrors.Validation("report author is required")
	}
	if !r.Weather.Valid() {
		return apperrors.Validation("unknown weather %q", r.Weather)
	}
	if r.CrewSize <= 0 {
		return apperrors.Validation("crew size must be greater than 0")
	}
	if r.WorkHours <= 0 || r.WorkHours > 24 {
		return apperrors.Validation("work hours must be between 0 and 24")
	}
	if r.TemperatureF < -50 || r.TemperatureF > 150 {
		return apperrors.Validation("temperature must be between -50 and 150 F")
	}
	for _, a := range r.Activities {
		if a.ProgressPercent < 0 || a.ProgressPercent > 100 {
			return apperrors.Validation("activity progress must be between 0 and 100")
		}
	}
	if r.Status == "" {
		r.Status = ReportDraft
	}
	if !r.Status.Valid() {
		return apperrors.Validation("unknown report status %q", r.Status)
	}
	return nil
}

// DailyReportStore is the daily site log.
type DailyReportStore struct {
	*Store[DailyReport]
}

// NewDailyReportStore returns a log holding the last few days of sample reports.
func NewDailyReportStore(now time.Time) *DailyReportStore {
	s := &DailyReportStore{NewStore("daily report", func(r *DailyReport) *string { return &r.ID }, validateDailyReport)}
	day := func(n int) time.Time {
		y, m, d := now.AddDate(0, 0, -n).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	s.mustSeed(
		DailyReport{Date: day(2), ProjectCode: "HCC-001", Weather: WeatherSunny, TemperatureF: 72, CrewSize: 24,
			WorkHours: 8, Status: ReportApproved, CreatedBy: "john.smith",
			WorkSummary: "Completed L3 slab pour and started L4 formwork.",
			Activities: []WorkActivity{
				{Description: "Slab pour, Level 3", CrewSize: 12, HoursWorked: 8, Location: "Level 3", ProgressPercent: 100},
				{Description: "Formwork, Level 4", CrewSize: 8, HoursWorked: 6, Location: "Level 4", ProgressPercent: 35},
			}},
		DailyReport{Date: day(1), ProjectCode: "HCC-001", Weather: WeatherRainy, TemperatureF: 58, CrewSize: 16,
			WorkHours: 6.5, Status: ReportSubmitted, CreatedBy: "john.smith",
			WorkSummary: "Rain delay in the morning; interior MEP rough-in continued.",
			Challenges:  "Crane stood down for 2 hours due to wind.",
			Incidents: []SafetyIncident{{Description: "Slip on wet decking", Severity: "minor",
				ActionTaken: "First aid, area barricaded", ReportedBy: "lisa.park"}}},
		DailyReport{Date: day(0), ProjectCode: "HCC-001", Weather: WeatherCloudy, TemperatureF: 64, CrewSize: 22,
			WorkHours: 8, Status: ReportDraft, CreatedBy: "john.smith",
			NextDayPlan: "Strip L3 shoring, continue L4 formwork."},
	)
	return s
}

func (s *DailyReportStore) ByStatus(status ReportStatus) []DailyReport {
	return s.Filter(func(r DailyReport) bool { return r.Status == status })
}

// Between lists reports dated within [from, to], compared by calendar day.
func (s *DailyReportStore) Between(from, to time.Time) []DailyReport {
	lo, hi := from.Format(time.DateOnly), to.Format(time.DateOnly)
	return s.Filter(func(r DailyReport) bool {
		d := r.Date.Format(time.DateOnly)
		return d >= lo && d <= hi
	})
}

// Latest returns the most recently dated report, or false when the log is empty.
func (s *DailyReportStore) Latest() (DailyReport, bool) {
	var (
		latest DailyReport
		found  bool
	)
	for _, r := range s.List() {
		if !found || r.Date.After(latest.Date) {
			latest, found = r, true
		}
	}
	return latest, found
}

// TotalCrewHours sums crew hours across every report.
func (s *DailyReportStore) TotalCrewHours() float64 {
	var total float64
	for _, r := range s.List() {
		total += r.CrewHours()
	}
	return total
}
