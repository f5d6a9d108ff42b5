// Package report derives read-only figures from a roster snapshot. Nothing
// here mutates its input; every figure is recomputed from scratch.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"grower/internal/roster"
)

// AllClasses is the class filter that matches every class.
const AllClasses = "all"

// DefaultTrendDays is the trailing window of the attendance trend.
const DefaultTrendDays = 7

// Query selects what the reports look at.
type Query struct {
	Date   string // YYYY-MM-DD
	Class  string // class name or AllClasses; empty means AllClasses
	Search string
}

func matchesClass(s roster.Student, class string) bool {
	return class == "" || class == AllClasses || s.ClassName == class
}

// FilterStudents keeps students whose name contains the search text
// (case-insensitive) and whose class matches the filter.
func FilterStudents(list []roster.Student, q Query) []roster.Student {
	needle := strings.ToLower(q.Search)
	out := make([]roster.Student, 0, len(list))
	for _, s := range list {
		if !strings.Contains(strings.ToLower(s.Name), needle) {
			continue
		}
		if !matchesClass(s, q.Class) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Classes returns the distinct class names in roster order.
func Classes(list []roster.Student) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range list {
		if !seen[s.ClassName] {
			seen[s.ClassName] = true
			out = append(out, s.ClassName)
		}
	}
	return out
}

// MonthKey returns the YYYY-MM prefix of a date key.
func MonthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// Fees splits the monthly fees of list by whether month is paid.
func Fees(list []roster.Student, month string) (collected, pending float64) {
	for _, s := range list {
		if s.HasPaid(month) {
			collected += s.FeeAmount
		} else {
			pending += s.FeeAmount
		}
	}
	return collected, pending
}

// Absentees returns students marked absent on date.
func Absentees(list []roster.Student, date string) []roster.Student {
	out := make([]roster.Student, 0)
	for _, s := range list {
		if s.Mark(date) == roster.StatusAbsent {
			out = append(out, s)
		}
	}
	return out
}

// MonthTotal is the fee collected for one month.
type MonthTotal struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// MonthlyHistory totals fees per paid month over the whole roster, newest
// month first.
func MonthlyHistory(list []roster.Student) []MonthTotal {
	totals := make(map[string]float64)
	for _, s := range list {
		for _, m := range s.PaidMonths {
			totals[m] += s.FeeAmount
		}
	}
	out := make([]MonthTotal, 0, len(totals))
	for m, amt := range totals {
		out = append(out, MonthTotal{Month: m, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// LifetimeRevenue is the sum of fee times paid months over the whole roster.
func LifetimeRevenue(list []roster.Student) float64 {
	var total float64
	for _, s := range list {
		total += s.FeeAmount * float64(len(s.PaidMonths))
	}
	return total
}

// DayAttendance is the share of students present on one day.
type DayAttendance struct {
	Date    string `json:"date"`
	Percent int    `json:"percent"`
}

// AttendanceTrend returns, oldest first, the rounded percentage of students
// in class present on each of the days days ending at now.
func AttendanceTrend(list []roster.Student, class string, now time.Time, days int) []DayAttendance {
	var members []roster.Student
	for _, s := range list {
		if matchesClass(s, class) {
			members = append(members, s)
		}
	}
	denom := len(members)
	if denom == 0 {
		denom = 1
	}
	out := make([]DayAttendance, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := roster.DateKey(now.AddDate(0, 0, -i))
		present := 0
		for _, s := range members {
			if s.Mark(date) == roster.StatusPresent {
				present++
			}
		}
		out = append(out, DayAttendance{Date: date, Percent: percent(float64(present), float64(denom))})
	}
	return out
}

// AverageAttendance is the rounded mean of the daily percentages.
func AverageAttendance(trend []DayAttendance) int {
	if len(trend) == 0 {
		return 0
	}
	sum := 0
	for _, d := range trend {
		sum += d.Percent
	}
	return int(math.Round(float64(sum) / float64(len(trend))))
}

// RecoveryRate is the rounded percentage of owed fees that are paid.
func RecoveryRate(collected, pending float64) int {
	total := collected + pending
	if total == 0 {
		total = 1
	}
	return percent(collected, total)
}

func percent(part, whole float64) int {
	return int(math.Round(part / whole * 100))
}

// Summary bundles the figures shown on the dashboard.
type Summary struct {
	Date              string           `json:"date"`
	Month             string           `json:"month"`
	Class             string           `json:"class"`
	StudentCount      int              `json:"student_count"`
	FeesCollected     float64          `json:"fees_collected"`
	FeesPending       float64          `json:"fees_pending"`
	RecoveryRate      int              `json:"recovery_rate"`
	LifetimeRevenue   float64          `json:"lifetime_revenue"`
	Absentees         []roster.Student `json:"absentees"`
	MonthlyHistory    []MonthTotal     `json:"monthly_history"`
	AttendanceTrend   []DayAttendance  `json:"attendance_trend"`
	AverageAttendance int              `json:"average_attendance"`
}

// Summarize computes every dashboard figure for q. The trend is anchored at
// now rather than at q.Date.
func Summarize(list []roster.Student, q Query, now time.Time) Summary {
	if q.Class == "" {
		q.Class = AllClasses
	}
	filtered := FilterStudents(list, q)
	month := MonthKey(q.Date)
	collected, pending := Fees(filtered, month)
	trend := AttendanceTrend(list, q.Class, now, DefaultTrendDays)
	return Summary{
		Date:              q.Date,
		Month:             month,
		Class:             q.Class,
		StudentCount:      len(filtered),
		FeesCollected:     collected,
		FeesPending:       pending,
		RecoveryRate:      RecoveryRate(collected, pending),
		LifetimeRevenue:   LifetimeRevenue(list),
		Absentees:         Absentees(filtered, q.Date),
		MonthlyHistory:    MonthlyHistory(list),
		AttendanceTrend:   trend,
		AverageAttendance: AverageAttendance(trend),
	}
}
