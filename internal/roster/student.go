package roster

import (
	"encoding/json"
	"log"
	"time"
)

const (
	// DateLayout is the layout of attendance date keys.
	DateLayout = "2006-01-02"
	// MonthLayout is the layout of fee month keys.
	MonthLayout = "2006-01"

	// DefaultTeacher is stored when a student is added without a teacher.
	DefaultTeacher = "Unassigned"
)

// AttendanceStatus is the mark recorded for a student on one day.
type AttendanceStatus string

const (
	StatusNone    AttendanceStatus = "none"
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
)

// ParseStatus maps any unrecognized value to StatusNone.
func ParseStatus(s string) AttendanceStatus {
	switch AttendanceStatus(s) {
	case StatusPresent:
		return StatusPresent
	case StatusAbsent:
		return StatusAbsent
	default:
		return StatusNone
	}
}

// UnmarshalJSON decodes a persisted mark; unknown strings become StatusNone.
func (s *AttendanceStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = StatusNone
		return nil
	}
	*s = ParseStatus(raw)
	return nil
}

// Student is one tuition enrollee.
type Student struct {
	ID                int64                       `json:"id"`
	Name              string                      `json:"name"`
	ClassName         string                      `json:"className"`
	TeacherName       string                      `json:"teacherName"`
	FeeAmount         float64                     `json:"feeAmount"`
	Phone             string                      `json:"phone"`
	PaidMonths        []string                    `json:"paidMonths"`
	AttendanceHistory map[string]AttendanceStatus `json:"attendanceHistory"`
}

// Mark returns the attendance mark for the date key.
func (s Student) Mark(date string) AttendanceStatus {
	if st, ok := s.AttendanceHistory[date]; ok {
		return st
	}
	return StatusNone
}

// HasPaid reports whether the month key is marked paid.
func (s Student) HasPaid(month string) bool {
	for _, m := range s.PaidMonths {
		if m == month {
			return true
		}
	}
	return false
}

// Count returns how many days carry the given mark.
func (s Student) Count(status AttendanceStatus) int {
	n := 0
	for _, v := range s.AttendanceHistory {
		if v == status {
			n++
		}
	}
	return n
}

func (s Student) clone() Student {
	c := s
	c.PaidMonths = make([]string, len(s.PaidMonths))
	copy(c.PaidMonths, s.PaidMonths)
	c.AttendanceHistory = make(map[string]AttendanceStatus, len(s.AttendanceHistory))
	for k, v := range s.AttendanceHistory {
		c.AttendanceHistory[k] = v
	}
	return c
}

// Normalize repairs a roster read from storage: nil collections become empty,
// paid months are deduplicated, a blank teacher gets the default and a
// repeated id is replaced by a fresh one.
func Normalize(list []Student) []Student {
	out := make([]Student, 0, len(list))
	seen := make(map[int64]bool, len(list))
	next := NextID(list, time.Time{})
	for _, s := range list {
		if seen[s.ID] {
			log.Printf("student %q reuses id %d, reassigned to %d", s.Name, s.ID, next)
			s.ID = next
			next++
		}
		seen[s.ID] = true
		if s.AttendanceHistory == nil {
			s.AttendanceHistory = map[string]AttendanceStatus{}
		}
		s.PaidMonths = dedupe(s.PaidMonths)
		if s.TeacherName == "" {
			s.TeacherName = DefaultTeacher
		}
		out = append(out, s)
	}
	return out
}

func dedupe(months []string) []string {
	seen := make(map[string]struct{}, len(months))
	out := make([]string, 0, len(months))
	for _, m := range months {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidMonth reports whether s is a YYYY-MM month key.
func ValidMonth(s string) bool {
	_, err := time.Parse(MonthLayout, s)
	return err == nil
}

// DateKey formats t as a date key in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
