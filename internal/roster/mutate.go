package roster

import "time"

// NextID returns an id larger than every id in list, using the creation
// time in milliseconds when that is already larger.
func NextID(list []Student, now time.Time) int64 {
	id := now.UnixMilli()
	for _, s := range list {
		if s.ID >= id {
			id = s.ID + 1
		}
	}
	return id
}

// AddStudent validates ns and returns a new snapshot with the student appended.
func AddStudent(list []Student, ns NewStudent, now time.Time) ([]Student, Student, error) {
	if err := ns.Validate(); err != nil {
		return list, Student{}, err
	}
	teacher := ns.TeacherName
	if teacher == "" {
		teacher = DefaultTeacher
	}
	s := Student{
		ID:                NextID(list, now),
		Name:              ns.Name,
		ClassName:         ns.ClassName,
		TeacherName:       teacher,
		FeeAmount:         ns.FeeAmount,
		Phone:             ns.Phone,
		PaidMonths:        []string{},
		AttendanceHistory: map[string]AttendanceStatus{},
	}
	next := make([]Student, 0, len(list)+1)
	next = append(next, list...)
	next = append(next, s)
	return next, s, nil
}

// DeleteStudent returns a snapshot without the student with id.
func DeleteStudent(list []Student, id int64) ([]Student, bool) {
	idx := indexOf(list, id)
	if idx < 0 {
		return list, false
	}
	next := make([]Student, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	return next, true
}

// ToggleAttendance marks status on date, or clears the mark when it already
// equals status. An opposite mark is overwritten in one step.
func ToggleAttendance(list []Student, id int64, date string, status AttendanceStatus) ([]Student, bool, error) {
	if !ValidDate(date) {
		return list, false, NewValidationError(ErrInvalidDate, FieldError{Field: "date", Error: ErrInvalidDate.Error()})
	}
	if status != StatusPresent && status != StatusAbsent {
		return list, false, NewValidationError(ErrInvalidStatus, FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}
	return update(list, id, func(s *Student) {
		if s.Mark(date) == status {
			delete(s.AttendanceHistory, date)
			return
		}
		s.AttendanceHistory[date] = status
	}), indexOf(list, id) >= 0, nil
}

// TogglePaidMonth flips membership of month in the student's paid months.
func TogglePaidMonth(list []Student, id int64, month string) ([]Student, bool, error) {
	if !ValidMonth(month) {
		return list, false, NewValidationError(ErrInvalidMonth, FieldError{Field: "month", Error: ErrInvalidMonth.Error()})
	}
	return update(list, id, func(s *Student) {
		if s.HasPaid(month) {
			kept := s.PaidMonths[:0]
			for _, m := range s.PaidMonths {
				if m != month {
					kept = append(kept, m)
				}
			}
			s.PaidMonths = kept
			return
		}
		s.PaidMonths = append(s.PaidMonths, month)
	}), indexOf(list, id) >= 0, nil
}

// update copies list, applying fn to a clone of the matching student.
func update(list []Student, id int64, fn func(*Student)) []Student {
	idx := indexOf(list, id)
	if idx < 0 {
		return list
	}
	next := make([]Student, len(list))
	copy(next, list)
	s := list[idx].clone()
	fn(&s)
	next[idx] = s
	return next
}

func indexOf(list []Student, id int64) int {
	for i, s := range list {
		if s.ID == id {
			return i
		}
	}
	return -1
}
