package roster

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T) []Student {
	t.Helper()
	list, _, err := AddStudent(nil, NewStudent{Name: "Asha", Phone: "919800000001", ClassName: "8", FeeAmount: 500}, testNow)
	require.NoError(t, err)
	list, _, err = AddStudent(list, NewStudent{Name: "Ravi", Phone: "919800000002", ClassName: "9", FeeAmount: 300, TeacherName: "Meena"}, testNow)
	require.NoError(t, err)
	return list
}

func TestAddStudent(t *testing.T) {
	tests := []struct {
		name    string
		ns      NewStudent
		wantErr bool
		fields  []string
	}{
		{name: "valid", ns: NewStudent{Name: "Asha", Phone: "123", ClassName: "8", FeeAmount: 500}},
		{name: "valid with teacher", ns: NewStudent{Name: "Asha", Phone: "123", ClassName: "8", FeeAmount: 500, TeacherName: "Meena"}},
		{name: "no name", ns: NewStudent{Phone: "123", ClassName: "8", FeeAmount: 500}, wantErr: true, fields: []string{"name"}},
		{name: "blank name", ns: NewStudent{Name: "   ", Phone: "123", ClassName: "8", FeeAmount: 500}, wantErr: true, fields: []string{"name"}},
		{name: "no phone", ns: NewStudent{Name: "Asha", ClassName: "8", FeeAmount: 500}, wantErr: true, fields: []string{"phone"}},
		{name: "no class", ns: NewStudent{Name: "Asha", Phone: "123", FeeAmount: 500}, wantErr: true, fields: []string{"className"}},
		{name: "zero fee", ns: NewStudent{Name: "Asha", Phone: "123", ClassName: "8"}, wantErr: true, fields: []string{"feeAmount"}},
		{name: "negative fee", ns: NewStudent{Name: "Asha", Phone: "123", ClassName: "8", FeeAmount: -1}, wantErr: true, fields: []string{"feeAmount"}},
		{name: "everything missing", ns: NewStudent{}, wantErr: true, fields: []string{"name", "phone", "className", "feeAmount"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := seed(t)
			next, created, err := AddStudent(orig, tt.ns, testNow)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				assert.Len(t, next, len(orig))
				var got []string
				for _, f := range err.(*ValidationError).Fields {
					got = append(got, f.Field)
				}
				assert.ElementsMatch(t, tt.fields, got)
				return
			}
			require.NoError(t, err)
			require.Len(t, next, len(orig)+1)
			assert.Len(t, orig, 2, "input snapshot must not change")
			assert.Equal(t, created, next[len(next)-1])
			assert.Empty(t, created.PaidMonths)
			assert.Empty(t, created.AttendanceHistory)
			if tt.ns.TeacherName == "" {
				assert.Equal(t, DefaultTeacher, created.TeacherName)
			} else {
				assert.Equal(t, tt.ns.TeacherName, created.TeacherName)
			}
		})
	}
}

func TestNextIDUnique(t *testing.T) {
	list := seed(t)
	assert.NotEqual(t, list[0].ID, list[1].ID)
	assert.Greater(t, list[1].ID, list[0].ID)
	assert.Equal(t, testNow.UnixMilli(), list[0].ID)

	later := testNow.Add(time.Hour)
	assert.Equal(t, later.UnixMilli(), NextID(list, later))
}

func TestDeleteStudent(t *testing.T) {
	list := seed(t)

	next, ok := DeleteStudent(list, list[0].ID)
	assert.True(t, ok)
	require.Len(t, next, 1)
	assert.Equal(t, "Ravi", next[0].Name)
	assert.Len(t, list, 2)

	same, ok := DeleteStudent(next, 42)
	assert.False(t, ok)
	assert.Equal(t, next, same)
}

func TestToggleAttendance(t *testing.T) {
	list := seed(t)
	id := list[0].ID
	date := "2024-05-15"

	steps := []struct {
		status AttendanceStatus
		want   AttendanceStatus
	}{
		{StatusPresent, StatusPresent},
		{StatusPresent, StatusNone},
		{StatusPresent, StatusPresent},
		{StatusAbsent, StatusAbsent},
		{StatusPresent, StatusPresent},
		{StatusAbsent, StatusAbsent},
		{StatusAbsent, StatusNone},
	}
	for i, st := range steps {
		next, found, err := ToggleAttendance(list, id, date, st.status)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equalf(t, st.want, next[0].Mark(date), "step %d", i)
		list = next
	}
	_, ok := list[0].AttendanceHistory[date]
	assert.False(t, ok, "clearing a mark removes the key")
}

func TestToggleAttendanceLeavesOldSnapshot(t *testing.T) {
	list := seed(t)
	next, _, err := ToggleAttendance(list, list[1].ID, "2024-05-15", StatusAbsent)
	require.NoError(t, err)
	assert.Equal(t, StatusNone, list[1].Mark("2024-05-15"))
	assert.Equal(t, StatusAbsent, next[1].Mark("2024-05-15"))
}

func TestToggleAttendanceKeepsEmptyPaidMonths(t *testing.T) {
	list := seed(t)
	next, _, err := ToggleAttendance(list, list[0].ID, "2024-05-14", StatusPresent)
	require.NoError(t, err)
	require.NotNil(t, next[0].PaidMonths)
	assert.Empty(t, next[0].PaidMonths)

	raw, err := json.Marshal(next)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"paidMonths":[]`)
	assert.NotContains(t, string(raw), `null`)

	var back []Student
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, next, Normalize(back))
}

func TestToggleAttendanceInvalid(t *testing.T) {
	list := seed(t)
	tests := []struct {
		name   string
		id     int64
		date   string
		status AttendanceStatus
		found  bool
		err    error
	}{
		{name: "bad date", id: list[0].ID, date: "2024-13-01", status: StatusPresent, err: ErrInvalidDate},
		{name: "not a date", id: list[0].ID, date: "yesterday", status: StatusPresent, err: ErrInvalidDate},
		{name: "none status", id: list[0].ID, date: "2024-05-01", status: StatusNone, err: ErrInvalidStatus},
		{name: "unknown id", id: 7, date: "2024-05-01", status: StatusPresent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, found, err := ToggleAttendance(list, tt.id, tt.date, tt.status)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, list, next)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTogglePaidMonth(t *testing.T) {
	list := seed(t)
	id := list[0].ID

	once, found, err := TogglePaidMonth(list, id, "2024-05")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"2024-05"}, once[0].PaidMonths)

	twice, _, err := TogglePaidMonth(once, id, "2024-05")
	require.NoError(t, err)
	assert.Equal(t, list[0].PaidMonths, twice[0].PaidMonths)
	assert.Equal(t, []string{"2024-05"}, once[0].PaidMonths, "earlier snapshot keeps its months")

	_, _, err = TogglePaidMonth(list, id, "May 2024")
	assert.ErrorIs(t, err, ErrInvalidMonth)

	same, found, err := TogglePaidMonth(list, 1, "2024-05")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, list, same)
}

func TestNormalizeAndDecode(t *testing.T) {
	raw := `[{"id":1,"name":"Asha","className":"8","feeAmount":500,"phone":"1",
		"paidMonths":["2024-05","2024-05","2024-04"],
		"attendanceHistory":{"2024-05-01":"present","2024-05-02":"late","2024-05-03":"absent","2024-05-04":7}},
		{"id":2,"name":"Ravi","className":"9","feeAmount":300,"phone":"2"}]`

	var list []Student
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	list = Normalize(list)

	assert.Equal(t, []string{"2024-05", "2024-04"}, list[0].PaidMonths)
	assert.Equal(t, StatusPresent, list[0].Mark("2024-05-01"))
	assert.Equal(t, StatusNone, list[0].Mark("2024-05-02"))
	assert.Equal(t, StatusAbsent, list[0].Mark("2024-05-03"))
	assert.Equal(t, StatusNone, list[0].Mark("2024-05-04"))
	assert.Equal(t, DefaultTeacher, list[0].TeacherName)
	assert.NotNil(t, list[1].AttendanceHistory)
	assert.Empty(t, list[1].PaidMonths)
}

func TestNormalizeReassignsRepeatedIDs(t *testing.T) {
	list := Normalize([]Student{
		{ID: 5, Name: "Asha"},
		{ID: 9, Name: "Ravi"},
		{ID: 5, Name: "Zoya"},
		{ID: 9, Name: "Meena"},
	})

	ids := make(map[int64]string)
	for _, s := range list {
		_, dup := ids[s.ID]
		assert.Falsef(t, dup, "id %d repeated", s.ID)
		ids[s.ID] = s.Name
	}
	assert.Equal(t, int64(5), list[0].ID)
	assert.Equal(t, int64(9), list[1].ID)
	assert.Equal(t, int64(10), list[2].ID)
	assert.Equal(t, int64(11), list[3].ID)

	next, found, err := TogglePaidMonth(list, list[2].ID, "2024-05")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, next[2].HasPaid("2024-05"))
	assert.False(t, next[0].HasPaid("2024-05"))
}

func TestRosterReplace(t *testing.T) {
	r := New(nil)
	assert.Empty(t, r.Get())

	list := seed(t)
	r.Replace(list)
	assert.Equal(t, list, r.Get())

	s, ok := r.Find(list[1].ID)
	assert.True(t, ok)
	assert.Equal(t, "Ravi", s.Name)
	_, ok = r.Find(99)
	assert.False(t, ok)
}
