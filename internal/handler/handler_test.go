package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grower/internal/auth"
	"grower/internal/session"
	"grower/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	t   *testing.T
	r   *gin.Engine
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, now: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)}
	sess, err := session.Open(context.Background(), store.NewMemory(nil), session.Config{
		PINs:           auth.PINs{Developer: "9999", Owner: "1111", Teacher: "2222"},
		TrialDays:      30,
		DeveloperPhone: "918287282426",
		Now:            func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.r = New(sess, Options{SigningKey: "test-key", Issuer: "grower-test", SessionTTL: time.Hour})
	return f
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *fixture) login(pin string) string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/v1/session", "", map[string]string{"pin": pin})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func (f *fixture) addStudent(token, name, class string) int64 {
	f.t.Helper()
	w := f.do(http.MethodPost, "/v1/students", token, map[string]any{
		"name": name, "phone": "919800000001", "className": class, "feeAmount": 500,
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		ID int64 `json:"id"`
	}
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func path(id int64, suffix string) string {
	return "/v1/students/" + strconv.FormatInt(id, 10) + suffix
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/session", "", map[string]string{"pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/v1/session", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/v1/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok := f.login("1111")
	w = f.do(http.MethodGet, "/v1/session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "owner", body["role"])
	assert.Equal(t, false, body["entry_open"])

	w = f.do(http.MethodGet, "/v1/students", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	f := newFixture(t)
	tok := f.login("1111")

	w := f.do(http.MethodDelete, "/v1/session", tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodGet, "/v1/students", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleSwitchInvalidatesOldToken(t *testing.T) {
	f := newFixture(t)
	owner := f.login("1111")

	w := f.do(http.MethodPost, "/v1/session/reauth", owner, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, true, decode(t, f.do(http.MethodGet, "/v1/session", "", nil))["entry_open"])

	teacher := f.login("2222")
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/students", owner, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/students", teacher, nil).Code)
}

func TestStudentLifecycle(t *testing.T) {
	f := newFixture(t)
	tok := f.login("1111")
	id := f.addStudent(tok, "Asha", "8")
	f.addStudent(tok, "Ravi", "9")

	w := f.do(http.MethodPost, path(id, "/attendance"), tok, map[string]string{"date": "2025-03-10", "status": "absent"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "absent", decode(t, w)["mark"])

	w = f.do(http.MethodPost, path(id, "/paid"), tok, map[string]string{"month": "2025-03"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["paid"])

	w = f.do(http.MethodGet, "/v1/students?class=8", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Date     string `json:"date"`
		Students []struct {
			Name string `json:"name"`
			Mark string `json:"mark"`
			Paid bool   `json:"paid"`
		} `json:"students"`
		Classes []string `json:"classes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, "2025-03-10", list.Date)
	require.Len(t, list.Students, 1)
	assert.Equal(t, "Asha", list.Students[0].Name)
	assert.Equal(t, "absent", list.Students[0].Mark)
	assert.True(t, list.Students[0].Paid)
	assert.Equal(t, []string{"8", "9"}, list.Classes)

	w = f.do(http.MethodGet, "/v1/reports/absentees", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://wa.me/919800000001?text=")
}

func TestStudentErrors(t *testing.T) {
	f := newFixture(t)
	tok := f.login("1111")
	id := f.addStudent(tok, "Asha", "8")

	w := f.do(http.MethodPost, "/v1/students", tok, map[string]any{"name": "Ravi", "feeAmount": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["fields"])

	w = f.do(http.MethodPost, path(id, "/attendance"), tok, map[string]string{"date": "2025-03-10", "status": "late"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, path(id, "/paid"), tok, map[string]string{"month": "March"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, path(42, "/attendance"), tok, map[string]string{"status": "present"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/v1/students/abc/paid", tok, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/v1/students?date=yesterday", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteNeedsConfirm(t *testing.T) {
	f := newFixture(t)
	tok := f.login("1111")
	id := f.addStudent(tok, "Asha", "8")

	w := f.do(http.MethodDelete, path(id, ""), tok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Asha")

	w = f.do(http.MethodDelete, path(id, "?confirm=true"), tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodDelete, path(id, "?confirm=true"), tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTeacherSeesNoRevenue(t *testing.T) {
	f := newFixture(t)
	owner := f.login("1111")
	id := f.addStudent(owner, "Asha", "8")
	w := f.do(http.MethodPost, path(id, "/paid"), owner, map[string]string{"month": "2025-03"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, f.do(http.MethodGet, "/v1/reports/summary", owner, nil))
	assert.Equal(t, 500.0, body["fees_collected"])
	assert.Equal(t, 100.0, body["recovery_rate"])

	teacher := f.login("2222")
	w = f.do(http.MethodGet, "/v1/reports/summary", teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	require.Contains(t, body, "fees_collected")
	assert.Nil(t, body["fees_collected"])
	assert.Nil(t, body["lifetime_revenue"])
	assert.Equal(t, 1.0, body["student_count"])

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, path(id, "/paid"), teacher, map[string]string{"month": "2025-04"}).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/v1/reports/export.csv", teacher, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, "/v1/license", teacher, map[string]string{"expiry": "2030-01-01"}).Code)

	w = f.do(http.MethodPost, path(id, "/attendance"), teacher, map[string]string{"status": "present"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	tok := f.login("1111")
	f.addStudent(tok, "Asha", "8")

	w := f.do(http.MethodGet, "/v1/reports/export.csv", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Grower_Report_2025-03-10.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Name,Phone,Class,Teacher,MonthlyFee"))
}

func TestExpiredLicense(t *testing.T) {
	f := newFixture(t)
	owner := f.login("1111")

	w := f.do(http.MethodGet, "/v1/license", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-04-09", decode(t, w)["expiry"])

	f.now = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	w = f.do(http.MethodGet, "/v1/students", owner, nil)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "renew_link")

	dev := f.login("9999")
	w = f.do(http.MethodPut, "/v1/license", dev, map[string]string{"expiry": "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/v1/license", dev, map[string]string{"expiry": "2026-05-01"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["expired"])

	owner = f.login("1111")
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/students", owner, nil).Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
