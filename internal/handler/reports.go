package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"grower/internal/auth"
	"grower/internal/report"
	"grower/internal/roster"
)

// summaryView hides fee figures from roles that may not see revenue.
type summaryView struct {
	Date              string                 `json:"date"`
	Month             string                 `json:"month"`
	Class             string                 `json:"class"`
	StudentCount      int                    `json:"student_count"`
	FeesCollected     *float64               `json:"fees_collected"`
	FeesPending       *float64               `json:"fees_pending"`
	RecoveryRate      *int                   `json:"recovery_rate"`
	LifetimeRevenue   *float64               `json:"lifetime_revenue"`
	MonthlyHistory    []report.MonthTotal    `json:"monthly_history"`
	Absentees         []roster.Student       `json:"absentees"`
	AttendanceTrend   []report.DayAttendance `json:"attendance_trend"`
	AverageAttendance int                    `json:"average_attendance"`
}

func newSummaryView(s report.Summary, role auth.Role) summaryView {
	v := summaryView{
		Date:              s.Date,
		Month:             s.Month,
		Class:             s.Class,
		StudentCount:      s.StudentCount,
		Absentees:         s.Absentees,
		AttendanceTrend:   s.AttendanceTrend,
		AverageAttendance: s.AverageAttendance,
	}
	if auth.SeesRevenue(role) {
		v.FeesCollected = &s.FeesCollected
		v.FeesPending = &s.FeesPending
		v.RecoveryRate = &s.RecoveryRate
		v.LifetimeRevenue = &s.LifetimeRevenue
		v.MonthlyHistory = s.MonthlyHistory
	}
	return v
}

func (h *Handler) summary(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	s, err := h.sess.Summary(q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSummaryView(s, h.sess.Role()))
}

func (h *Handler) absentees(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	list, err := h.sess.Absentees(q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": q.Date, "absentees": list})
}

func (h *Handler) export(c *gin.Context) {
	date := c.DefaultQuery("date", h.sess.Today())
	if !roster.ValidDate(date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": roster.ErrInvalidDate.Error()})
		return
	}
	var buf bytes.Buffer
	if err := h.sess.Export(&buf, date); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.ExportFilename(date)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
