package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grower/internal/report"
	"grower/internal/roster"
)

// studentView is a roster entry as seen on one day.
type studentView struct {
	roster.Student
	Mark     roster.AttendanceStatus `json:"mark"`
	Paid     bool                    `json:"paid"`
	Presents int                     `json:"presents"`
	Absents  int                     `json:"absents"`
}

func newStudentView(s roster.Student, date string) studentView {
	return studentView{
		Student:  s,
		Mark:     s.Mark(date),
		Paid:     s.HasPaid(report.MonthKey(date)),
		Presents: s.Count(roster.StatusPresent),
		Absents:  s.Count(roster.StatusAbsent),
	}
}

func studentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return 0, false
	}
	return id, true
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
}

func (h *Handler) listStudents(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	list, err := h.sess.Students(q)
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]studentView, 0, len(list))
	for _, s := range list {
		views = append(views, newStudentView(s, q.Date))
	}
	classes, err := h.sess.Classes()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": q.Date, "students": views, "classes": classes})
}

func (h *Handler) addStudent(c *gin.Context) {
	var ns roster.NewStudent
	if err := c.ShouldBindJSON(&ns); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.sess.AddStudent(c.Request.Context(), ns)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newStudentView(s, h.sess.Today()))
}

func (h *Handler) deleteStudent(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	confirmed := c.Query("confirm") == "true"
	var asked string
	removed, err := h.sess.DeleteStudent(c.Request.Context(), id, func(s roster.Student) bool {
		asked = s.Name
		return confirmed
	})
	switch {
	case err != nil:
		h.fail(c, err)
	case removed:
		c.Status(http.StatusNoContent)
	case asked != "":
		c.JSON(http.StatusConflict, gin.H{"error": "confirm removal of " + asked + " with ?confirm=true"})
	default:
		notFound(c)
	}
}

func (h *Handler) toggleAttendance(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req struct {
		Date   string `json:"date"`
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Date == "" {
		req.Date = h.sess.Today()
	}
	s, found, err := h.sess.ToggleAttendance(c.Request.Context(), id, req.Date, roster.ParseStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, newStudentView(s, req.Date))
}

func (h *Handler) togglePaid(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req struct {
		Month string `json:"month"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date := h.sess.Today()
	if req.Month == "" {
		req.Month = report.MonthKey(date)
	} else if roster.ValidMonth(req.Month) {
		date = req.Month + "-01"
	}
	s, found, err := h.sess.TogglePaidMonth(c.Request.Context(), id, req.Month)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, newStudentView(s, date))
}
