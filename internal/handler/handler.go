package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grower/internal/auth"
	"grower/internal/httpmiddleware"
	"grower/internal/report"
	"grower/internal/roster"
	"grower/internal/session"
)

// Options configures the HTTP surface.
type Options struct {
	SigningKey      string
	Issuer          string
	SessionTTL      time.Duration
	RateLimitPerMin int
	AllowOrigins    []string // empty allows any origin
}

// Handler serves the roster API over one session.
type Handler struct {
	sess *session.Session
	opts Options
}

// New builds the router with the global middleware and every route.
func New(sess *session.Session, opts Options) *gin.Engine {
	h := &Handler{sess: sess, opts: opts}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(corsConfig(opts.AllowOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.RequestID())
	if opts.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin).GinMiddleware())
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.health)

	v1 := r.Group("/v1")
	v1.POST("/session", h.login)
	v1.GET("/session", h.status)
	v1.GET("/license", h.license)

	authed := v1.Group("", auth.SessionAuth(opts.SigningKey, opts.Issuer, sess.Role))
	authed.DELETE("/session", h.logout)
	authed.POST("/session/reauth", h.reauth)

	authed.GET("/students", h.listStudents)
	authed.POST("/students", h.addStudent)
	authed.DELETE("/students/:id", h.deleteStudent)
	authed.POST("/students/:id/attendance", h.toggleAttendance)
	authed.POST("/students/:id/paid", h.togglePaid)

	authed.GET("/reports/summary", h.summary)
	authed.GET("/reports/absentees", h.absentees)
	authed.GET("/reports/export.csv", h.export)

	authed.PUT("/license", h.setLicense)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", httpmiddleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (h *Handler) health(c *gin.Context) {
	healthy := h.sess.Healthy(c.Request.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "store": healthy, "sync": h.sess.SyncStatus()})
}

// query reads the date, class and q filters shared by listing and reports.
func (h *Handler) query(c *gin.Context) (report.Query, bool) {
	q := report.Query{
		Date:   c.DefaultQuery("date", h.sess.Today()),
		Class:  c.DefaultQuery("class", report.AllClasses),
		Search: c.Query("q"),
	}
	if !roster.ValidDate(q.Date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": roster.ErrInvalidDate.Error()})
		return q, false
	}
	return q, true
}

// fail maps session errors onto status codes.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *roster.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, auth.ErrAuthFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong PIN"})
	case errors.Is(err, auth.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrExpired):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "license": h.sess.License()})
	case errors.Is(err, auth.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidExpiry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("request %s failed: %v", c.GetString("request_id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
