package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grower/internal/auth"
)

func (h *Handler) login(c *gin.Context) {
	var req struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pin is required"})
		return
	}
	role, err := h.sess.Login(req.PIN)
	if err != nil {
		h.fail(c, err)
		return
	}
	tok, err := auth.Issue(role, h.sess.ID(), h.opts.Issuer, h.opts.SigningKey, h.opts.SessionTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":      tok.Value,
		"role":       role,
		"expires_at": tok.ExpiresAt.Unix(),
	})
}

func (h *Handler) logout(c *gin.Context) {
	h.sess.Logout()
	c.Status(http.StatusNoContent)
}

func (h *Handler) reauth(c *gin.Context) {
	h.sess.RequestReauth()
	c.Status(http.StatusNoContent)
}

func (h *Handler) status(c *gin.Context) {
	lic := h.sess.License()
	c.JSON(http.StatusOK, gin.H{
		"role":       h.sess.Role(),
		"entry_open": h.sess.EntryOpen(),
		"expired":    lic.Expired,
		"expiry":     lic.Expiry,
		"sync":       h.sess.SyncStatus(),
	})
}

func (h *Handler) license(c *gin.Context) {
	c.JSON(http.StatusOK, h.sess.License())
}

func (h *Handler) setLicense(c *gin.Context) {
	var req struct {
		Expiry string `json:"expiry" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expiry is required"})
		return
	}
	lic, err := h.sess.SetExpiry(c.Request.Context(), req.Expiry)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lic)
}
