package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kuroukai/Kuroukai-free-api/src/models"
	"github.com/Kuroukai/Kuroukai-free-api/src/services"
)

// KeyHandler serves the /api/keys routes
type KeyHandler struct {
	keys *services.KeyService
}

// NewKeyHandler creates a new key handler
func NewKeyHandler(keys *services.KeyService) *KeyHandler {
	return &KeyHandler{keys: keys}
}

// CreateKeyRequest is the body of POST /api/keys/create
type CreateKeyRequest struct {
	UserID string `json:"user_id"`
	Hours  *int   `json:"hours"`
}

// SetActiveRequest is the body of PUT /api/keys/:keyId/active
type SetActiveRequest struct {
	Active *bool `json:"active"`
}

// EditExpiryRequest is the body of PUT /api/keys/:keyId/expiry.
// expires_at is accepted as an alias.
type EditExpiryRequest struct {
	Expiry    string `json:"expiry"`
	ExpiresAt string `json:"expires_at"`
}

// respondKeyError maps service errors to HTTP responses. fallback is used
// for unexpected failures, whose details are already logged by the service.
func respondKeyError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	msg := fallback

	switch {
	case errors.Is(err, services.ErrKeyNotFound):
		status, msg = http.StatusNotFound, "Key not found"
	case errors.Is(err, services.ErrInvalidUserID):
		status, msg = http.StatusBadRequest, "user_id is required"
	case errors.Is(err, services.ErrInvalidDuration):
		status, msg = http.StatusBadRequest, "hours must be a positive number"
	case errors.Is(err, services.ErrInvalidTimestamp):
		status, msg = http.StatusBadRequest, "Invalid date format"
	case errors.Is(err, services.ErrInvalidInput):
		status, msg = http.StatusBadRequest, "Invalid input"
	}

	c.JSON(status, gin.H{"error": msg, "code": status})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": http.StatusBadRequest})
}

// validityCode is 200 for a usable key and 410 (gone) otherwise
func validityCode(valid bool) int {
	if valid {
		return http.StatusOK
	}
	return http.StatusGone
}

// keySummary renders a key view without the owner's id
func keySummary(v services.KeyView) gin.H {
	return gin.H{
		"key_id":         v.Key.KeyID,
		"valid":          v.Valid,
		"status":         v.Key.Status,
		"created_at":     v.Key.CreatedAt,
		"expires_at":     v.Key.ExpiresAt,
		"time_remaining": v.TimeRemaining,
		"usage_count":    v.Key.UsageCount,
		"last_accessed":  v.Key.LastAccessedAt,
	}
}

// HandleCreate issues a new key
func (kh *KeyHandler) HandleCreate(c *gin.Context) {
	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	key, err := kh.keys.CreateKey(c.Request.Context(), services.CreateKeyRequest{
		UserID:    req.UserID,
		Hours:     req.Hours,
		SourceIP:  c.ClientIP(),
		CreatedBy: models.CreatedByAPI,
	})
	if err != nil {
		respondKeyError(c, err, "Failed to create key")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":  "Key created successfully",
		"code": http.StatusOK,
		"data": gin.H{
			"key_id":          key.KeyID,
			"user_id":         key.UserID,
			"expires_at":      key.ExpiresAt,
			"valid_for_hours": int(key.ExpiresAt.Sub(key.CreatedAt) / time.Hour),
		},
	})
}

// HandleValidate checks a key and records a usage when it is valid
func (kh *KeyHandler) HandleValidate(c *gin.Context) {
	v, err := kh.keys.Validate(c.Request.Context(), c.Param("keyId"))
	if err != nil {
		respondKeyError(c, err, "Database error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":          v.Valid,
		"key_id":         v.Key.KeyID,
		"user_id":        v.Key.UserID,
		"status":         v.Key.Status,
		"created_at":     v.Key.CreatedAt,
		"expires_at":     v.Key.ExpiresAt,
		"time_remaining": v.TimeRemaining,
		"usage_count":    v.Key.UsageCount,
		"code":           validityCode(v.Valid),
	})
}

// HandleInfo returns a key's details without recording usage
func (kh *KeyHandler) HandleInfo(c *gin.Context) {
	v, err := kh.keys.GetInfo(c.Request.Context(), c.Param("keyId"))
	if err != nil {
		respondKeyError(c, err, "Database error")
		return
	}

	msg := "Key is active"
	if !v.Valid {
		msg = "Key is expired or inactive"
	}

	data := keySummary(*v)
	data["user_id"] = v.Key.UserID

	c.JSON(http.StatusOK, gin.H{
		"msg":  msg,
		"code": validityCode(v.Valid),
		"data": data,
	})
}

// HandleListByUser lists a user's keys, newest first
func (kh *KeyHandler) HandleListByUser(c *gin.Context) {
	userID := c.Param("userId")

	views, err := kh.keys.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondKeyError(c, err, "Database error")
		return
	}

	keys := make([]gin.H, 0, len(views))
	for _, v := range views {
		keys = append(keys, keySummary(v))
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":     fmt.Sprintf("Found %d keys for user", len(keys)),
		"code":    http.StatusOK,
		"user_id": userID,
		"keys":    keys,
	})
}

// HandleDelete permanently removes a key
func (kh *KeyHandler) HandleDelete(c *gin.Context) {
	if err := kh.keys.DeleteKey(c.Request.Context(), c.Param("keyId")); err != nil {
		respondKeyError(c, err, "Failed to delete key")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":  "Key deleted successfully",
		"code": http.StatusOK,
	})
}

// HandleSetActive activates or deactivates a key
func (kh *KeyHandler) HandleSetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		badRequest(c, "active must be a boolean")
		return
	}

	key, err := kh.keys.SetActive(c.Request.Context(), c.Param("keyId"), *req.Active)
	if err != nil {
		respondKeyError(c, err, "Failed to update key")
		return
	}

	msg := "Key deactivated"
	if *req.Active {
		msg = "Key activated"
	}
	c.JSON(http.StatusOK, gin.H{
		"msg":  msg,
		"code": http.StatusOK,
		"data": key,
	})
}

// HandleEditExpiry replaces a key's expiry timestamp
func (kh *KeyHandler) HandleEditExpiry(c *gin.Context) {
	var req EditExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	raw := req.Expiry
	if raw == "" {
		raw = req.ExpiresAt
	}

	key, err := kh.keys.EditExpiry(c.Request.Context(), c.Param("keyId"), raw)
	if err != nil {
		respondKeyError(c, err, "Failed to update key")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":  "Key expiry updated",
		"code": http.StatusOK,
		"data": key,
	})
}

// HandleBlockUser blocks every key the user owns
func (kh *KeyHandler) HandleBlockUser(c *gin.Context) {
	userID := c.Param("userId")

	n, err := kh.keys.BlockUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No keys found for user", "code": http.StatusNotFound})
			return
		}
		respondKeyError(c, err, "Failed to block user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":     "User blocked",
		"code":    http.StatusOK,
		"user_id": userID,
		"blocked": n,
	})
}
