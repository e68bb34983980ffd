package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ringtap/ringtap/internal/errs"
	"github.com/ringtap/ringtap/internal/service"
)

// RingHandler wires the ring lifecycle service into HTTP handlers.
type RingHandler struct {
	rings    service.RingService
	verifier *TokenVerifier
	log      *zap.Logger
}

// NewRingHandler constructs the handler set.
func NewRingHandler(rings service.RingService, verifier *TokenVerifier, log *zap.Logger) *RingHandler {
	return &RingHandler{rings: rings, verifier: verifier, log: log}
}

type claimReq struct {
	UID    string `json:"uid"`
	UserID string `json:"user_id"`
}

type claimOrCreateReq struct {
	UserID string `json:"user_id"`
}

type setupClaimReq struct {
	SetupID string `json:"setup_id"`
}

// Activate handles GET /rings/activate?r=<chipUid>.
func (h *RingHandler) Activate(c *gin.Context) {
	deepLink, err := h.rings.Activate(c.Request.Context(), c.Query("r"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deep_link": deepLink})
}

// Claim handles POST /rings/claim.
func (h *RingHandler) Claim(c *gin.Context) {
	var req claimReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.rings.ClaimByUID(c.Request.Context(), req.UID, req.UserID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "claimed"})
}

// ClaimOrCreate handles POST /rings/claim-or-create.
func (h *RingHandler) ClaimOrCreate(c *gin.Context) {
	var req claimOrCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chipUID, alreadyLinked, err := h.rings.ClaimOrCreateForUser(c.Request.Context(), req.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chip_uid": chipUID, "already_linked": alreadyLinked})
}

// SetupClaim handles POST /rings/setup-claim (bearer auth; RequireAuth ran).
func (h *RingHandler) SetupClaim(c *gin.Context) {
	var req setupClaimReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := c.GetString(ctxUserID)
	alreadyLinked, err := h.rings.ClaimForSetup(c.Request.Context(), req.SetupID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "already_linked": alreadyLinked})
}

// Status handles GET /rings/status?uid=<chipUid>. A valid bearer token with
// the service role elevates the call; anything else is a public read.
func (h *RingHandler) Status(c *gin.Context) {
	elevated := false
	if token, ok := bearerToken(c); ok {
		if _, role, err := h.verifier.Verify(token); err == nil && role == RoleService {
			elevated = true
		}
	}

	info, err := h.rings.Status(c.Request.Context(), c.Query("uid"), elevated)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        info.Status,
		"chip_uid":      info.ChipUID,
		"ring_model":    info.RingModel,
		"model_url":     info.ModelURL,
		"owner_user_id": info.OwnerUserID,
	})
}

// writeError maps service errors onto HTTP status codes. Ownership conflicts
// carry the current owner id for client messaging.
func (h *RingHandler) writeError(c *gin.Context, err error) {
	var conflict *errs.OwnershipConflict
	switch {
	case errors.Is(err, errs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":         "already claimed by another owner",
			"owner_user_id": conflict.OwnerUserID,
		})
	case errors.Is(err, errs.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already claimed"})
	case errors.Is(err, errs.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, errs.ErrConfiguration):
		h.log.Error("misconfiguration", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
	default:
		h.log.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
