package httpserver

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ringtap/ringtap/internal/limiter"
)

// NewRouter assembles the HTTP API.
func NewRouter(h *RingHandler, verifier *TokenVerifier, lim limiter.Limiter, origins []string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(log), RequestLogger(log))

	if len(origins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = origins
		cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
		cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		r.Use(cors.New(cfg))
	}

	api := r.Group("/api/v1")
	{
		rings := api.Group("/rings")
		{
			rings.GET("/activate", h.Activate)
			rings.GET("/status", h.Status)

			claim := rings.Group("")
			claim.Use(ClaimLimit(lim, log))
			{
				claim.POST("/claim", h.Claim)
				claim.POST("/claim-or-create", h.ClaimOrCreate)
				claim.POST("/setup-claim", RequireAuth(verifier), h.SetupClaim)
			}
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
