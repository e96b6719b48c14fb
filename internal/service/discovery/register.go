package discovery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/sloi/internal/app"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/server"
	"github.com/oggyb/sloi/internal/service/auth"
)

// Registrar ties discovery into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the discovery service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches GET /api/profiles/discover (protected).
func (r *Registrar) Register(routes *server.Routes) {
	svc := NewService(r.appCtx)

	routes.Protected.GET("/profiles/discover", func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			svcErr.Respond(c, svcErr.InvalidArgument("user_id required"))
			return
		}
		if err := auth.RequireSelf(c, userID); err != nil {
			svcErr.Respond(c, err)
			return
		}

		limit := DefaultLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				svcErr.Respond(c, svcErr.InvalidArgument("limit must be a number"))
				return
			}
			limit = n
		}

		batch, err := svc.NextBatch(c.Request.Context(), userID, limit)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"profiles":   batch.Profiles,
			"swipeCount": batch.SwipeCount,
			"isPremium":  batch.IsPremium,
			"dailyLimit": r.appCtx.Config.Limits.DailySwipes,
		})
	})
}
