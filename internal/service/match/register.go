package match

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/dto"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/server"
	"github.com/oggyb/sloi/internal/service/auth"
)

// Registrar ties the match endpoints into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the match service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches GET /api/matches/:user_id (protected).
func (r *Registrar) Register(routes *server.Routes) {
	detector := NewDetector(r.appCtx)

	routes.Protected.GET("/matches/:user_id", func(c *gin.Context) {
		userID := c.Param("user_id")
		if err := auth.RequireSelf(c, userID); err != nil {
			svcErr.Respond(c, err)
			return
		}

		matches, err := detector.ListForUser(c.Request.Context(), userID)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": dto.NewMatches(matches, userID, r.appCtx.Now())})
	})
}
