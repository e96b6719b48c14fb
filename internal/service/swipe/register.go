package swipe

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/db"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/server"
	"github.com/oggyb/sloi/internal/service/auth"
)

// Registrar ties the interaction endpoints into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the swipe service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

type decisionRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	TargetUserID string `json:"target_user_id" binding:"required"`
	IsSuperLike  bool   `json:"is_super_like"`
}

// Register attaches POST /api/interactions/like and /dislike (protected).
func (r *Registrar) Register(routes *server.Routes) {
	svc := NewService(r.appCtx)

	g := routes.Protected.Group("/interactions")
	g.POST("/like", r.handle(svc, db.ActionLike))
	g.POST("/dislike", r.handle(svc, db.ActionDislike))
}

func (r *Registrar) handle(svc *Service, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req decisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			svcErr.Respond(c, svcErr.FromBinding(err))
			return
		}
		if err := auth.RequireSelf(c, req.UserID); err != nil {
			svcErr.Respond(c, err)
			return
		}

		res, err := svc.Decide(c.Request.Context(), Decision{
			ActorID:   req.UserID,
			TargetID:  req.TargetUserID,
			Action:    action,
			SuperLike: req.IsSuperLike,
		})
		if err != nil {
			svcErr.Respond(c, err)
			return
		}

		body := gin.H{
			"interaction": res.Interaction,
			"isMatch":     res.IsMatch,
			"swipeCount":  res.SwipeCount,
		}
		if res.Match != nil {
			body["match"] = res.Match
		}
		c.JSON(http.StatusOK, body)
	}
}
