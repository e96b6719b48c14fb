package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/sloi/internal/app"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/server"
)

// Registrar ties the auth endpoints into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the auth service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

type loginRequest struct {
	InitData string `json:"initData" binding:"required"`
}

// Register attaches POST /api/auth/telegram (public).
func (r *Registrar) Register(routes *server.Routes) {
	svc := NewService(r.appCtx)

	routes.Public.POST("/auth/telegram", func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			svcErr.Respond(c, svcErr.FromBinding(err))
			return
		}

		res, err := svc.Login(c.Request.Context(), req.InitData)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"user":       res.User,
			"token":      res.Token,
			"expires_at": res.ExpiresAt,
			"is_new":     res.Created,
			"is_admin":   r.appCtx.Config.IsAdmin(res.User.TelegramID),
		})
	})
}
