package payments

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/sloi/internal/app"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/server"
	"github.com/oggyb/sloi/internal/service/auth"
)

// Registrar ties invoice creation into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
	links  LinkCreator
}

// NewRegistrar creates a new Registrar for payments
func NewRegistrar(appCtx *app.AppContext, links LinkCreator) *Registrar {
	return &Registrar{appCtx: appCtx, links: links}
}

type invoiceRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Register attaches POST /api/stars/invoice (protected).
func (r *Registrar) Register(routes *server.Routes) {
	invoicer := NewInvoicer(r.appCtx, r.links)

	routes.Protected.POST("/stars/invoice", func(c *gin.Context) {
		var req invoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			svcErr.Respond(c, svcErr.FromBinding(err))
			return
		}
		if err := auth.RequireSelf(c, req.UserID); err != nil {
			svcErr.Respond(c, err)
			return
		}

		link, err := invoicer.CreateInvoice(c.Request.Context(), req.UserID)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoice_link": link})
	})
}
