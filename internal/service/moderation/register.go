package moderation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/sloi/internal/app"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/server"
	"github.com/oggyb/sloi/internal/service/auth"
)

// Registrar ties reports and the admin moderation endpoints into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

type reportRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	ReportedID string `json:"reported_id" binding:"required"`
	Reason     string `json:"reason" binding:"required,max=512"`
}

// banRequest carries either a report decision (report_id + action) or a
// direct ban (user_id + banned).
type banRequest struct {
	ReportID   uint64 `json:"report_id"`
	ReportedID string `json:"reported_id"`
	Action     string `json:"action" binding:"omitempty,oneof=ban dismiss"`

	UserID string `json:"user_id"`
	Banned *bool  `json:"banned"`
}

// Register attaches (all protected):
//
//	POST /api/reports
//	GET  /api/admin/reports  (admin)
//	POST /api/admin/ban      (admin)
func (r *Registrar) Register(routes *server.Routes) {
	svc := NewService(r.appCtx)

	routes.Protected.POST("/reports", r.report(svc))

	admin := routes.Protected.Group("/admin", auth.RequireAdmin())
	admin.GET("/reports", r.queue(svc))
	admin.POST("/ban", r.ban(svc))
}

func (r *Registrar) report(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			svcErr.Respond(c, svcErr.FromBinding(err))
			return
		}
		if err := auth.RequireSelf(c, req.UserID); err != nil {
			svcErr.Respond(c, err)
			return
		}

		rep, err := svc.Report(c.Request.Context(), req.UserID, req.ReportedID, req.Reason)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, rep)
	}
}

func (r *Registrar) queue(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				svcErr.Respond(c, svcErr.InvalidArgument("limit must be a number"))
				return
			}
			limit = n
		}

		reports, err := svc.Queue(c.Request.Context(), limit)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, reports)
	}
}

func (r *Registrar) ban(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req banRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			svcErr.Respond(c, svcErr.FromBinding(err))
			return
		}

		if req.ReportID != 0 {
			action := req.Action
			if action == "" {
				action = ActionBan
			}
			rep, err := svc.Resolve(c.Request.Context(), auth.CallerFrom(c).UserID, req.ReportID, req.ReportedID, action)
			if err != nil {
				svcErr.Respond(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "report_id": rep.ID, "status": rep.Status})
			return
		}

		userID := req.UserID
		if userID == "" {
			userID = req.ReportedID
		}
		if userID == "" {
			svcErr.Respond(c, svcErr.InvalidArgument("user_id or report_id is required"))
			return
		}
		banned := true
		if req.Banned != nil {
			banned = *req.Banned
		}
		if err := svc.SetBanned(c.Request.Context(), userID, banned); err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user_id": userID, "is_banned": banned})
	}
}
