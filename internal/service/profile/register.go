package profile

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/sloi/internal/app"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/photo"
	"github.com/oggyb/sloi/internal/server"
	"github.com/oggyb/sloi/internal/service/auth"
)

// Registrar ties the profile and admin endpoints into the HTTP server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the profile service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

type grantRequest struct {
	Days      int  `json:"days" binding:"gte=0,lte=36500"`
	Unlimited bool `json:"unlimited"`
}

// Register attaches (all protected):
//
//	GET  /api/profiles/likes-me
//	GET  /api/profiles/:id
//	PUT  /api/profiles/:id
//	POST /api/profiles/:id/photo
//	POST /api/profiles/:id/grant-premium  (admin)
func (r *Registrar) Register(routes *server.Routes) {
	svc := NewService(r.appCtx)

	p := routes.Protected.Group("/profiles")
	p.GET("/likes-me", r.likesMe(svc))
	p.GET("/:id", r.get(svc))
	p.PUT("/:id", r.update(svc))
	p.POST("/:id/photo", r.uploadPhoto(svc))
	p.POST("/:id/grant-premium", auth.RequireAdmin(), r.grantPremium(svc))
}

func (r *Registrar) get(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if auth.CallerFrom(c).UserID == id {
			own, err := svc.Own(c.Request.Context(), id)
			if err != nil {
				svcErr.Respond(c, err)
				return
			}
			c.JSON(http.StatusOK, own)
			return
		}

		pub, err := svc.Public(c.Request.Context(), id)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, pub)
	}
}

func (r *Registrar) update(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := auth.RequireSelf(c, id); err != nil {
			svcErr.Respond(c, err)
			return
		}
		var upd Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			svcErr.Respond(c, svcErr.FromBinding(err))
			return
		}

		u, err := svc.Edit(c.Request.Context(), id, upd)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

func (r *Registrar) uploadPhoto(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := auth.RequireSelf(c, id); err != nil {
			svcErr.Respond(c, err)
			return
		}

		fh, err := c.FormFile("photo")
		if err != nil {
			svcErr.Respond(c, svcErr.InvalidArgument("photo file is required"))
			return
		}
		if fh.Size > photo.MaxSize {
			svcErr.Respond(c, svcErr.InvalidArgument(photo.ErrTooLarge.Error()))
			return
		}
		f, err := fh.Open()
		if err != nil {
			svcErr.Respond(c, svcErr.InvalidArgument("cannot read photo"))
			return
		}
		defer f.Close()

		body, err := io.ReadAll(io.LimitReader(f, photo.MaxSize+1))
		if err != nil {
			svcErr.Respond(c, svcErr.InvalidArgument("cannot read photo"))
			return
		}

		u, err := svc.AddPhoto(c.Request.Context(), id, body)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"photos": u.Photos, "photo_url": u.PhotoURL})
	}
}

func (r *Registrar) grantPremium(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req grantRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				svcErr.Respond(c, svcErr.FromBinding(err))
				return
			}
		}

		u, err := svc.GrantPremium(c.Request.Context(), c.Param("id"), req.Days, req.Unlimited)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":            true,
			"is_premium":         u.IsPremium,
			"premium_expires_at": u.PremiumExpiresAt,
		})
	}
}

func (r *Registrar) likesMe(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if err := auth.RequireSelf(c, userID); err != nil {
			svcErr.Respond(c, err)
			return
		}

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				svcErr.Respond(c, svcErr.InvalidArgument("limit must be a number"))
				return
			}
			limit = n
		}

		page, err := svc.LikesMe(c.Request.Context(), userID, c.Query("page_token"), limit)
		if err != nil {
			svcErr.Respond(c, err)
			return
		}
		body := gin.H{"profiles": page.Profiles}
		if page.NextPageToken != nil {
			body["next_page_token"] = *page.NextPageToken
		}
		c.JSON(http.StatusOK, body)
	}
}
