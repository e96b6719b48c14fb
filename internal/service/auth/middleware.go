package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/sloi/internal/app"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/logger"
)

const callerKey = "auth.caller"

// Caller is the authenticated user behind a request.
type Caller struct {
	UserID     string
	TelegramID int64
	IsAdmin    bool
}

// Middleware returns RequireToken configured from the AppContext.
func Middleware(appCtx *app.AppContext) gin.HandlerFunc {
	issuer := NewTokenIssuer(appCtx.Config.Auth.JWTSecret, appCtx.Config.Auth.TokenTTL, appCtx.Now)
	return RequireToken(issuer, appCtx.Config.IsAdmin)
}

// RequireToken rejects requests without a valid "Authorization: Bearer"
// session token and stores the Caller for handlers.
func RequireToken(issuer *TokenIssuer, isAdmin func(int64) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			svcErr.Respond(c, svcErr.Unauthenticated("authorization header missing or invalid"))
			return
		}

		claims, err := issuer.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			svcErr.Respond(c, svcErr.Unauthenticated("invalid token"))
			return
		}

		caller := Caller{UserID: claims.Subject, TelegramID: claims.TelegramID}
		if isAdmin != nil {
			caller.IsAdmin = isAdmin(claims.TelegramID)
		}
		c.Set(callerKey, caller)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx, nil).With("user_id", caller.UserID)
		c.Request = c.Request.WithContext(logger.WithLogger(ctx, log))
		c.Next()
	}
}

// RequireAdmin lets only ADMIN_IDS accounts through. Must run after RequireToken.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerFrom(c).IsAdmin {
			svcErr.Respond(c, svcErr.PermissionDenied("admin only"))
			return
		}
		c.Next()
	}
}

// CallerFrom returns the authenticated caller. Zero value on public routes.
func CallerFrom(c *gin.Context) Caller {
	v, _ := c.Get(callerKey)
	caller, _ := v.(Caller)
	return caller
}

// RequireSelf fails with 403 unless userID is the caller's own id.
func RequireSelf(c *gin.Context, userID string) error {
	if userID == "" {
		return svcErr.InvalidArgument("user_id is required")
	}
	if CallerFrom(c).UserID != userID {
		return svcErr.PermissionDenied("cannot act on behalf of another user")
	}
	return nil
}
