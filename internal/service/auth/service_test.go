package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/sloi/internal/app/apptest"
	"github.com/oggyb/sloi/internal/db"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/service/auth"
)

func TestLogin_CreatesUserOnFirstLogin(t *testing.T) {
	env := apptest.New(t)
	svc := auth.NewService(env.App)

	res, err := svc.Login(context.Background(), apptest.InitData(t, apptest.BotToken, env.Clock, sampleUser()))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int64(279058397), res.User.TelegramID)
	assert.True(t, res.User.ShowInSearch)
	assert.True(t, res.User.NotificationsEnabled)

	stored := env.Reload(t, res.User)
	assert.Equal(t, "Anna", stored.FirstName)
	assert.WithinDuration(t, env.Clock, stored.LastLogin, time.Second)
}

func TestLogin_KeepsEditedFieldsAndFillsEmptyOnes(t *testing.T) {
	env := apptest.New(t)
	svc := auth.NewService(env.App)

	existing := env.User(t, 279058397, func(u *db.User) {
		u.FirstName = "Anya" // edited by the user
		u.Username = ""
		u.LastLogin = env.Clock.Add(-48 * time.Hour)
	})

	res, err := svc.Login(context.Background(), apptest.InitData(t, apptest.BotToken, env.Clock, sampleUser()))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, existing.ID, res.User.ID)
	assert.Equal(t, "Anya", res.User.FirstName)
	assert.Equal(t, "anna_k", res.User.Username)
	assert.WithinDuration(t, env.Clock, res.User.LastLogin, time.Second)

	var count int64
	require.NoError(t, env.DB.Model(&db.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLogin_AppliesPremiumExpiry(t *testing.T) {
	env := apptest.New(t)
	svc := auth.NewService(env.App)

	env.User(t, 279058397, func(u *db.User) {
		u.IsPremium, u.PremiumExpiresAt = true, apptest.Ptr(env.Clock.Add(-time.Hour))
	})

	res, err := svc.Login(context.Background(), apptest.InitData(t, apptest.BotToken, env.Clock, sampleUser()))
	require.NoError(t, err)
	assert.False(t, res.User.IsPremium)
	assert.False(t, env.Reload(t, res.User).IsPremium)
}

func TestLogin_ErrorKinds(t *testing.T) {
	env := apptest.New(t)
	svc := auth.NewService(env.App)
	ctx := context.Background()

	_, err := svc.Login(ctx, "garbage")
	assert.Equal(t, svcErr.KindInvalidArgument, svcErr.KindOf(err))

	_, err = svc.Login(ctx, apptest.InitData(t, "wrong:token", env.Clock, sampleUser()))
	assert.Equal(t, svcErr.KindUnauthenticated, svcErr.KindOf(err))

	_, err = svc.Login(ctx, apptest.InitData(t, apptest.BotToken, env.Clock.Add(-time.Hour), sampleUser()))
	assert.Equal(t, svcErr.KindUnauthenticated, svcErr.KindOf(err))

	env.App.Config.Telegram.BotToken = ""
	_, err = auth.NewService(env.App).Login(ctx, apptest.InitData(t, apptest.BotToken, env.Clock, sampleUser()))
	assert.Equal(t, svcErr.KindInternal, svcErr.KindOf(err))
}

func TestAuthEndpoint(t *testing.T) {
	env := apptest.New(t)
	router := env.Router(auth.NewRegistrar(env.App))

	w := apptest.Do(t, router, http.MethodPost, "/api/auth/telegram",
		gin.H{"initData": apptest.InitData(t, apptest.BotToken, env.Clock, sampleUser())}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := apptest.Decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, false, body["is_admin"])

	w = apptest.Do(t, router, http.MethodPost, "/api/auth/telegram", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "init_data is required", apptest.Decode(t, w)["error"])

	w = apptest.Do(t, router, http.MethodPost, "/api/auth/telegram",
		gin.H{"initData": apptest.InitData(t, "bad:token", env.Clock, sampleUser())}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid Telegram auth", apptest.Decode(t, w)["error"])
}

func TestRequireToken(t *testing.T) {
	env := apptest.New(t)
	u := env.User(t, 1, nil)
	admin := env.User(t, apptest.AdminTelegramID, nil)

	router := env.Router()
	router.GET("/whoami", auth.Middleware(env.App), func(c *gin.Context) {
		caller := auth.CallerFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": caller.UserID, "admin": caller.IsAdmin})
	})

	w := apptest.Do(t, router, http.MethodGet, "/whoami", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = apptest.Do(t, router, http.MethodGet, "/whoami", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = apptest.Do(t, router, http.MethodGet, "/whoami", nil, env.Token(t, u))
	require.Equal(t, http.StatusOK, w.Code)
	body := apptest.Decode(t, w)
	assert.Equal(t, u.ID, body["user_id"])
	assert.Equal(t, false, body["admin"])

	w = apptest.Do(t, router, http.MethodGet, "/whoami", nil, env.Token(t, admin))
	assert.Equal(t, true, apptest.Decode(t, w)["admin"])
}

func TestHealth(t *testing.T) {
	env := apptest.New(t)
	w := apptest.Do(t, env.Router(), http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := apptest.Decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
