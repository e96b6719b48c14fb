// Package apptest wires an AppContext over in-memory SQLite and miniredis
// for service tests.
package apptest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/cache"
	"github.com/oggyb/sloi/internal/config"
	"github.com/oggyb/sloi/internal/db"
	"github.com/oggyb/sloi/internal/logger"
	"github.com/oggyb/sloi/internal/notify"
	"github.com/oggyb/sloi/internal/notify/notifytest"
	"github.com/oggyb/sloi/internal/photo"
	"github.com/oggyb/sloi/internal/server"
	"github.com/oggyb/sloi/internal/service/auth"
)

// AdminTelegramID is listed in ADMIN_IDS of every Env.
const AdminTelegramID int64 = 999

func init() {
	gin.SetMode(gin.TestMode)
}

// BotToken signs initData in tests.
const BotToken = "123456:TEST-TOKEN"

// Env is a fully wired test application.
type Env struct {
	App    *app.AppContext
	DB     *gorm.DB
	Redis  *miniredis.Miniredis
	Sender *notifytest.Recorder
	// Clock is returned by App.Now; tests move it forward.
	Clock time.Time
}

// New returns an isolated Env. Each test gets its own DB and Redis.
func New(t *testing.T) *Env {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Telegram.BotToken = BotToken
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Telegram.AdminIDs = []int64{AdminTelegramID}
	cfg.Limits.DailySwipes = 20
	cfg.Limits.DiscoveryWindow = 100
	cfg.Limits.MaxExcludedIDs = 500
	cfg.Limits.PremiumGrantDays = 30
	cfg.Timezone = "Europe/Moscow"

	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { rc.Close() })

	log := logger.Discard()
	sender := &notifytest.Recorder{}
	dispatcher := notify.NewDispatcher(sender, log)

	env := &Env{DB: gdb, Redis: mr, Sender: sender, Clock: time.Now().UTC().Truncate(time.Millisecond)}
	env.App = app.New(cfg, gdb, rc, log, dispatcher)
	env.App.Now = func() time.Time { return env.Clock }
	env.App.Photos = &photo.LocalStore{Dir: t.TempDir(), BaseURL: "http://test.local/uploads"}
	return env
}

// User inserts a visible profile. mutate may adjust fields before insert.
func (e *Env) User(t *testing.T, telegramID int64, mutate func(u *db.User)) *db.User {
	t.Helper()
	u := db.NewUser(telegramID)
	u.FirstName = fmt.Sprintf("user%d", telegramID)
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, e.DB.Create(u).Error)
	return u
}

// Decide inserts a ledger row directly, bypassing the cap.
func (e *Env) Decide(t *testing.T, actor, target *db.User, action string, at time.Time) {
	t.Helper()
	in := db.Interaction{UserID: actor.ID, TargetUserID: target.ID, Action: action, CreatedAt: at}
	require.NoError(t, e.DB.Create(&in).Error)
}

// Reload reads a user back from storage.
func (e *Env) Reload(t *testing.T, u *db.User) *db.User {
	t.Helper()
	var fresh db.User
	require.NoError(t, e.DB.Where("id = ?", u.ID).Take(&fresh).Error)
	return &fresh
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Token issues a session token for u.
func (e *Env) Token(t *testing.T, u *db.User) string {
	t.Helper()
	cfg := e.App.Config
	tok, _, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, e.App.Now).Issue(u)
	require.NoError(t, err)
	return tok
}

// Router builds the full gin engine with the given registrars.
func (e *Env) Router(registrars ...server.Registrar) *gin.Engine {
	return server.NewRouter(e.App, auth.Middleware(e.App), registrars...)
}

// Do sends a JSON request. body may be nil; token may be empty.
func Do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode unmarshals a response body into a map.
func Decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// InitData builds WebApp initData for a Telegram user signed with botToken.
func InitData(t *testing.T, botToken string, authDate time.Time, user map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(user)
	require.NoError(t, err)

	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", string(raw))
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", auth.Sign(botToken, values))
	return values.Encode()
}
