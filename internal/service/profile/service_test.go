package profile_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/sloi/internal/app/apptest"
	"github.com/oggyb/sloi/internal/db"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/service/premium"
	"github.com/oggyb/sloi/internal/service/profile"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestOwn_ReportsEntitlement(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	svc := profile.NewService(env.App)

	t.Run("free user", func(t *testing.T) {
		u := env.User(t, 1, nil)
		env.Decide(t, u, env.User(t, 2, nil), db.ActionLike, time.Now().UTC())

		own, err := svc.Own(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, own.IsPremium)
		assert.Nil(t, own.PremiumDaysRemaining)
		assert.Equal(t, int64(1), own.SwipeCount)
		assert.Equal(t, 20, own.DailyLimit)
	})

	t.Run("timed grant", func(t *testing.T) {
		u := env.User(t, 3, func(u *db.User) {
			u.IsPremium, u.PremiumExpiresAt = true, apptest.Ptr(env.Clock.Add(36*time.Hour))
		})
		own, err := svc.Own(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, own.PremiumDaysRemaining)
		assert.Equal(t, 2, *own.PremiumDaysRemaining)
		assert.False(t, own.PremiumUnlimited)
	})

	t.Run("unlimited grant", func(t *testing.T) {
		u := env.User(t, 4, func(u *db.User) {
			u.IsPremium, u.PremiumExpiresAt = true, apptest.Ptr(premium.UnlimitedExpiry)
		})
		own, err := svc.Own(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, own.PremiumUnlimited)
		assert.Nil(t, own.PremiumDaysRemaining)
	})

	t.Run("expired grant is cleared", func(t *testing.T) {
		u := env.User(t, 5, func(u *db.User) {
			u.IsPremium, u.PremiumExpiresAt = true, apptest.Ptr(env.Clock.Add(-time.Minute))
		})
		own, err := svc.Own(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, own.IsPremium)
		assert.False(t, env.Reload(t, u).IsPremium)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.Own(ctx, "nope")
		assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
	})
}

func TestPublic_AppliesHideFlags(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	svc := profile.NewService(env.App)

	u := env.User(t, 1, func(u *db.User) {
		u.Age = apptest.Ptr(27)
		u.HideAge = true
		u.HideOnline = true
		u.LastLogin = time.Now().UTC()
	})
	p, err := svc.Public(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Age)
	assert.Nil(t, p.LastLogin)

	banned := env.User(t, 2, func(u *db.User) { u.IsBanned = true })
	_, err = svc.Public(ctx, banned.ID)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	svc := profile.NewService(env.App)

	u := env.User(t, 1, func(u *db.User) { u.Bio = "old"; u.MaxAge = apptest.Ptr(30) })

	got, err := svc.Edit(ctx, u.ID, profile.Update{
		FirstName:    apptest.Ptr("Anna"),
		Age:          apptest.Ptr(25),
		SearchGender: apptest.Ptr("any"),
		HideAge:      apptest.Ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.FirstName)
	assert.Equal(t, 25, *got.Age)
	assert.Equal(t, "", got.SearchGender)
	assert.True(t, got.HideAge)
	assert.Equal(t, "old", got.Bio, "untouched fields are kept")

	_, err = svc.Edit(ctx, u.ID, profile.Update{MinAge: apptest.Ptr(35)})
	require.Error(t, err)
	assert.Equal(t, svcErr.KindInvalidArgument, svcErr.KindOf(err))

	// nothing to change
	same, err := svc.Edit(ctx, u.ID, profile.Update{})
	require.NoError(t, err)
	assert.Equal(t, "Anna", same.FirstName)
}

func TestEdit_ClearsLapsedPremium(t *testing.T) {
	env := apptest.New(t)
	router := env.Router(profile.NewRegistrar(env.App))

	u := env.User(t, 1, func(u *db.User) {
		u.IsPremium, u.PremiumExpiresAt = true, apptest.Ptr(env.Clock.Add(-time.Hour))
	})

	w := apptest.Do(t, router, http.MethodPut, "/api/profiles/"+u.ID, map[string]any{"bio": "hi"}, env.Token(t, u))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := apptest.Decode(t, w)
	assert.Equal(t, false, body["is_premium"])
	assert.Nil(t, body["premium_expires_at"])

	stored := env.Reload(t, u)
	assert.False(t, stored.IsPremium)
	assert.Nil(t, stored.PremiumExpiresAt)

	// an empty edit goes through the same check
	v := env.User(t, 2, func(u *db.User) {
		u.IsPremium, u.PremiumExpiresAt = true, apptest.Ptr(env.Clock.Add(-time.Hour))
	})
	got, err := profile.NewService(env.App).Edit(context.Background(), v.ID, profile.Update{})
	require.NoError(t, err)
	assert.False(t, got.IsPremium)
}

func TestAddPhoto(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	svc := profile.NewService(env.App)

	u := env.User(t, 1, nil)

	got, err := svc.AddPhoto(ctx, u.ID, pngBytes)
	require.NoError(t, err)
	require.Len(t, got.Photos, 1)
	assert.True(t, strings.HasPrefix(got.Photos[0], "http://test.local/uploads/"+u.ID+"/"))
	assert.True(t, strings.HasSuffix(got.Photos[0], ".png"))
	assert.Equal(t, got.Photos[0], got.PhotoURL)

	_, err = svc.AddPhoto(ctx, u.ID, []byte("plain text"))
	assert.Equal(t, svcErr.KindInvalidArgument, svcErr.KindOf(err))

	for i := 0; i < 5; i++ {
		_, err = svc.AddPhoto(ctx, u.ID, pngBytes)
		require.NoError(t, err)
	}
	_, err = svc.AddPhoto(ctx, u.ID, pngBytes)
	assert.Equal(t, svcErr.KindInvalidArgument, svcErr.KindOf(err))
	assert.Len(t, env.Reload(t, u).Photos, 6)
}

func TestLikesMe(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	svc := profile.NewService(env.App)

	me := env.User(t, 1, nil)
	_, err := svc.LikesMe(ctx, me.ID, "", 10)
	assert.Equal(t, svcErr.KindPermissionDenied, svcErr.KindOf(err), "free users are refused")

	premiumMe := env.User(t, 2, func(u *db.User) {
		u.IsPremium, u.PremiumExpiresAt = true, apptest.Ptr(premium.UnlimitedExpiry)
	})
	base := time.Now().UTC().Add(-time.Hour)
	var likers []*db.User
	for i := 0; i < 5; i++ {
		l := env.User(t, int64(10+i), nil)
		likers = append(likers, l)
		env.Decide(t, l, premiumMe, db.ActionLike, base.Add(time.Duration(i)*time.Minute))
	}
	// already answered: not pending
	env.Decide(t, premiumMe, likers[0], db.ActionDislike, time.Now().UTC())
	// a dislike is not a like
	env.Decide(t, env.User(t, 30, nil), premiumMe, db.ActionDislike, time.Now().UTC())

	first, err := svc.LikesMe(ctx, premiumMe.ID, "", 2)
	require.NoError(t, err)
	require.Len(t, first.Profiles, 2)
	assert.Equal(t, likers[4].ID, first.Profiles[0].ID)
	assert.Equal(t, likers[3].ID, first.Profiles[1].ID)
	require.NotNil(t, first.NextPageToken)

	second, err := svc.LikesMe(ctx, premiumMe.ID, *first.NextPageToken, 2)
	require.NoError(t, err)
	require.Len(t, second.Profiles, 2)
	assert.Equal(t, likers[2].ID, second.Profiles[0].ID)
	assert.Equal(t, likers[1].ID, second.Profiles[1].ID)
	assert.Nil(t, second.NextPageToken)

	_, err = svc.LikesMe(ctx, premiumMe.ID, "garbage", 2)
	assert.Equal(t, svcErr.KindInvalidArgument, svcErr.KindOf(err))
}

func TestGrantPremium(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	svc := profile.NewService(env.App)

	u := env.User(t, 1, nil)
	got, err := svc.GrantPremium(ctx, u.ID, 0, false)
	require.NoError(t, err)
	assert.True(t, got.IsPremium)
	assert.WithinDuration(t, env.Clock.AddDate(0, 0, 30), *got.PremiumExpiresAt, time.Second)

	got, err = svc.GrantPremium(ctx, u.ID, 0, true)
	require.NoError(t, err)
	assert.True(t, premium.IsUnlimited(got.PremiumExpiresAt))
}

func TestProfileEndpoints(t *testing.T) {
	env := apptest.New(t)
	router := env.Router(profile.NewRegistrar(env.App))

	me := env.User(t, 1, func(u *db.User) { u.Age = apptest.Ptr(30) })
	other := env.User(t, 2, func(u *db.User) { u.Age = apptest.Ptr(40); u.HideAge = true })
	admin := env.User(t, apptest.AdminTelegramID, nil)
	tok := env.Token(t, me)

	t.Run("own profile", func(t *testing.T) {
		w := apptest.Do(t, router, http.MethodGet, "/api/profiles/"+me.ID, nil, tok)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := apptest.Decode(t, w)
		assert.Equal(t, float64(30), body["age"])
		assert.Equal(t, float64(20), body["daily_limit"])
		assert.Equal(t, false, body["is_admin"])
		assert.Contains(t, body, "telegram_id")

		w = apptest.Do(t, router, http.MethodGet, "/api/profiles/"+admin.ID, nil, env.Token(t, admin))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, apptest.Decode(t, w)["is_admin"])
	})

	t.Run("other profile hides age", func(t *testing.T) {
		w := apptest.Do(t, router, http.MethodGet, "/api/profiles/"+other.ID, nil, tok)
		require.Equal(t, http.StatusOK, w.Code)
		body := apptest.Decode(t, w)
		assert.NotContains(t, body, "age")
		assert.NotContains(t, body, "telegram_id")
	})

	t.Run("missing profile", func(t *testing.T) {
		w := apptest.Do(t, router, http.MethodGet, "/api/profiles/does-not-exist", nil, tok)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update validation", func(t *testing.T) {
		w := apptest.Do(t, router, http.MethodPut, "/api/profiles/"+me.ID, map[string]any{"age": 17}, tok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "age must be at least 18", apptest.Decode(t, w)["error"])

		w = apptest.Do(t, router, http.MethodPut, "/api/profiles/"+me.ID, map[string]any{"gender": "robot"}, tok)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = apptest.Do(t, router, http.MethodPut, "/api/profiles/"+me.ID, map[string]any{"bio": "hi"}, tok)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "hi", apptest.Decode(t, w)["bio"])
	})

	t.Run("cannot edit someone else", func(t *testing.T) {
		w := apptest.Do(t, router, http.MethodPut, "/api/profiles/"+other.ID, map[string]any{"bio": "x"}, tok)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("grant premium is admin only", func(t *testing.T) {
		path := "/api/profiles/" + me.ID + "/grant-premium"
		w := apptest.Do(t, router, http.MethodPost, path, map[string]any{"days": 7}, tok)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = apptest.Do(t, router, http.MethodPost, path, map[string]any{"days": 7}, env.Token(t, admin))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, true, apptest.Decode(t, w)["is_premium"])
	})

	t.Run("likes-me after grant", func(t *testing.T) {
		env.Decide(t, other, me, db.ActionLike, time.Now().UTC())
		w := apptest.Do(t, router, http.MethodGet, "/api/profiles/likes-me?user_id="+me.ID, nil, tok)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, apptest.Decode(t, w)["profiles"], 1)
	})

	t.Run("photo upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("photo", "me.png")
		require.NoError(t, err)
		_, err = fw.Write(pngBytes)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/profiles/"+me.ID+"/photo", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, apptest.Decode(t, w)["photos"], 1)

		w = apptest.Do(t, router, http.MethodPost, "/api/profiles/"+me.ID+"/photo", nil, tok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
