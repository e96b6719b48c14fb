package match_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/sloi/internal/app/apptest"
	"github.com/oggyb/sloi/internal/db"
	"github.com/oggyb/sloi/internal/service/match"
)

func TestOnLike_NoReverseLikeNotifiesTargetOnly(t *testing.T) {
	env := apptest.New(t)
	det := match.NewDetector(env.App)

	a := env.User(t, 1, nil)
	b := env.User(t, 2, nil)
	env.Decide(t, a, b, db.ActionLike, time.Now().UTC())

	out, err := det.OnLike(context.Background(), a, b)
	require.NoError(t, err)
	assert.False(t, out.IsMatch())
	assert.False(t, out.Created)

	env.App.Notifier.Wait()
	assert.Len(t, env.Sender.Messages(b.TelegramID), 1)
	assert.Empty(t, env.Sender.Messages(a.TelegramID))
}

func TestOnLike_MutualLikeCreatesMatchAndNotifiesBoth(t *testing.T) {
	env := apptest.New(t)
	det := match.NewDetector(env.App)

	a := env.User(t, 1, nil)
	b := env.User(t, 2, nil)
	env.Decide(t, b, a, db.ActionLike, time.Now().UTC())
	env.Decide(t, a, b, db.ActionLike, time.Now().UTC())

	out, err := det.OnLike(context.Background(), a, b)
	require.NoError(t, err)
	require.True(t, out.IsMatch())
	assert.True(t, out.Created)

	env.App.Notifier.Wait()
	require.Len(t, env.Sender.Messages(a.TelegramID), 1)
	assert.Contains(t, env.Sender.Messages(a.TelegramID)[0], b.FirstName)
	require.Len(t, env.Sender.Messages(b.TelegramID), 1)
	assert.Contains(t, env.Sender.Messages(b.TelegramID)[0], a.FirstName)

	// a repeated check returns the same match and sends nothing new
	again, err := det.OnLike(context.Background(), b, a)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, out.Match.ID, again.Match.ID)
	env.App.Notifier.Wait()
	assert.Equal(t, 2, env.Sender.Total())
}

func TestOnLike_RespectsNotificationPreference(t *testing.T) {
	env := apptest.New(t)
	det := match.NewDetector(env.App)

	a := env.User(t, 1, func(u *db.User) { u.NotificationsEnabled = false })
	b := env.User(t, 2, nil)
	env.Decide(t, b, a, db.ActionLike, time.Now().UTC())
	env.Decide(t, a, b, db.ActionLike, time.Now().UTC())

	_, err := det.OnLike(context.Background(), a, b)
	require.NoError(t, err)
	env.App.Notifier.Wait()

	assert.Empty(t, env.Sender.Messages(a.TelegramID))
	assert.Len(t, env.Sender.Messages(b.TelegramID), 1)
}

func TestOnLike_NotificationFailureDoesNotFail(t *testing.T) {
	env := apptest.New(t)
	env.Sender.Fail = true
	det := match.NewDetector(env.App)

	a := env.User(t, 1, nil)
	b := env.User(t, 2, nil)
	env.Decide(t, b, a, db.ActionLike, time.Now().UTC())
	env.Decide(t, a, b, db.ActionLike, time.Now().UTC())

	out, err := det.OnLike(context.Background(), a, b)
	require.NoError(t, err)
	assert.True(t, out.IsMatch())
	env.App.Notifier.Wait()
}

func TestOnLike_ConcurrentMutualLikesCreateOneMatch(t *testing.T) {
	env := apptest.New(t)
	det := match.NewDetector(env.App)

	a := env.User(t, 1, nil)
	b := env.User(t, 2, nil)
	env.Decide(t, a, b, db.ActionLike, time.Now().UTC())
	env.Decide(t, b, a, db.ActionLike, time.Now().UTC())

	var wg sync.WaitGroup
	outcomes := make([]*match.Outcome, 2)
	for i, pair := range [][2]*db.User{{a, b}, {b, a}} {
		wg.Add(1)
		go func(i int, actor, target *db.User) {
			defer wg.Done()
			out, err := det.OnLike(context.Background(), actor, target)
			assert.NoError(t, err)
			outcomes[i] = out
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	require.NotNil(t, outcomes[0])
	require.NotNil(t, outcomes[1])
	assert.True(t, outcomes[0].IsMatch())
	assert.True(t, outcomes[1].IsMatch())
	assert.NotEqual(t, outcomes[0].Created, outcomes[1].Created, "exactly one caller creates the match")
	assert.Equal(t, outcomes[0].Match.ID, outcomes[1].Match.ID)

	var count int64
	require.NoError(t, env.DB.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMatchesEndpoint(t *testing.T) {
	env := apptest.New(t)
	router := env.Router(match.NewRegistrar(env.App))
	det := match.NewDetector(env.App)

	a := env.User(t, 1, func(u *db.User) { u.HideAge = true; u.Age = apptest.Ptr(27) })
	b := env.User(t, 2, nil)
	env.Decide(t, a, b, db.ActionLike, time.Now().UTC())
	env.Decide(t, b, a, db.ActionLike, time.Now().UTC())
	_, err := det.OnLike(context.Background(), b, a)
	require.NoError(t, err)
	env.App.Notifier.Wait()

	w := apptest.Do(t, router, http.MethodGet, "/api/matches/"+b.ID, nil, env.Token(t, b))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	matches := apptest.Decode(t, w)["matches"].([]any)
	require.Len(t, matches, 1)
	m := matches[0].(map[string]any)
	assert.Equal(t, a.ID, m["partner_id"])
	assert.NotNil(t, m["user1"])
	assert.NotNil(t, m["user2"])
	for _, key := range []string{"user1", "user2"} {
		p := m[key].(map[string]any)
		if p["id"] == a.ID {
			assert.NotContains(t, p, "age", "hidden age is not exposed")
		}
	}

	// someone else's matches are off limits
	w = apptest.Do(t, router, http.MethodGet, "/api/matches/"+a.ID, nil, env.Token(t, b))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = apptest.Do(t, router, http.MethodGet, "/api/matches/"+a.ID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
