package premium

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/cache"
	"github.com/oggyb/sloi/internal/db"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/repository"
)

// UnlimitedExpiry is stored for grants that never run out.
var UnlimitedExpiry = time.Date(2099, 12, 31, 23, 59, 59, 0, time.UTC)

// IsUnlimited reports whether an expiry marks an unlimited grant.
func IsUnlimited(t *time.Time) bool {
	return t != nil && t.Year() >= UnlimitedExpiry.Year()
}

// Entitlement is the user's premium state after lazy expiry was applied.
type Entitlement struct {
	IsPremium bool
	ExpiresAt *time.Time
}

// Unlimited reports an active grant without an end.
func (e Entitlement) Unlimited() bool {
	return e.IsPremium && (e.ExpiresAt == nil || IsUnlimited(e.ExpiresAt))
}

// DaysRemaining returns whole days left, rounded up. Unlimited grants report
// unlimited=true and days=0.
func (e Entitlement) DaysRemaining(now time.Time) (days int, unlimited bool) {
	if !e.IsPremium {
		return 0, false
	}
	if e.Unlimited() {
		return 0, true
	}
	left := e.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0, false
	}
	return int(math.Ceil(left.Hours() / 24)), false
}

// Gate decides who is subject to the daily swipe cap and keeps premium
// grants current.
type Gate struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	ledger *repository.InteractionRepository
}

// NewGate creates a Gate with repositories bound to the AppContext DB.
func NewGate(appCtx *app.AppContext) *Gate {
	return &Gate{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		ledger: repository.NewInteractionRepository(appCtx.DB),
	}
}

// DailyLimit is the number of decisions a non-premium user may make per day.
func (g *Gate) DailyLimit() int {
	return g.appCtx.Config.Limits.DailySwipes
}

// CurrentEntitlement returns u's premium state.
//
// Behavior:
//   - A grant whose expiry is in the past is cleared in storage before
//     returning, and u is updated in place.
//   - The clearing update is conditional; if another request extended the
//     grant in between, the fresh row is reloaded instead.
//
// Every read path that reports premium status goes through here.
func (g *Gate) CurrentEntitlement(ctx context.Context, u *db.User) (Entitlement, error) {
	now := g.appCtx.Now()
	if u.IsPremium && u.PremiumExpiresAt != nil && u.PremiumExpiresAt.Before(now) {
		changed, err := g.users.ExpirePremium(ctx, u.ID, now)
		if err != nil {
			return Entitlement{}, svcErr.Map(err)
		}
		if changed {
			g.appCtx.Logger.Info("premium expired", "user_id", u.ID, "expired_at", u.PremiumExpiresAt)
			u.IsPremium = false
			u.PremiumExpiresAt = nil
		} else {
			fresh, err := g.users.GetByID(ctx, u.ID)
			if err != nil {
				return Entitlement{}, svcErr.Map(err)
			}
			*u = *fresh
		}
	}
	return Entitlement{IsPremium: u.IsPremium, ExpiresAt: u.PremiumExpiresAt}, nil
}

// SwipeCount returns how many decisions u made since the start of today.
func (g *Gate) SwipeCount(ctx context.Context, u *db.User) (int64, error) {
	n, err := g.ledger.CountSince(ctx, u.ID, g.appCtx.TodayStart())
	if err != nil {
		return 0, svcErr.Map(err)
	}
	return n, nil
}

// IsCapped reports whether u has used up today's decisions.
// Premium users are never capped.
func (g *Gate) IsCapped(ctx context.Context, u *db.User) (bool, error) {
	ent, err := g.CurrentEntitlement(ctx, u)
	if err != nil {
		return false, err
	}
	if ent.IsPremium {
		return false, nil
	}
	n, err := g.SwipeCount(ctx, u)
	if err != nil {
		return false, err
	}
	return n >= int64(g.DailyLimit()), nil
}

// Reserve takes one of today's decision slots for u.
//
// Behavior:
//   - Premium users get a no-op release and never touch the counter.
//   - An existing Redis counter is trusted; a missing one is seeded from the
//     ledger. The compare and increment is atomic, so concurrent decisions
//     cannot exceed the limit.
//   - At the limit a LimitExceeded error is returned.
//   - The caller must call release when the decision is not recorded.
//   - When Redis is unreachable the ledger count is checked directly.
func (g *Gate) Reserve(ctx context.Context, u *db.User) (release func(), err error) {
	noop := func() {}

	ent, err := g.CurrentEntitlement(ctx, u)
	if err != nil {
		return nil, err
	}
	if ent.IsPremium {
		return noop, nil
	}

	rc := g.appCtx.RedisCache
	key := rc.KeyForDailySwipes(u.ID, g.appCtx.Today())
	limit := g.DailyLimit()

	// a live counter already holds today's usage; the ledger only seeds a missing one
	seed, ok, err := rc.GetDailySwipes(ctx, key)
	if err != nil || !ok {
		if seed, err = g.SwipeCount(ctx, u); err != nil {
			return nil, err
		}
	}
	if seed >= int64(limit) {
		return nil, limitError()
	}

	_, err = rc.ReserveSwipe(ctx, key, seed, limit, g.untilTomorrow())
	switch {
	case errors.Is(err, cache.ErrLimitReached):
		return nil, limitError()
	case err != nil:
		g.appCtx.Logger.Warn("swipe counter unavailable, using ledger count", "user_id", u.ID, "err", err)
		return noop, nil
	}

	return func() {
		// the request context may already be done
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.ReleaseSwipe(rctx, key); err != nil {
			g.appCtx.Logger.Warn("failed to release swipe slot", "user_id", u.ID, "err", err)
		}
	}, nil
}

// GrantOrExtend adds days of premium to the user.
// An active grant is extended from its expiry, otherwise from now.
// Unlimited grants stay unlimited.
func (g *Gate) GrantOrExtend(ctx context.Context, userID string, days int) (*db.User, error) {
	if days <= 0 {
		return nil, svcErr.InvalidArgument("days must be positive")
	}

	u, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	ent, err := g.CurrentEntitlement(ctx, u)
	if err != nil {
		return nil, err
	}
	if ent.Unlimited() {
		return u, nil
	}

	now := g.appCtx.Now()
	base := now
	if ent.IsPremium && ent.ExpiresAt.After(now) {
		base = *ent.ExpiresAt
	}
	expires := base.AddDate(0, 0, days)
	if expires.After(UnlimitedExpiry) {
		expires = UnlimitedExpiry
	}

	if err := g.users.SetPremium(ctx, u.ID, expires); err != nil {
		return nil, svcErr.Map(err)
	}
	g.appCtx.Logger.Info("premium granted", "user_id", u.ID, "days", days, "expires_at", expires)

	u.IsPremium = true
	u.PremiumExpiresAt = &expires
	return u, nil
}

// GrantUnlimited makes the user's premium permanent.
func (g *Gate) GrantUnlimited(ctx context.Context, userID string) (*db.User, error) {
	if err := g.users.SetPremium(ctx, userID, UnlimitedExpiry); err != nil {
		return nil, svcErr.Map(err)
	}
	g.appCtx.Logger.Info("unlimited premium granted", "user_id", userID)

	u, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return u, nil
}

func (g *Gate) untilTomorrow() time.Duration {
	start := g.appCtx.TodayStart().In(g.appCtx.Location)
	next := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, g.appCtx.Location)
	// keep the key a little past midnight so a late release finds it
	return next.Sub(g.appCtx.Now()) + time.Hour
}

func limitError() error {
	return svcErr.LimitExceeded("Daily swipe limit reached")
}
