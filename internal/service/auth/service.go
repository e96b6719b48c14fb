package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/db"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/repository"
	"github.com/oggyb/sloi/internal/service/premium"
)

// Service logs Telegram users in.
type Service struct {
	appCtx   *app.AppContext
	verifier *Verifier
	tokens   *TokenIssuer
	users    *repository.UserRepository
	gate     *premium.Gate
}

// NewService creates the auth service. The verifier and token issuer use the
// AppContext clock.
func NewService(appCtx *app.AppContext) *Service {
	cfg := appCtx.Config
	return &Service{
		appCtx:   appCtx,
		verifier: NewVerifier(cfg.Telegram.BotToken, cfg.Auth.FreshnessWindow, appCtx.Now),
		tokens:   NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, appCtx.Now),
		users:    repository.NewUserRepository(appCtx.DB),
		gate:     premium.NewGate(appCtx),
	}
}

// LoginResult is a successful login.
type LoginResult struct {
	User      *db.User
	Token     string
	ExpiresAt time.Time
	Created   bool
}

// Login verifies initData and upserts the user.
//
// Behavior:
//   - First login creates a visible, notifiable profile.
//   - Later logins fill name, username and photo only where the stored value
//     is empty, so profile edits are kept. last_login is always refreshed.
//   - Premium expiry is applied before the user is returned.
//
// Example:
//
//	res, err := svc.Login(ctx, "query_id=...&user=%7B...%7D&auth_date=...&hash=...")
func (s *Service) Login(ctx context.Context, initData string) (*LoginResult, error) {
	id, err := s.verifier.Verify(initData)
	if err != nil {
		return nil, mapVerifyError(err)
	}
	log := s.appCtx.Logger.With("telegram_id", id.TelegramID)

	now := s.appCtx.Now()
	fresh := db.NewUser(id.TelegramID)
	fresh.FirstName = id.FirstName
	fresh.LastName = id.LastName
	fresh.Username = id.Username
	fresh.PhotoURL = id.PhotoURL
	fresh.LastLogin = now

	u, created, err := s.users.CreateIfAbsent(ctx, fresh)
	if err != nil {
		log.Error("user upsert failed", "err", err)
		return nil, svcErr.Map(err)
	}

	if created {
		log.Info("user registered", "user_id", u.ID)
	} else {
		u, err = s.users.Update(ctx, u.ID, fillEmpty(u, id, now))
		if err != nil {
			return nil, svcErr.Map(err)
		}
	}

	if _, err := s.gate.CurrentEntitlement(ctx, u); err != nil {
		return nil, err
	}

	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, svcErr.Internal("failed to issue token", err)
	}

	return &LoginResult{User: u, Token: token, ExpiresAt: exp, Created: created}, nil
}

// fillEmpty lists the columns to update for a returning user.
func fillEmpty(u *db.User, id *Identity, now time.Time) map[string]any {
	fields := map[string]any{"last_login": now}
	set := func(col, stored, incoming string) {
		if stored == "" && incoming != "" {
			fields[col] = incoming
		}
	}
	set("first_name", u.FirstName, id.FirstName)
	set("last_name", u.LastName, id.LastName)
	set("username", u.Username, id.Username)
	set("photo_url", u.PhotoURL, id.PhotoURL)
	return fields
}

func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, ErrMissingBotToken):
		return svcErr.Internal("server misconfigured", err)
	case errors.Is(err, ErrMalformed):
		return svcErr.InvalidArgument("Invalid init data")
	case errors.Is(err, ErrExpired):
		return svcErr.Unauthenticated("Auth data expired")
	default:
		return svcErr.Unauthenticated("Invalid Telegram auth")
	}
}
