package match

import (
	"context"
	"fmt"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/db"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/repository"
)

const (
	msgNewMatch = "У вас новый мэтч с %s! 🖤 Открой Sloi, чтобы начать общение."
	msgNewLike  = "Кто-то лайкнул тебя в Sloi! 🔥 Открой приложение, чтобы узнать кто."
)

// Outcome is the result of a like as seen by the match detector.
// Match is nil when the like is not mutual.
type Outcome struct {
	Created bool
	Match   *db.Match
}

// IsMatch reports whether the pair is matched after the like.
func (o *Outcome) IsMatch() bool {
	return o != nil && o.Match != nil
}

// Detector turns mutual likes into matches.
type Detector struct {
	appCtx       *app.AppContext
	interactions *repository.InteractionRepository
	matches      *repository.MatchRepository
}

func NewDetector(appCtx *app.AppContext) *Detector {
	return &Detector{
		appCtx:       appCtx,
		interactions: repository.NewInteractionRepository(appCtx.DB),
		matches:      repository.NewMatchRepository(appCtx.DB),
	}
}

// OnLike runs after actor's like on target has been recorded.
//
// Behavior:
//   - Looks up target -> actor like. Without it, notifies the target only.
//   - With it, stores the canonical pair. The unique index makes concurrent
//     mutual likes end with a single row; the loser gets Created=false and
//     the existing match.
//   - Both participants are notified only when this call created the match.
//   - Notifications respect notifications_enabled and never fail the call.
func (d *Detector) OnLike(ctx context.Context, actor, target *db.User) (*Outcome, error) {
	reverse, err := d.interactions.HasLiked(ctx, target.ID, actor.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if !reverse {
		d.notify(target, msgNewLike)
		return &Outcome{}, nil
	}

	m, created, err := d.matches.CreatePair(ctx, actor.ID, target.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if created {
		d.appCtx.Logger.Info("match created", "match_id", m.ID, "user1", m.User1ID, "user2", m.User2ID)
		d.notify(actor, fmt.Sprintf(msgNewMatch, target.DisplayName()))
		d.notify(target, fmt.Sprintf(msgNewMatch, actor.DisplayName()))
	} else {
		d.appCtx.Logger.Debug("match already existed", "match_id", m.ID)
	}

	return &Outcome{Created: created, Match: m}, nil
}

// ListForUser returns the user's matches with both profiles embedded.
func (d *Detector) ListForUser(ctx context.Context, userID string) ([]db.Match, error) {
	matches, err := d.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return matches, nil
}

func (d *Detector) notify(u *db.User, text string) {
	if !u.NotificationsEnabled {
		return
	}
	d.appCtx.Notifier.Dispatch(u.TelegramID, text)
}
