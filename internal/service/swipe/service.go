package swipe

import (
	"context"
	"errors"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/db"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/logger"
	"github.com/oggyb/sloi/internal/repository"
	"github.com/oggyb/sloi/internal/service/match"
	"github.com/oggyb/sloi/internal/service/premium"
)

// Decision is one like or dislike submitted by a user.
type Decision struct {
	ActorID   string
	TargetID  string
	Action    string
	SuperLike bool
}

// Result is the recorded decision and what it caused.
type Result struct {
	Interaction *db.Interaction
	IsMatch     bool
	Match       *db.Match
	SwipeCount  int64
	IsPremium   bool
}

// Service records swipe decisions.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	ledger   *repository.InteractionRepository
	gate     *premium.Gate
	detector *match.Detector
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		ledger:   repository.NewInteractionRepository(appCtx.DB),
		gate:     premium.NewGate(appCtx),
		detector: match.NewDetector(appCtx),
	}
}

// Decide records d.
//
// Behavior:
//   - Validates ids and action; superlike is only valid on a like.
//   - Non-premium actors take a daily slot first; at the cap a LimitExceeded
//     error is returned and nothing is written.
//   - A second decision on the same target is a conflict and gives the slot back.
//   - For likes the match detector runs next. Its failures are logged and the
//     like stays recorded.
//
// Example:
//
//	svc.Decide(ctx, swipe.Decision{ActorID: a, TargetID: b, Action: db.ActionLike})
func (s *Service) Decide(ctx context.Context, d Decision) (*Result, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("Decide called", "actor", d.ActorID, "target", d.TargetID, "action", d.Action, "super_like", d.SuperLike)

	if err := validate(d); err != nil {
		return nil, err
	}

	actor, err := s.users.GetByID(ctx, d.ActorID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if actor.IsBanned {
		return nil, svcErr.PermissionDenied("account is banned")
	}
	target, err := s.users.GetByID(ctx, d.TargetID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	release, err := s.gate.Reserve(ctx, actor)
	if err != nil {
		if svcErr.KindOf(err) == svcErr.KindLimitExceeded {
			log.Info("daily swipe limit reached", "user_id", actor.ID)
		}
		return nil, err
	}

	in, err := s.ledger.Record(ctx, actor.ID, target.ID, d.Action, d.SuperLike)
	if err != nil {
		release()
		if errors.Is(err, repository.ErrDuplicateDecision) {
			return nil, svcErr.AlreadyExists("you have already decided on this user")
		}
		log.Error("Record failed", "err", err)
		return nil, svcErr.Map(err)
	}

	res := &Result{Interaction: in, IsPremium: actor.IsPremium}

	if d.Action == db.ActionLike {
		outcome, err := s.detector.OnLike(ctx, actor, target)
		if err != nil {
			log.Error("match check failed, like kept", "actor", actor.ID, "target", target.ID, "err", err)
		} else if outcome.IsMatch() {
			res.IsMatch = true
			res.Match = outcome.Match
		}
	}

	if res.SwipeCount, err = s.gate.SwipeCount(ctx, actor); err != nil {
		log.Warn("swipe count unavailable", "err", err)
	}

	return res, nil
}

func validate(d Decision) error {
	switch {
	case d.ActorID == "" || d.TargetID == "":
		return svcErr.InvalidArgument("user_id and target_user_id required")
	case d.ActorID == d.TargetID:
		return svcErr.InvalidArgument("cannot decide on yourself")
	case d.Action != db.ActionLike && d.Action != db.ActionDislike:
		return svcErr.InvalidArgument("action must be like or dislike")
	case d.SuperLike && d.Action != db.ActionLike:
		return svcErr.InvalidArgument("super like must be a like")
	}
	return nil
}
