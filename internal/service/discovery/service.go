package discovery

import (
	"context"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/db"
	"github.com/oggyb/sloi/internal/dto"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/logger"
	"github.com/oggyb/sloi/internal/repository"
	"github.com/oggyb/sloi/internal/service/premium"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50

	// maxWindows bounds how far past decided profiles one request scans.
	maxWindows = 5
)

// Batch is one discovery response.
type Batch struct {
	Profiles   []dto.Candidate
	SwipeCount int64
	IsPremium  bool
}

// Service produces discovery candidates.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	ledger *repository.InteractionRepository
	gate   *premium.Gate
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		ledger: repository.NewInteractionRepository(appCtx.DB),
		gate:   premium.NewGate(appCtx),
	}
}

// NextBatch returns up to limit candidates for userID, newest accounts first.
//
// Behavior:
//   - Never returns the user, banned users, hidden users or anyone the user
//     already decided on.
//   - search_gender and min/max age are applied in the query.
//   - At most MaxExcludedIDs decided ids go into the query; the final
//     in-process filter is what guarantees exclusion. When a window is used
//     up by decided profiles, the next window is scanned (up to maxWindows).
//   - Candidates who superliked the user are flagged.
//   - Consecutive calls may overlap; callers de-duplicate.
func (s *Service) NextBatch(ctx context.Context, userID string, limit int) (*Batch, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)

	if userID == "" {
		return nil, svcErr.InvalidArgument("user_id required")
	}
	limit = clampLimit(limit)

	me, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	ent, err := s.gate.CurrentEntitlement(ctx, me)
	if err != nil {
		return nil, err
	}

	decided, err := s.ledger.DecidedTargets(ctx, me.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	superlikers, err := s.ledger.SuperlikersOf(ctx, me.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	limits := s.appCtx.Config.Limits
	filter := repository.CandidateFilter{
		ExcludeUserID: me.ID,
		Gender:        me.SearchGender,
		MinAge:        me.MinAge,
		MaxAge:        me.MaxAge,
		ExcludeIDs:    capIDs(decided, limits.MaxExcludedIDs),
		Limit:         limits.DiscoveryWindow,
	}

	now := s.appCtx.Now()
	profiles := make([]dto.Candidate, 0, limit)
	scanned := 0
	for page := 0; page < maxWindows && len(profiles) < limit; page++ {
		window, err := s.users.FindCandidates(ctx, filter)
		if err != nil {
			log.Error("FindCandidates failed", "err", err)
			return nil, svcErr.Map(err)
		}
		scanned += len(window)

		for i := range window {
			c := &window[i]
			if !eligible(me, c, decided) {
				continue
			}
			_, super := superlikers[c.ID]
			profiles = append(profiles, dto.NewCandidate(c, super, now))
			if len(profiles) == limit {
				break
			}
		}
		if len(window) == 0 || len(window) < filter.Limit {
			break
		}
		filter.After = &window[len(window)-1]
	}

	count, err := s.gate.SwipeCount(ctx, me)
	if err != nil {
		return nil, err
	}

	log.Debug("NextBatch result", "scanned", scanned, "returned", len(profiles), "excluded", len(decided))

	return &Batch{Profiles: profiles, SwipeCount: count, IsPremium: ent.IsPremium}, nil
}

// eligible is the authoritative filter; the query only narrows the window.
func eligible(me, c *db.User, decided map[string]struct{}) bool {
	if c.ID == me.ID || c.IsBanned || !c.ShowInSearch {
		return false
	}
	if _, ok := decided[c.ID]; ok {
		return false
	}
	if me.SearchGender != "" && c.Gender != me.SearchGender {
		return false
	}
	if me.MinAge != nil && (c.Age == nil || *c.Age < *me.MinAge) {
		return false
	}
	if me.MaxAge != nil && (c.Age == nil || *c.Age > *me.MaxAge) {
		return false
	}
	return true
}

func capIDs(set map[string]struct{}, max int) []string {
	if max <= 0 {
		return nil
	}
	ids := make([]string, 0, min(len(set), max))
	for id := range set {
		if len(ids) == max {
			break
		}
		ids = append(ids, id)
	}
	return ids
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
