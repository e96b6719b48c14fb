package profile

import (
	"context"
	"errors"

	"gorm.io/datatypes"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/db"
	"github.com/oggyb/sloi/internal/dto"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/logger"
	"github.com/oggyb/sloi/internal/photo"
	"github.com/oggyb/sloi/internal/repository"
	"github.com/oggyb/sloi/internal/service/premium"
	"github.com/oggyb/sloi/internal/utils/pagination"
)

const (
	DefaultLikesPageSize = 20
	MaxLikesPageSize     = 100
)

// Update is a partial profile edit. Nil fields are left unchanged.
type Update struct {
	FirstName            *string   `json:"first_name" binding:"omitempty,max=128"`
	LastName             *string   `json:"last_name" binding:"omitempty,max=128"`
	Age                  *int      `json:"age" binding:"omitempty,gte=18,lte=100"`
	Gender               *string   `json:"gender" binding:"omitempty,oneof=male female"`
	Bio                  *string   `json:"bio" binding:"omitempty,max=1024"`
	Photos               *[]string `json:"photos" binding:"omitempty,max=6,dive,url"`
	SearchGender         *string   `json:"search_gender" binding:"omitempty,oneof=male female any"`
	MinAge               *int      `json:"min_age" binding:"omitempty,gte=18,lte=100"`
	MaxAge               *int      `json:"max_age" binding:"omitempty,gte=18,lte=100"`
	ShowInSearch         *bool     `json:"show_in_search"`
	HideAge              *bool     `json:"hide_age"`
	HideOnline           *bool     `json:"hide_online"`
	NotificationsEnabled *bool     `json:"notifications_enabled"`
}

// LikesPage is one page of pending likes.
type LikesPage struct {
	Profiles      []dto.Candidate
	NextPageToken *string
}

// Service reads and edits profiles.
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

// Own returns the full profile of id with its entitlement and today's usage.
func (s *Service) Own(ctx context.Context, id string) (*dto.OwnProfile, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	ent, err := s.gate.CurrentEntitlement(ctx, u)
	if err != nil {
		return nil, err
	}
	count, err := s.gate.SwipeCount(ctx, u)
	if err != nil {
		return nil, err
	}

	out := &dto.OwnProfile{
		User:       u,
		SwipeCount: count,
		DailyLimit: s.gate.DailyLimit(),
		IsAdmin:    s.appCtx.Config.IsAdmin(u.TelegramID),
	}
	days, unlimited := ent.DaysRemaining(s.appCtx.Now())
	out.PremiumUnlimited = unlimited
	if ent.IsPremium && !unlimited {
		out.PremiumDaysRemaining = &days
	}
	return out, nil
}

// Public returns what other users may see of id. Banned profiles are not found.
func (s *Service) Public(ctx context.Context, id string) (*dto.PublicProfile, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if u.IsBanned {
		return nil, svcErr.NotFound("Profile not found")
	}
	if _, err := s.gate.CurrentEntitlement(ctx, u); err != nil {
		return nil, err
	}
	p := dto.Public(u, s.appCtx.Now())
	return &p, nil
}

// Edit applies upd to id's profile.
//
// Behavior:
//   - Only non-nil fields are written.
//   - The resulting min_age must not exceed max_age.
//   - The returned profile has a lapsed premium grant cleared.
func (s *Service) Edit(ctx context.Context, id string, upd Update) (*db.User, error) {
	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	minAge, maxAge := current.MinAge, current.MaxAge
	if upd.MinAge != nil {
		minAge = upd.MinAge
	}
	if upd.MaxAge != nil {
		maxAge = upd.MaxAge
	}
	if minAge != nil && maxAge != nil && *minAge > *maxAge {
		return nil, svcErr.InvalidArgument("min_age must not exceed max_age")
	}

	u := current
	if fields := upd.fields(); len(fields) > 0 {
		u, err = s.users.Update(ctx, id, fields)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		logger.FromContext(ctx, s.appCtx.Logger).Info("profile updated", "user_id", id, "fields", len(fields))
	}
	if _, err := s.gate.CurrentEntitlement(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (upd Update) fields() map[string]any {
	f := map[string]any{}
	if upd.FirstName != nil {
		f["first_name"] = *upd.FirstName
	}
	if upd.LastName != nil {
		f["last_name"] = *upd.LastName
	}
	if upd.Age != nil {
		f["age"] = *upd.Age
	}
	if upd.Gender != nil {
		f["gender"] = *upd.Gender
	}
	if upd.Bio != nil {
		f["bio"] = *upd.Bio
	}
	if upd.Photos != nil {
		f["photos"] = datatypes.JSONSlice[string](*upd.Photos)
	}
	if upd.SearchGender != nil {
		// "any" is stored as no preference
		g := *upd.SearchGender
		if g == "any" {
			g = ""
		}
		f["search_gender"] = g
	}
	if upd.MinAge != nil {
		f["min_age"] = *upd.MinAge
	}
	if upd.MaxAge != nil {
		f["max_age"] = *upd.MaxAge
	}
	if upd.ShowInSearch != nil {
		f["show_in_search"] = *upd.ShowInSearch
	}
	if upd.HideAge != nil {
		f["hide_age"] = *upd.HideAge
	}
	if upd.HideOnline != nil {
		f["hide_online"] = *upd.HideOnline
	}
	if upd.NotificationsEnabled != nil {
		f["notifications_enabled"] = *upd.NotificationsEnabled
	}
	return f
}

// AddPhoto validates body, uploads it and appends its URL to the profile.
// The first photo also becomes the avatar when none is set.
func (s *Service) AddPhoto(ctx context.Context, id string, body []byte) (*db.User, error) {
	if s.appCtx.Photos == nil {
		return nil, svcErr.Internal("photo storage is not configured", nil)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if len(u.Photos) >= photo.MaxPerUser {
		return nil, svcErr.InvalidArgument("photo limit reached")
	}

	contentType, ext, err := photo.Sniff(body)
	if err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}

	log := logger.FromContext(ctx, s.appCtx.Logger)
	url, err := s.appCtx.Photos.Upload(ctx, photo.ObjectPath(u.ID, ext), contentType, body)
	if err != nil {
		log.Error("photo upload failed", "user_id", u.ID, "err", err)
		return nil, svcErr.Internal("photo upload failed", err)
	}

	photos := append(datatypes.JSONSlice[string]{}, u.Photos...)
	fields := map[string]any{"photos": append(photos, url)}
	if u.PhotoURL == "" {
		fields["photo_url"] = url
	}
	updated, err := s.users.Update(ctx, u.ID, fields)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	log.Info("photo added", "user_id", u.ID, "content_type", contentType, "size", len(body))
	return updated, nil
}

// GrantPremium extends id's premium by days, or makes it permanent.
func (s *Service) GrantPremium(ctx context.Context, id string, days int, unlimited bool) (*db.User, error) {
	if unlimited {
		return s.gate.GrantUnlimited(ctx, id)
	}
	if days == 0 {
		days = s.appCtx.Config.Limits.PremiumGrantDays
	}
	return s.gate.GrantOrExtend(ctx, id, days)
}

// LikesMe lists users who liked id and are still waiting for id's decision.
//
// Behavior:
//   - Premium only; the entitlement is checked with lazy expiry.
//   - Newest like first, cursor paginated.
//   - Banned likers are skipped; superlikes are annotated.
func (s *Service) LikesMe(ctx context.Context, id, pageToken string, limit int) (*LikesPage, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	ent, err := s.gate.CurrentEntitlement(ctx, u)
	if err != nil {
		return nil, err
	}
	if !ent.IsPremium {
		return nil, svcErr.PermissionDenied("premium required")
	}

	switch {
	case limit <= 0:
		limit = DefaultLikesPageSize
	case limit > MaxLikesPageSize:
		limit = MaxLikesPageSize
	}

	rows, next, err := s.ledger.ListLikers(ctx, id, pageToken, limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidToken) {
			return nil, svcErr.InvalidArgument("invalid page_token")
		}
		return nil, svcErr.Map(err)
	}

	likerIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		likerIDs = append(likerIDs, r.UserID)
	}
	likers, err := s.users.GetByIDs(ctx, likerIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	page := &LikesPage{Profiles: make([]dto.Candidate, 0, len(rows)), NextPageToken: next}
	for _, r := range rows {
		liker, ok := likers[r.UserID]
		if !ok || liker.IsBanned {
			continue
		}
		page.Profiles = append(page.Profiles, dto.NewCandidate(liker, r.IsSuperLike, s.appCtx.Now()))
	}
	return page, nil
}
