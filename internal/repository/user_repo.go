package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oggyb/sloi/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUserNotFound is returned when no profile matches the lookup.
// It wraps gorm.ErrRecordNotFound so the error mapper reports a 404.
var ErrUserNotFound = fmt.Errorf("user %w", gorm.ErrRecordNotFound)

// CandidateFilter narrows the discovery query.
type CandidateFilter struct {
	ExcludeUserID string
	Gender        string
	MinAge        *int
	MaxAge        *int
	// ExcludeIDs is pushed into the query as NOT IN; callers cap its size.
	ExcludeIDs []string
	// After continues the scan below the last row of a previous window.
	After *db.User
	Limit int
}

// UserRepository provides data access for profiles.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetByID loads a profile by its uuid.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByTelegramID loads a profile by its Telegram id.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads several profiles keyed by id. Missing ids are skipped.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*db.User, error) {
	out := make(map[string]*db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

// CreateIfAbsent inserts u unless a row with the same telegram_id exists,
// then returns the stored row. Concurrent first logins end with one user.
func (r *UserRepository) CreateIfAbsent(ctx context.Context, u *db.User) (*db.User, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoNothing: true,
		}).
		Create(u)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return u, true, nil
	}
	existing, err := r.GetByTelegramID(ctx, u.TelegramID)
	return existing, false, err
}

// Update applies a column->value map to one user and returns the fresh row.
func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]any) (*db.User, error) {
	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return r.GetByID(ctx, id)
}

// ExpirePremium clears an expired grant. The WHERE clause only matches a grant
// that is still expired, so a concurrent extension is never overwritten.
// Returns whether a row changed.
func (r *UserRepository) ExpirePremium(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ? AND is_premium = ? AND premium_expires_at IS NOT NULL AND premium_expires_at < ?", id, true, now.UTC()).
		Updates(map[string]any{"is_premium": false, "premium_expires_at": nil})
	return res.RowsAffected > 0, res.Error
}

// SetPremium stores an active grant until expiresAt.
func (r *UserRepository) SetPremium(ctx context.Context, id string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_premium": true, "premium_expires_at": expiresAt.UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetBanned flips the ban flag.
func (r *UserRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Update("is_banned", banned)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// FindCandidates runs the discovery window query.
//
// Behavior:
//   - Excludes the acting user, banned users and users hidden from search.
//   - Applies gender and age bounds when present (NULL ages never match a bound).
//   - Applies the NOT IN exclusion list when non-empty.
//   - Ordered newest account first; ties have no defined order.
func (r *UserRepository) FindCandidates(ctx context.Context, f CandidateFilter) ([]db.User, error) {
	q := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id <> ?", f.ExcludeUserID).
		Where("is_banned = ? AND show_in_search = ?", false, true)

	if f.Gender != "" {
		q = q.Where("gender = ?", f.Gender)
	}
	if f.MinAge != nil {
		q = q.Where("age >= ?", *f.MinAge)
	}
	if f.MaxAge != nil {
		q = q.Where("age <= ?", *f.MaxAge)
	}
	// NOT IN with an empty list would match nothing.
	if len(f.ExcludeIDs) > 0 {
		q = q.Where("id NOT IN ?", f.ExcludeIDs)
	}

	if f.After != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", f.After.CreatedAt, f.After.CreatedAt, f.After.ID)
	}

	var users []db.User
	err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Find(&users).Error
	return users, err
}
