package repository

import (
	"context"

	"github.com/oggyb/sloi/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchRepository stores mutual likes, one row per unordered pair.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreatePair stores the match between a and b in canonical order.
// When the pair already exists the stored row is returned with created=false.
func (r *MatchRepository) CreatePair(ctx context.Context, a, b string) (*db.Match, bool, error) {
	u1, u2 := db.CanonicalPair(a, b)
	m := db.Match{User1ID: u1, User2ID: u2}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(&m)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &m, true, nil
	}

	existing, err := r.GetPair(ctx, u1, u2)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetPair loads the match for an unordered pair.
func (r *MatchRepository) GetPair(ctx context.Context, a, b string) (*db.Match, error) {
	u1, u2 := db.CanonicalPair(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Take(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns every match the user participates in, newest first,
// with both profiles preloaded.
func (r *MatchRepository) ListForUser(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Preload("User1").
		Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("matched_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}
