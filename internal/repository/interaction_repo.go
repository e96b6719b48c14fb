package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oggyb/sloi/internal/db"
	"github.com/oggyb/sloi/internal/utils/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateDecision means the actor already decided on the target.
var ErrDuplicateDecision = errors.New("decision already recorded")

// InteractionRepository is the swipe ledger: append-only like/dislike rows.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new repository bound to the given DB connection.
func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// Record appends a decision made by actor -> target.
//
// Behavior:
//   - Rows are never updated in place.
//   - The (user_id, target_user_id) unique index rejects a second decision;
//     the insert is skipped and ErrDuplicateDecision returned.
//
// Example:
//
//	repo.Record(ctx, a, b, db.ActionLike, false) // a liked b
func (r *InteractionRepository) Record(
	ctx context.Context,
	actorID, targetID, action string,
	superLike bool,
) (*db.Interaction, error) {
	in := db.Interaction{
		UserID:       actorID,
		TargetUserID: targetID,
		Action:       action,
		IsSuperLike:  superLike,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_user_id"}},
			DoNothing: true,
		}).
		Create(&in)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicateDecision
	}
	return &in, nil
}

// CountSince returns how many decisions the actor made at or after since.
// Superlikes are decisions too and are counted.
func (r *InteractionRepository) CountSince(
	ctx context.Context,
	actorID string,
	since time.Time,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("user_id = ? AND created_at >= ?", actorID, since.UTC()).
		Count(&count).Error
	return count, err
}

// DecidedTargets returns every target the actor has any row for.
// Any row, whatever its action, excludes the target from discovery.
func (r *InteractionRepository) DecidedTargets(
	ctx context.Context,
	actorID string,
) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("user_id = ?", actorID).
		Distinct().
		Pluck("target_user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

// SuperlikersOf returns the users who superliked the target.
func (r *InteractionRepository) SuperlikersOf(
	ctx context.Context,
	targetID string,
) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("target_user_id = ? AND action = ? AND is_super_like = ?", targetID, db.ActionLike, true).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

// HasLiked checks whether an actor has liked a target.
//
// Behavior:
//   - Returns true if there exists a row where user_id = X,
//     target_user_id = Y, and action = like.
//   - Used by the match detector for the reverse-like check.
func (r *InteractionRepository) HasLiked(
	ctx context.Context,
	actorID, targetID string,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("user_id = ? AND target_user_id = ? AND action = ?", actorID, targetID, db.ActionLike).
		Count(&count).Error
	return count > 0, err
}

// ListLikers returns likes received by target that target has not decided on yet.
//
// Behavior:
//   - Only rows where target_user_id = X and action = like are returned.
//   - Excludes actors the target already liked or disliked.
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination via pageToken.
//
// Example:
//
//	repo.ListLikers(ctx, "42", "", 20) // first 20 pending likes for user 42
func (r *InteractionRepository) ListLikers(
	ctx context.Context,
	targetID string,
	pageToken string,
	limit int,
) ([]db.Interaction, *string, error) {
	cursor, err := pagination.Decode(pageToken)
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("interactions i").
		Where("i.target_user_id = ? AND i.action = ?", targetID, db.ActionLike).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM interactions i2
				WHERE i2.user_id = ?
				  AND i2.target_user_id = i.user_id
			)`, targetID).
		Order("i.created_at DESC, i.id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := time.UnixMicro(cursor.CreatedMicro).UTC()
		query = query.Where(
			"(i.created_at < ? OR (i.created_at = ? AND i.id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var rows []db.Interaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(rows) > limit {
		last := rows[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:           last.ID,
			CreatedMicro: last.CreatedAt.UnixMicro(),
		})
		nextToken = &token
		rows = rows[:limit]
	}

	return rows, nextToken, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
