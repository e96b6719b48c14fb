package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oggyb/sloi/internal/db"

	"gorm.io/gorm"
)

var (
	// ErrReportNotFound wraps gorm.ErrRecordNotFound so the error mapper reports a 404.
	ErrReportNotFound = fmt.Errorf("report %w", gorm.ErrRecordNotFound)
	// ErrReportResolved is returned when a report already left pending.
	ErrReportResolved = errors.New("report already resolved")
)

// ReportRepository stores complaints about profiles.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(database *gorm.DB) *ReportRepository {
	return &ReportRepository{db: database}
}

// Create files a pending report.
func (r *ReportRepository) Create(ctx context.Context, reporterID, reportedID, reason string) (*db.Report, error) {
	rep := db.Report{
		ReporterID: reporterID,
		ReportedID: reportedID,
		Reason:     reason,
		Status:     db.ReportPending,
	}
	if err := r.db.WithContext(ctx).Create(&rep).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

// HasPending reports whether reporter already has an open report on reported.
func (r *ReportRepository) HasPending(ctx context.Context, reporterID, reportedID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("reporter_id = ? AND reported_id = ? AND status = ?", reporterID, reportedID, db.ReportPending).
		Count(&n).Error
	return n > 0, err
}

// Get loads one report.
func (r *ReportRepository) Get(ctx context.Context, id uint64) (*db.Report, error) {
	var rep db.Report
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// ListPending returns open reports, oldest first, with both profiles preloaded.
func (r *ReportRepository) ListPending(ctx context.Context, limit int) ([]db.Report, error) {
	var reports []db.Report
	err := r.db.WithContext(ctx).
		Preload("Reporter").
		Preload("Reported").
		Where("status = ?", db.ReportPending).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

// Resolve moves a pending report to status.
//
// Behavior:
//   - Only a pending row is updated, so two admins acting on the same report
//     resolve it once; the second gets ErrReportResolved.
//   - A missing report returns ErrReportNotFound.
func (r *ReportRepository) Resolve(ctx context.Context, id uint64, status, adminID string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("id = ? AND status = ?", id, db.ReportPending).
		Updates(map[string]any{"status": status, "resolved_by": adminID, "resolved_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrReportResolved
}

// ResolvePendingFor closes every open report on reportedID with status and
// returns how many were closed.
func (r *ReportRepository) ResolvePendingFor(ctx context.Context, reportedID, status, adminID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("reported_id = ? AND status = ?", reportedID, db.ReportPending).
		Updates(map[string]any{"status": status, "resolved_by": adminID, "resolved_at": at})
	return res.RowsAffected, res.Error
}
