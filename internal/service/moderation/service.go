package moderation

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/db"
	"github.com/oggyb/sloi/internal/dto"
	svcErr "github.com/oggyb/sloi/internal/errors"
	"github.com/oggyb/sloi/internal/logger"
	"github.com/oggyb/sloi/internal/repository"
)

const (
	ActionBan     = "ban"
	ActionDismiss = "dismiss"

	// MaxQueue caps one listing of the moderation queue.
	MaxQueue = 200
)

// Service files reports and lets admins act on them.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	reports *repository.ReportRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		reports: repository.NewReportRepository(appCtx.DB),
	}
}

// Report files reporterID's complaint about reportedID.
//
// Behavior:
//   - Users cannot report themselves; the reported profile must exist.
//   - One open report per (reporter, reported); a second one is 409.
func (s *Service) Report(ctx context.Context, reporterID, reportedID, reason string) (*db.Report, error) {
	reason = strings.TrimSpace(reason)
	switch {
	case reportedID == "":
		return nil, svcErr.InvalidArgument("reported_id is required")
	case reason == "":
		return nil, svcErr.InvalidArgument("reason is required")
	case reporterID == reportedID:
		return nil, svcErr.InvalidArgument("cannot report yourself")
	}

	if _, err := s.users.GetByID(ctx, reportedID); err != nil {
		return nil, svcErr.Map(err)
	}
	pending, err := s.reports.HasPending(ctx, reporterID, reportedID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if pending {
		return nil, svcErr.AlreadyExists("report already pending")
	}

	rep, err := s.reports.Create(ctx, reporterID, reportedID, reason)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	logger.FromContext(ctx, s.appCtx.Logger).Info("report filed", "report_id", rep.ID, "reported_id", reportedID)
	return rep, nil
}

// Queue lists open reports, oldest first.
func (s *Service) Queue(ctx context.Context, limit int) ([]dto.Report, error) {
	if limit <= 0 || limit > MaxQueue {
		limit = MaxQueue
	}
	reports, err := s.reports.ListPending(ctx, limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return dto.NewReports(reports, s.appCtx.Now()), nil
}

// Resolve applies an admin decision to a report.
//
// Behavior:
//   - reportedID, when given, must match the report.
//   - dismiss closes the report only.
//   - ban bans the reported user and closes this and every other open
//     report about them, in one transaction.
//   - A report that already left pending is 409.
func (s *Service) Resolve(ctx context.Context, adminID string, reportID uint64, reportedID, action string) (*db.Report, error) {
	if action != ActionBan && action != ActionDismiss {
		return nil, svcErr.InvalidArgument("action must be one of [ban dismiss]")
	}
	rep, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if reportedID != "" && reportedID != rep.ReportedID {
		return nil, svcErr.InvalidArgument("reported_id does not match the report")
	}

	now := s.appCtx.Now()
	status := db.ReportDismissed
	if action == ActionBan {
		status = db.ReportBanned
	}

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reports := repository.NewReportRepository(tx)
		if err := reports.Resolve(ctx, rep.ID, status, adminID, now); err != nil {
			return err
		}
		if action != ActionBan {
			return nil
		}
		if err := repository.NewUserRepository(tx).SetBanned(ctx, rep.ReportedID, true); err != nil {
			return err
		}
		_, err := reports.ResolvePendingFor(ctx, rep.ReportedID, db.ReportBanned, adminID, now)
		return err
	})
	if errors.Is(err, repository.ErrReportResolved) {
		return nil, svcErr.AlreadyExists("report already resolved")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}

	logger.FromContext(ctx, s.appCtx.Logger).Info("report resolved",
		"report_id", rep.ID, "reported_id", rep.ReportedID, "action", action, "admin_id", adminID)

	rep.Status, rep.ResolvedBy, rep.ResolvedAt = status, adminID, &now
	return rep, nil
}

// SetBanned bans or unbans id directly. Banned users vanish from discovery
// and cannot decide.
func (s *Service) SetBanned(ctx context.Context, id string, banned bool) error {
	if err := s.users.SetBanned(ctx, id, banned); err != nil {
		return svcErr.Map(err)
	}
	logger.FromContext(ctx, s.appCtx.Logger).Info("ban updated", "user_id", id, "banned", banned)
	return nil
}
