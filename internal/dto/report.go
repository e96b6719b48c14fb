package dto

import (
	"time"

	"github.com/oggyb/sloi/internal/db"
)

// Report is a moderation queue entry with both profiles.
type Report struct {
	ID         uint64         `json:"id"`
	ReporterID string         `json:"reporter_id"`
	ReportedID string         `json:"reported_id"`
	Reason     string         `json:"reason"`
	Status     string         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	Reporter   *PublicProfile `json:"reporter,omitempty"`
	Reported   *PublicProfile `json:"reported,omitempty"`
}

func NewReports(rs []db.Report, now time.Time) []Report {
	out := make([]Report, 0, len(rs))
	for i := range rs {
		r := &rs[i]
		item := Report{
			ID:         r.ID,
			ReporterID: r.ReporterID,
			ReportedID: r.ReportedID,
			Reason:     r.Reason,
			Status:     r.Status,
			CreatedAt:  r.CreatedAt,
		}
		if r.Reporter != nil {
			p := Public(r.Reporter, now)
			item.Reporter = &p
		}
		if r.Reported != nil {
			p := Public(r.Reported, now)
			item.Reported = &p
		}
		out = append(out, item)
	}
	return out
}
