// Package dto holds the JSON views returned by the HTTP API.
package dto

import (
	"time"

	"github.com/oggyb/sloi/internal/db"
)

// PublicProfile is what other users see. Hide flags are applied.
type PublicProfile struct {
	ID        string     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Username  string     `json:"username"`
	PhotoURL  string     `json:"photo_url"`
	Age       *int       `json:"age,omitempty"`
	Gender    string     `json:"gender"`
	Bio       string     `json:"bio"`
	Photos    []string   `json:"photos"`
	IsPremium bool       `json:"is_premium"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Public builds the public view of u as of now. A lapsed premium grant is
// reported as not premium even before it is cleared in storage.
func Public(u *db.User, now time.Time) PublicProfile {
	p := PublicProfile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		PhotoURL:  u.PhotoURL,
		Gender:    u.Gender,
		Bio:       u.Bio,
		Photos:    photos(u),
		IsPremium: u.PremiumActive(now),
		CreatedAt: u.CreatedAt,
	}
	if !u.HideAge {
		p.Age = u.Age
	}
	if !u.HideOnline && !u.LastLogin.IsZero() {
		last := u.LastLogin
		p.LastLogin = &last
	}
	return p
}

// Candidate is a discovery or likes-me entry.
type Candidate struct {
	PublicProfile
	IsSuperLike bool `json:"is_super_like"`
}

func NewCandidate(u *db.User, superLike bool, now time.Time) Candidate {
	return Candidate{PublicProfile: Public(u, now), IsSuperLike: superLike}
}

// OwnProfile is the caller's own profile with entitlement details.
type OwnProfile struct {
	*db.User
	PremiumDaysRemaining *int  `json:"premium_days_remaining,omitempty"`
	PremiumUnlimited     bool  `json:"premium_unlimited"`
	SwipeCount           int64 `json:"swipe_count"`
	DailyLimit           int   `json:"daily_limit"`
	IsAdmin              bool  `json:"is_admin"`
}

// Match embeds both participants' public profiles. PartnerID is the
// participant that is not the viewer.
type Match struct {
	ID        uint64         `json:"id"`
	User1ID   string         `json:"user1_id"`
	User2ID   string         `json:"user2_id"`
	PartnerID string         `json:"partner_id"`
	MatchedAt time.Time      `json:"matched_at"`
	User1     *PublicProfile `json:"user1,omitempty"`
	User2     *PublicProfile `json:"user2,omitempty"`
}

func NewMatch(m *db.Match, viewerID string, now time.Time) Match {
	out := Match{
		ID:        m.ID,
		User1ID:   m.User1ID,
		User2ID:   m.User2ID,
		PartnerID: m.Other(viewerID),
		MatchedAt: m.MatchedAt,
	}
	if m.User1 != nil {
		p := Public(m.User1, now)
		out.User1 = &p
	}
	if m.User2 != nil {
		p := Public(m.User2, now)
		out.User2 = &p
	}
	return out
}

func NewMatches(ms []db.Match, viewerID string, now time.Time) []Match {
	out := make([]Match, 0, len(ms))
	for i := range ms {
		out = append(out, NewMatch(&ms[i], viewerID, now))
	}
	return out
}

func photos(u *db.User) []string {
	if len(u.Photos) == 0 {
		return []string{}
	}
	return append([]string(nil), u.Photos...)
}
