package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Interaction actions.
const (
	ActionLike    = "like"
	ActionDislike = "dislike"
)

// User is a dating profile keyed by a uuid, resolved from a Telegram id.
//
// Boolean flags carry no gorm default tag (gorm skips zero values that have
// one on insert); NewUser sets the visibility defaults.
type User struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	TelegramID int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`

	FirstName string                      `gorm:"size:128" json:"first_name"`
	LastName  string                      `gorm:"size:128" json:"last_name"`
	Username  string                      `gorm:"size:64" json:"username"`
	PhotoURL  string                      `gorm:"size:512" json:"photo_url"`
	Age       *int                        `json:"age"`
	Gender    string                      `gorm:"size:16;index" json:"gender"`
	Bio       string                      `gorm:"size:1024" json:"bio"`
	Photos    datatypes.JSONSlice[string] `json:"photos"`

	SearchGender string `gorm:"size:16" json:"search_gender"`
	MinAge       *int   `json:"min_age"`
	MaxAge       *int   `json:"max_age"`

	IsBanned     bool `gorm:"not null;index:idx_users_visibility,priority:1" json:"is_banned"`
	ShowInSearch bool `gorm:"not null;index:idx_users_visibility,priority:2" json:"show_in_search"`
	HideAge      bool `gorm:"not null" json:"hide_age"`
	HideOnline   bool `gorm:"not null" json:"hide_online"`

	IsPremium        bool       `gorm:"not null" json:"is_premium"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at"`

	NotificationsEnabled bool `gorm:"not null" json:"notifications_enabled"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_users_visibility,priority:3,sort:desc" json:"created_at"`
	LastLogin time.Time `json:"last_login"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewUser returns a visible, notifiable profile for a Telegram account.
func NewUser(telegramID int64) *User {
	return &User{
		ID:                   uuid.NewString(),
		TelegramID:           telegramID,
		ShowInSearch:         true,
		NotificationsEnabled: true,
		Photos:               datatypes.JSONSlice[string]{},
	}
}

// BeforeCreate assigns a uuid when the caller did not.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName is the best human-readable name we have for the user.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return "Someone"
	}
}

// PremiumActive reports whether the stored grant still holds at now. A nil
// expiry on a premium user means unlimited.
func (u *User) PremiumActive(now time.Time) bool {
	return u.IsPremium && (u.PremiumExpiresAt == nil || u.PremiumExpiresAt.After(now))
}

// Interaction is one immutable swipe decision.
//
// Unique (user_id, target_user_id): a second decision on the same target is
// rejected at write time rather than tolerated at read time.
//
// Indexes:
//   - idx_interactions_actor_created(user_id, created_at) serves the daily counter.
//   - idx_interactions_target_action(target_user_id, action) serves reverse-like
//     lookups and the "who liked me" list.
type Interaction struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       string    `gorm:"size:36;not null;uniqueIndex:idx_interactions_pair,priority:1;index:idx_interactions_actor_created,priority:1" json:"user_id"`
	TargetUserID string    `gorm:"size:36;not null;uniqueIndex:idx_interactions_pair,priority:2;index:idx_interactions_target_action,priority:1" json:"target_user_id"`
	Action       string    `gorm:"size:16;not null;index:idx_interactions_target_action,priority:2" json:"action"`
	IsSuperLike  bool      `gorm:"not null" json:"is_super_like"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_interactions_actor_created,priority:2" json:"created_at"`
}

// Match is a materialized mutual like. The pair is stored canonicalized
// (User1ID < User2ID) so the unique index covers the unordered pair.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	User1ID   string    `gorm:"size:36;not null;uniqueIndex:idx_matches_pair,priority:1" json:"user1_id"`
	User2ID   string    `gorm:"size:36;not null;uniqueIndex:idx_matches_pair,priority:2;index" json:"user2_id"`
	MatchedAt time.Time `gorm:"autoCreateTime;not null" json:"matched_at"`

	User1 *User `gorm:"foreignKey:User1ID;references:ID" json:"user1,omitempty"`
	User2 *User `gorm:"foreignKey:User2ID;references:ID" json:"user2,omitempty"`
}

// CanonicalPair orders two user ids so that a < b.
func CanonicalPair(x, y string) (a, b string) {
	if x < y {
		return x, y
	}
	return y, x
}

// Other returns the participant that is not userID.
func (m *Match) Other(userID string) string {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// Report statuses. A report leaves pending exactly once.
const (
	ReportPending   = "pending"
	ReportBanned    = "banned"
	ReportDismissed = "dismissed"
)

// Report is a complaint about a profile, resolved by an admin.
type Report struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReporterID string     `gorm:"size:36;not null;index" json:"reporter_id"`
	ReportedID string     `gorm:"size:36;not null;index" json:"reported_id"`
	Reason     string     `gorm:"size:512;not null" json:"reason"`
	Status     string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	ResolvedBy string     `gorm:"size:36" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Reporter *User `gorm:"foreignKey:ReporterID;references:ID" json:"reporter,omitempty"`
	Reported *User `gorm:"foreignKey:ReportedID;references:ID" json:"reported,omitempty"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&User{}, &Interaction{}, &Match{}, &Report{}}
}
