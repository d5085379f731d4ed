package models

import (
	"time"

	"tresesenta/internal/domain"
)

// DailyStat is one row per user per calendar day. Rows are created on the
// first action of the day and never reset in place.
type DailyStat struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;uniqueIndex:idx_daily_user_date,priority:1" json:"user_id"`
	StatDate       string     `gorm:"size:10;not null;uniqueIndex:idx_daily_user_date,priority:2" json:"stat_date"`
	PinsCreated    int        `gorm:"not null;default:0" json:"pins_created"`
	LikesGiven     int        `gorm:"not null;default:0" json:"likes_given"`
	CommentsMade   int        `gorm:"not null;default:0" json:"comments_made"`
	PointsEarned   int        `gorm:"not null;default:0" json:"points_earned"`
	LastPinAt      *time.Time `json:"last_pin_at"`
	LastLikeAt     *time.Time `json:"last_like_at"`
	LastCommentAt  *time.Time `json:"last_comment_at"`
	LoginStreak    int        `gorm:"not null;default:0" json:"login_streak"`
	LoginClaimedAt *time.Time `json:"login_claimed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (DailyStat) TableName() string {
	return "user_daily_stats"
}

// CountColumn returns the counter column for a counted kind.
func CountColumn(kind domain.ActionKind) (string, bool) {
	switch kind {
	case domain.ActionCreatePin:
		return "pins_created", true
	case domain.ActionLikePin:
		return "likes_given", true
	case domain.ActionCommentPin:
		return "comments_made", true
	}
	return "", false
}

// LastAtColumn returns the last-occurrence timestamp column for a counted kind.
func LastAtColumn(kind domain.ActionKind) (string, bool) {
	switch kind {
	case domain.ActionCreatePin:
		return "last_pin_at", true
	case domain.ActionLikePin:
		return "last_like_at", true
	case domain.ActionCommentPin:
		return "last_comment_at", true
	}
	return "", false
}

// Count returns today's counter for kind; uncounted kinds report 0.
func (s *DailyStat) Count(kind domain.ActionKind) int {
	switch kind {
	case domain.ActionCreatePin:
		return s.PinsCreated
	case domain.ActionLikePin:
		return s.LikesGiven
	case domain.ActionCommentPin:
		return s.CommentsMade
	}
	return 0
}

func (s *DailyStat) LastAt(kind domain.ActionKind) *time.Time {
	switch kind {
	case domain.ActionCreatePin:
		return s.LastPinAt
	case domain.ActionLikePin:
		return s.LastLikeAt
	case domain.ActionCommentPin:
		return s.LastCommentAt
	}
	return nil
}
