package service

import (
	"context"
	"math"
	"time"

	"tresesenta/internal/domain"
	"tresesenta/internal/models"
	"tresesenta/internal/repository"
	"tresesenta/pkg/apperr"

	"gorm.io/gorm"
)

// LimitStatus is today's usage of one counted action.
type LimitStatus struct {
	Kind      domain.ActionKind `json:"action_code"`
	Used      int               `json:"used"`
	Limit     *int              `json:"limit"`     // nil = unlimited
	Remaining *int              `json:"remaining"` // nil = unlimited
	Allowed   bool              `json:"allowed"`
}

// Counter gates actions on per-day counters. Checks are plain reads; the
// increment is an upsert. Run inside the actor's locked transaction the
// pair is exact per user, elsewhere it is best-effort and two concurrent
// requests may pass the same check.
type Counter struct {
	stats *repository.DailyStatRepository
	loc   *time.Location
	now   func() time.Time
}

func NewCounter(db *gorm.DB, loc *time.Location, now func() time.Time) *Counter {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Counter{stats: repository.NewDailyStatRepository(db), loc: loc, now: now}
}

// Day returns the calendar-day key of t in the configured timezone.
func (c *Counter) Day(t time.Time) string {
	return t.In(c.loc).Format(domain.StatDateLayout)
}

func (c *Counter) Today() string {
	return c.Day(c.now())
}

func (c *Counter) Yesterday() string {
	return c.PreviousDay(c.now())
}

// PreviousDay returns the day key before the calendar day of t.
func (c *Counter) PreviousDay(t time.Time) string {
	return t.In(c.loc).AddDate(0, 0, -1).Format(domain.StatDateLayout)
}

// TodayStats returns today's row, or nil.
func (c *Counter) TodayStats(ctx context.Context, db *gorm.DB, userID uint) (*models.DailyStat, error) {
	return c.stats.WithTx(db).Get(ctx, userID, c.Today())
}

// CheckLimit compares today's counter with def.DailyLimit. It denies only
// when used >= limit and never writes.
func (c *Counter) CheckLimit(ctx context.Context, db *gorm.DB, userID uint, kind domain.ActionKind, def *models.PointAction) (LimitStatus, error) {
	st := LimitStatus{Kind: kind, Allowed: true}
	if def != nil {
		st.Limit = def.DailyLimit
	}
	row, err := c.TodayStats(ctx, db, userID)
	if err != nil {
		return st, apperr.Persistence(apperr.CodeStorage, err)
	}
	if row != nil {
		st.Used = row.Count(kind)
	}
	if st.Limit == nil {
		return st, nil
	}
	remaining := *st.Limit - st.Used
	if remaining < 0 {
		remaining = 0
	}
	st.Remaining = &remaining
	st.Allowed = st.Used < *st.Limit
	return st, nil
}

// CheckCooldown returns the whole seconds left before kind may run again,
// or 0. Only today's last-at stamp is consulted.
func (c *Counter) CheckCooldown(ctx context.Context, db *gorm.DB, userID uint, kind domain.ActionKind, cooldownSeconds int) (int, error) {
	if cooldownSeconds <= 0 {
		return 0, nil
	}
	row, err := c.TodayStats(ctx, db, userID)
	if err != nil {
		return 0, apperr.Persistence(apperr.CodeStorage, err)
	}
	if row == nil {
		return 0, nil
	}
	last := row.LastAt(kind)
	if last == nil {
		return 0, nil
	}
	left := time.Duration(cooldownSeconds)*time.Second - c.now().Sub(*last)
	if left <= 0 {
		return 0, nil
	}
	return int(math.Ceil(left.Seconds())), nil
}

// Gate runs both checks and turns a denial into a RateLimited error
// carrying the numbers a client needs.
func (c *Counter) Gate(ctx context.Context, db *gorm.DB, userID uint, kind domain.ActionKind, def *models.PointAction, cooldownSeconds int) error {
	st, err := c.CheckLimit(ctx, db, userID, kind, def)
	if err != nil {
		return err
	}
	if !st.Allowed {
		return apperr.RateLimited(apperr.CodeDailyLimit, "daily limit reached").
			With("action_code", string(kind)).
			With("limit", *st.Limit).
			With("used", st.Used).
			With("remaining", 0).
			With("retry_after_seconds", c.secondsUntilMidnight())
	}
	left, err := c.CheckCooldown(ctx, db, userID, kind, cooldownSeconds)
	if err != nil {
		return err
	}
	if left > 0 {
		return apperr.RateLimited(apperr.CodeCooldown, "action on cooldown").
			With("action_code", string(kind)).
			With("retry_after_seconds", left)
	}
	return nil
}

func (c *Counter) secondsUntilMidnight() int {
	now := c.now().In(c.loc)
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, c.loc)
	return int(math.Ceil(next.Sub(now).Seconds()))
}

// RecordOccurrence counts one occurrence of kind today. The caller calls
// it exactly once per logical action, inside the action's transaction.
func (c *Counter) RecordOccurrence(ctx context.Context, tx *gorm.DB, userID uint, kind domain.ActionKind, pointsEarned int) error {
	now := c.now()
	return c.stats.WithTx(tx).Increment(ctx, userID, c.Day(now), kind, now, pointsEarned)
}

// AddPointsEarned books points to today's row without counting an action.
func (c *Counter) AddPointsEarned(ctx context.Context, tx *gorm.DB, userID uint, delta int) error {
	now := c.now()
	return c.stats.WithTx(tx).AddPoints(ctx, userID, c.Day(now), now, delta)
}

// effectiveCooldown is the catalog cooldown when set; comments without one
// fall back to the comment_cooldown_seconds setting.
func effectiveCooldown(def *models.PointAction, s Settings) int {
	if def != nil && def.CooldownSeconds != nil {
		return *def.CooldownSeconds
	}
	if def != nil && def.ActionCode == domain.ActionCommentPin {
		return s.CommentCooldownSeconds
	}
	return 0
}
