package domain

import "fmt"

// ActionKind is the closed set of point-earning action codes. The
// catalog table is keyed by it and every per-kind branch switches on it.
type ActionKind string

const (
	ActionCreatePin        ActionKind = "create_pin"
	ActionLikePin          ActionKind = "like_pin"
	ActionReceiveLike      ActionKind = "receive_like"
	ActionCommentPin       ActionKind = "comment_pin"
	ActionReceiveComment   ActionKind = "receive_comment"
	ActionDailyLogin       ActionKind = "daily_login"
	ActionStreak7Days      ActionKind = "streak_7_days"
	ActionStreak30Days     ActionKind = "streak_30_days"
	ActionVerifiedPurchase ActionKind = "verified_purchase"
	ActionTresesentaBonus  ActionKind = "tresesenta_bonus"
	ActionAdminAdjustment  ActionKind = "admin_adjustment"
)

// AllActionKinds lists every kind in catalog order.
func AllActionKinds() []ActionKind {
	return []ActionKind{
		ActionCreatePin,
		ActionLikePin,
		ActionReceiveLike,
		ActionCommentPin,
		ActionReceiveComment,
		ActionDailyLogin,
		ActionStreak7Days,
		ActionStreak30Days,
		ActionVerifiedPurchase,
		ActionTresesentaBonus,
		ActionAdminAdjustment,
	}
}

func (k ActionKind) Valid() bool {
	switch k {
	case ActionCreatePin, ActionLikePin, ActionReceiveLike, ActionCommentPin,
		ActionReceiveComment, ActionDailyLogin, ActionStreak7Days, ActionStreak30Days,
		ActionVerifiedPurchase, ActionTresesentaBonus, ActionAdminAdjustment:
		return true
	}
	return false
}

// Counted reports whether the kind has a per-day counter in DailyStat.
// Only counted kinds can be rate limited or cooled down.
func (k ActionKind) Counted() bool {
	switch k {
	case ActionCreatePin, ActionLikePin, ActionCommentPin:
		return true
	}
	return false
}

func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown action code %q", s)
	}
	return k, nil
}

func (k ActionKind) String() string { return string(k) }
