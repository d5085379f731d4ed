package domain

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Verification status of a pin. A VerificationRequest only ever holds
// pending, approved or rejected.
const (
	VerificationNone     = "none"
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// Moderation log action types.
const (
	ModApproveVerification = "approve_verification"
	ModRejectVerification  = "reject_verification"
	ModBanUser             = "ban_user"
	ModUnbanUser           = "unban_user"
	ModGrantAdmin          = "grant_admin"
	ModRevokeAdmin         = "revoke_admin"
	ModVerifyBuyer         = "verify_buyer"
	ModUnverifyBuyer       = "unverify_buyer"
	ModHidePin             = "hide_pin"
	ModUnhidePin           = "unhide_pin"
	ModUpdateSetting       = "update_setting"
	ModUpdatePointAction   = "update_point_action"
	ModAdjustPoints        = "adjust_points"
	ModReverseTransaction  = "reverse_transaction"
)

// Moderation log target types.
const (
	TargetUser         = "user"
	TargetPin          = "pin"
	TargetVerification = "verification"
	TargetSetting      = "setting"
	TargetPointAction  = "point_action"
	TargetTransaction  = "transaction"
)

// Leaderboard periods.
const (
	PeriodAll   = "all"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// StatDateLayout is the calendar-day key of a DailyStat row.
const StatDateLayout = "2006-01-02"

// Search radius options in km
var SearchRadiusKm = []float64{1, 3, 5, 10, 25}
