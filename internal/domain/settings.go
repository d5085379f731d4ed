package domain

// Recognized system_settings keys. service.Settings is the only reader.
const (
	SettingAutoApproveVerifiedBuyers = "auto_approve_verified_buyers"
	SettingCommentCooldownSeconds    = "comment_cooldown_seconds"
	SettingPinFallbackPoints         = "pin_fallback_points"
	SettingLeaderboardLimit          = "leaderboard_limit"
)

type SettingDefault struct {
	Key         string
	Value       string
	Description string
}

var SettingDefaults = []SettingDefault{
	{SettingAutoApproveVerifiedBuyers, "false", "Auto-approve purchase claims from verified buyers"},
	{SettingCommentCooldownSeconds, "30", "Seconds between two comments when the catalog sets no cooldown"},
	{SettingPinFallbackPoints, "20", "Points for a pin when create_pin is missing from the catalog"},
	{SettingLeaderboardLimit, "20", "Rows returned by the leaderboard"},
}

func IsKnownSetting(key string) bool {
	for _, d := range SettingDefaults {
		if d.Key == key {
			return true
		}
	}
	return false
}
