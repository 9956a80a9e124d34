package constants

const (
	// Config keys accepted by `lightsout config set`
	SettingDailyDeadline              = "dailyDeadline"
	SettingRestrictedStart            = "restrictedStart"
	SettingRestrictedEnd              = "restrictedEnd"
	SettingWarningsNormal             = "warningsNormalMinutesBefore"
	SettingWarningsAfterOverride      = "warningsAfterOverrideMinutesBefore"
	SettingOverrideEnabled            = "overrideEnabled"
	SettingOverrideExtensionMinutes   = "overrideExtensionMinutes"
	SettingOverrideCommitmentPhrase   = "overrideCommitmentPhrase"
	SettingOverrideReasonMinLength    = "overrideReasonMinLength"
	SettingWeeklyOverrideLimitEnabled = "weeklyOverrideLimitEnabled"
	SettingMaxOverridesPerWeek        = "maxOverridesPerWeek"
	SettingPopupAutoCloseSeconds      = "popupAutoCloseSeconds"
	SettingPollIntervalSeconds        = "pollIntervalSeconds"
	SettingMetricsAddr                = "metricsAddr"

	// Default config values
	ConfigVersion                     = 1
	DefaultDailyDeadline              = "02:00"
	DefaultRestrictedStart            = "02:00"
	DefaultRestrictedEnd              = "08:00"
	DefaultOverrideEnabled            = true
	DefaultOverrideExtensionMinutes   = 60
	DefaultOverrideCommitmentPhrase   = "I confirm the reason for extending my computer usage is formal and necessary."
	DefaultOverrideReasonMinLength    = 15
	DefaultWeeklyOverrideLimitEnabled = true
	DefaultMaxOverridesPerWeek        = 2
	DefaultPopupAutoCloseSeconds      = 10
	DefaultPollIntervalSeconds        = 3

	// MaxConfigSavesPerWeek limits how often the config may be changed.
	MaxConfigSavesPerWeek = 1
)

// DefaultWarningsNormal returns the warning offsets (minutes before the deadline)
// used on a night without an override.
func DefaultWarningsNormal() []int { return []int{60, 30, 5, 2} }

// DefaultWarningsAfterOverride returns the warning offsets used once an
// override has moved the deadline.
func DefaultWarningsAfterOverride() []int { return []int{30, 5, 2} }
