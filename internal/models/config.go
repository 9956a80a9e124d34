package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/lightsout/internal/constants"
)

// Config is the user-editable policy consumed read-only by the agent and the
// override gate.
type Config struct {
	Version int `yaml:"version" json:"version"`

	DailyDeadline   string `yaml:"dailyDeadline" json:"dailyDeadline"`     // HH:MM, local
	RestrictedStart string `yaml:"restrictedStart" json:"restrictedStart"` // HH:MM, inclusive
	RestrictedEnd   string `yaml:"restrictedEnd" json:"restrictedEnd"`     // HH:MM, exclusive

	WarningsNormalMinutesBefore        []int `yaml:"warningsNormalMinutesBefore" json:"warningsNormalMinutesBefore"`
	WarningsAfterOverrideMinutesBefore []int `yaml:"warningsAfterOverrideMinutesBefore" json:"warningsAfterOverrideMinutesBefore"`

	OverrideEnabled          bool   `yaml:"overrideEnabled" json:"overrideEnabled"`
	OverrideExtensionMinutes int    `yaml:"overrideExtensionMinutes" json:"overrideExtensionMinutes"` // always added to the base deadline
	OverrideCommitmentPhrase string `yaml:"overrideCommitmentPhrase" json:"overrideCommitmentPhrase"`
	OverrideReasonMinLength  int    `yaml:"overrideReasonMinLength" json:"overrideReasonMinLength"`

	WeeklyOverrideLimitEnabled bool `yaml:"weeklyOverrideLimitEnabled" json:"weeklyOverrideLimitEnabled"`
	MaxOverridesPerWeek        int  `yaml:"maxOverridesPerWeek" json:"maxOverridesPerWeek"`

	PopupAutoCloseSeconds int    `yaml:"popupAutoCloseSeconds" json:"popupAutoCloseSeconds"`
	PollIntervalSeconds   int    `yaml:"pollIntervalSeconds" json:"pollIntervalSeconds"`
	MetricsAddr           string `yaml:"metricsAddr,omitempty" json:"metricsAddr,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Version:                            constants.ConfigVersion,
		DailyDeadline:                      constants.DefaultDailyDeadline,
		RestrictedStart:                    constants.DefaultRestrictedStart,
		RestrictedEnd:                      constants.DefaultRestrictedEnd,
		WarningsNormalMinutesBefore:        constants.DefaultWarningsNormal(),
		WarningsAfterOverrideMinutesBefore: constants.DefaultWarningsAfterOverride(),
		OverrideEnabled:                    constants.DefaultOverrideEnabled,
		OverrideExtensionMinutes:           constants.DefaultOverrideExtensionMinutes,
		OverrideCommitmentPhrase:           constants.DefaultOverrideCommitmentPhrase,
		OverrideReasonMinLength:            constants.DefaultOverrideReasonMinLength,
		WeeklyOverrideLimitEnabled:         constants.DefaultWeeklyOverrideLimitEnabled,
		MaxOverridesPerWeek:                constants.DefaultMaxOverridesPerWeek,
		PopupAutoCloseSeconds:              constants.DefaultPopupAutoCloseSeconds,
		PollIntervalSeconds:                constants.DefaultPollIntervalSeconds,
	}
}

// Validate reports the first field that cannot be used as-is.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		constants.SettingDailyDeadline:   c.DailyDeadline,
		constants.SettingRestrictedStart: c.RestrictedStart,
		constants.SettingRestrictedEnd:   c.RestrictedEnd,
	} {
		if _, err := time.Parse(constants.TimeFormat, v); err != nil {
			return fmt.Errorf("%s: invalid time %q (expected HH:MM)", name, v)
		}
	}
	for _, m := range c.WarningsNormalMinutesBefore {
		if m <= 0 {
			return fmt.Errorf("%s: minutes must be positive, got %d", constants.SettingWarningsNormal, m)
		}
	}
	for _, m := range c.WarningsAfterOverrideMinutesBefore {
		if m <= 0 {
			return fmt.Errorf("%s: minutes must be positive, got %d", constants.SettingWarningsAfterOverride, m)
		}
	}
	if c.OverrideExtensionMinutes < 0 {
		return fmt.Errorf("%s cannot be negative", constants.SettingOverrideExtensionMinutes)
	}
	if c.OverrideReasonMinLength < 0 {
		return fmt.Errorf("%s cannot be negative", constants.SettingOverrideReasonMinLength)
	}
	if c.MaxOverridesPerWeek < 0 {
		return fmt.Errorf("%s cannot be negative", constants.SettingMaxOverridesPerWeek)
	}
	if c.PollIntervalSeconds < 0 {
		return fmt.Errorf("%s cannot be negative", constants.SettingPollIntervalSeconds)
	}
	return nil
}

// PollInterval returns the agent's state poll period.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return constants.DefaultPollInterval
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// WarningMinutes picks the warning list for a night.
func (c *Config) WarningMinutes(overrideUsed bool) []int {
	if overrideUsed {
		return c.WarningsAfterOverrideMinutesBefore
	}
	return c.WarningsNormalMinutesBefore
}
