package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/julianstephens/lightsout/internal/constants"
)

// ApplyDefaultConfig applies default values to missing settings.
// Booleans cannot be told apart from an explicit false and are left alone.
func ApplyDefaultConfig(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = constants.ConfigVersion
	}
	if cfg.DailyDeadline == "" {
		cfg.DailyDeadline = constants.DefaultDailyDeadline
	}
	if cfg.RestrictedStart == "" {
		cfg.RestrictedStart = constants.DefaultRestrictedStart
	}
	if cfg.RestrictedEnd == "" {
		cfg.RestrictedEnd = constants.DefaultRestrictedEnd
	}
	if cfg.WarningsNormalMinutesBefore == nil {
		cfg.WarningsNormalMinutesBefore = constants.DefaultWarningsNormal()
	}
	if cfg.WarningsAfterOverrideMinutesBefore == nil {
		cfg.WarningsAfterOverrideMinutesBefore = constants.DefaultWarningsAfterOverride()
	}
	if cfg.OverrideCommitmentPhrase == "" {
		cfg.OverrideCommitmentPhrase = constants.DefaultOverrideCommitmentPhrase
	}
	if cfg.PopupAutoCloseSeconds == 0 {
		cfg.PopupAutoCloseSeconds = constants.DefaultPopupAutoCloseSeconds
	}
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = constants.DefaultPollIntervalSeconds
	}
}

// SetConfigValue parses value and assigns it to the setting named key.
func SetConfigValue(cfg *Config, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case constants.SettingDailyDeadline:
		cfg.DailyDeadline = value
	case constants.SettingRestrictedStart:
		cfg.RestrictedStart = value
	case constants.SettingRestrictedEnd:
		cfg.RestrictedEnd = value
	case constants.SettingWarningsNormal:
		mins, err := parseMinuteList(value)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		cfg.WarningsNormalMinutesBefore = mins
	case constants.SettingWarningsAfterOverride:
		mins, err := parseMinuteList(value)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		cfg.WarningsAfterOverrideMinutesBefore = mins
	case constants.SettingOverrideEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		cfg.OverrideEnabled = b
	case constants.SettingWeeklyOverrideLimitEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		cfg.WeeklyOverrideLimitEnabled = b
	case constants.SettingOverrideCommitmentPhrase:
		cfg.OverrideCommitmentPhrase = value
	case constants.SettingMetricsAddr:
		cfg.MetricsAddr = value
	case constants.SettingOverrideExtensionMinutes:
		return setInt(&cfg.OverrideExtensionMinutes, key, value)
	case constants.SettingOverrideReasonMinLength:
		return setInt(&cfg.OverrideReasonMinLength, key, value)
	case constants.SettingMaxOverridesPerWeek:
		return setInt(&cfg.MaxOverridesPerWeek, key, value)
	case constants.SettingPopupAutoCloseSeconds:
		return setInt(&cfg.PopupAutoCloseSeconds, key, value)
	case constants.SettingPollIntervalSeconds:
		return setInt(&cfg.PollIntervalSeconds, key, value)
	default:
		return fmt.Errorf("unknown setting: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = n
	return nil
}

// parseMinuteList parses "60,30,5" into []int{60, 30, 5}.
func parseMinuteList(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid minute value %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
