package models

import "time"

// WeeklySchemaVersion is the current on-disk version of WeeklyState.
const WeeklySchemaVersion = 1

// WeeklyState counts overrides granted in one Monday-aligned week.
type WeeklyState struct {
	SchemaVersion int    `json:"schemaVersion"`
	WeekStart     string `json:"weekStartLocalDate"` // Monday, YYYY-MM-DD
	OverrideCount int    `json:"overrideCount"`
}

func NewWeeklyState(weekStart string) WeeklyState {
	return WeeklyState{
		SchemaVersion: WeeklySchemaVersion,
		WeekStart:     weekStart,
	}
}

// QuotaOK reports whether another override fits in the week.
func (w *WeeklyState) QuotaOK(cfg *Config) bool {
	return !cfg.WeeklyOverrideLimitEnabled || w.OverrideCount < cfg.MaxOverridesPerWeek
}

// ConfigMetaSchemaVersion is the current on-disk version of ConfigMeta.
const ConfigMetaSchemaVersion = 1

// ConfigMeta tracks configuration saves for the weekly change guard.
type ConfigMeta struct {
	SchemaVersion  int        `json:"schemaVersion"`
	WeekStart      string     `json:"weekStartLocalDate"`
	SavesThisWeek  int        `json:"savesThisWeek"`
	LastConfigSave *time.Time `json:"lastConfigSaveAtLocal,omitempty"`
}

func NewConfigMeta(weekStart string) ConfigMeta {
	return ConfigMeta{
		SchemaVersion: ConfigMetaSchemaVersion,
		WeekStart:     weekStart,
	}
}
