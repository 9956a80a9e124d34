package models

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/julianstephens/lightsout/internal/constants"
)

// NightSchemaVersion is the current on-disk version of NightState.
const NightSchemaVersion = 2

// NightState is the single persisted record for the current night. A night is
// identified by the date of its base deadline.
type NightState struct {
	SchemaVersion int `json:"schemaVersion"`

	NightID           string    `json:"nightId"` // baseDeadline date, YYYY-MM-DD
	BaseDeadline      time.Time `json:"baseDeadlineLocal"`
	EffectiveDeadline time.Time `json:"effectiveDeadlineLocal"`

	OverrideUsed   bool       `json:"overrideUsed"`
	OverrideLocked bool       `json:"overrideLocked"`
	OverrideAt     *time.Time `json:"overrideAtLocal,omitempty"`
	OverrideReason *string    `json:"overrideReason,omitempty"`

	// Keyed by WarningKey(effectiveDeadline, minutesBefore)
	SentWarnings map[string]time.Time `json:"sentWarningsLocal"`
}

// NightIDFor returns the night key of a base deadline.
func NightIDFor(baseDeadline time.Time) string {
	return baseDeadline.Format(constants.DateFormat)
}

// NewNightState returns a fresh, un-overridden record for baseDeadline.
func NewNightState(baseDeadline time.Time) NightState {
	return NightState{
		SchemaVersion:     NightSchemaVersion,
		NightID:           NightIDFor(baseDeadline),
		BaseDeadline:      baseDeadline,
		EffectiveDeadline: baseDeadline,
		SentWarnings:      make(map[string]time.Time),
	}
}

// WarningKey builds the composite sent-warning key "<deadline>|<minutes>".
func WarningKey(deadline time.Time, minutesBefore int) string {
	return fmt.Sprintf("%s|%d", deadline.Format(constants.MinuteStampFormat), minutesBefore)
}

// IsInitialized reports whether the record names a night.
func (n *NightState) IsInitialized() bool {
	return strings.TrimSpace(n.NightID) != ""
}

// HasSentWarning reports whether the warning for (deadline, minutesBefore) was recorded.
func (n *NightState) HasSentWarning(deadline time.Time, minutesBefore int) bool {
	_, ok := n.SentWarnings[WarningKey(deadline, minutesBefore)]
	return ok
}

// RecordWarning marks a warning as sent. Recording an existing key keeps the
// first timestamp.
func (n *NightState) RecordWarning(deadline time.Time, minutesBefore int, at time.Time) {
	if n.SentWarnings == nil {
		n.SentWarnings = make(map[string]time.Time)
	}
	key := WarningKey(deadline, minutesBefore)
	if _, ok := n.SentWarnings[key]; ok {
		return
	}
	n.SentWarnings[key] = at
}

// IsOverridden reports whether the night has left the Fresh state.
func (n *NightState) IsOverridden() bool {
	return n.OverrideUsed || n.OverrideLocked
}

// ApplyOverride moves the night to the Overridden state. It is the only
// transition a night has and it cannot be undone.
func (n *NightState) ApplyOverride(extension time.Duration, at time.Time, reason string) error {
	if n.IsOverridden() {
		return fmt.Errorf("override already used for night %s", n.NightID)
	}
	if extension < 0 {
		return fmt.Errorf("override extension cannot be negative: %s", extension)
	}
	n.EffectiveDeadline = n.BaseDeadline.Add(extension)
	n.OverrideUsed = true
	n.OverrideLocked = true
	n.OverrideAt = &at
	n.OverrideReason = &reason
	return nil
}

// Rebase moves the night onto a new base deadline. The effective deadline is
// recomputed (keeping an override as a fact) and sent warnings are dropped,
// since their keys embed the old deadline.
func (n *NightState) Rebase(baseDeadline time.Time, extension time.Duration) {
	n.NightID = NightIDFor(baseDeadline)
	n.BaseDeadline = baseDeadline
	n.EffectiveDeadline = baseDeadline
	if n.OverrideUsed {
		n.EffectiveDeadline = baseDeadline.Add(extension)
	}
	n.SentWarnings = make(map[string]time.Time)
}

// Clone returns a deep copy.
func (n NightState) Clone() NightState {
	c := n
	c.SentWarnings = maps.Clone(n.SentWarnings)
	if c.SentWarnings == nil {
		c.SentWarnings = make(map[string]time.Time)
	}
	if n.OverrideAt != nil {
		at := *n.OverrideAt
		c.OverrideAt = &at
	}
	if n.OverrideReason != nil {
		r := *n.OverrideReason
		c.OverrideReason = &r
	}
	return c
}

// Validate checks the record's invariants.
func (n *NightState) Validate() error {
	if !n.IsInitialized() {
		return fmt.Errorf("night id is empty")
	}
	if n.EffectiveDeadline.Before(n.BaseDeadline) {
		return fmt.Errorf("effective deadline %s is before base deadline %s",
			n.EffectiveDeadline.Format(time.RFC3339), n.BaseDeadline.Format(time.RFC3339))
	}
	if n.OverrideUsed && !n.OverrideLocked {
		return fmt.Errorf("override used but not locked")
	}
	return nil
}
