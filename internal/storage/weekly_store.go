package storage

import (
	"context"
	"time"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/models"
	"github.com/julianstephens/lightsout/internal/timepolicy"
)

// WeeklyStore persists the override count of the current week.
type WeeklyStore struct {
	rec *recordStore[models.WeeklyState]
}

func NewWeeklyStore(files *FileStore) *WeeklyStore {
	return &WeeklyStore{
		rec: newRecordStore[models.WeeklyState](files, constants.WeeklyFileName, weeklyChain, nil),
	}
}

func currentWeek(now time.Time) (func(models.WeeklyState) bool, func() models.WeeklyState) {
	weekStart := timepolicy.WeekStartKey(now)
	usable := func(w models.WeeklyState) bool { return w.WeekStart == weekStart }
	fresh := func() models.WeeklyState { return models.NewWeeklyState(weekStart) }
	return usable, fresh
}

// LoadOrCreateCurrentWeek returns this week's record, resetting a stale one.
func (s *WeeklyStore) LoadOrCreateCurrentWeek(ctx context.Context, now time.Time) (Snapshot[models.WeeklyState], error) {
	usable, fresh := currentWeek(now)
	return s.rec.loadOrCreate(ctx, usable, fresh)
}

// IncrementOverrideCount adds one granted override to this week.
func (s *WeeklyStore) IncrementOverrideCount(ctx context.Context, now time.Time) (models.WeeklyState, error) {
	usable, fresh := currentWeek(now)
	return s.rec.update(ctx, usable, fresh, func(w *models.WeeklyState) error {
		w.OverrideCount++
		return nil
	})
}

// ConfigMetaStore persists the configuration save counter.
type ConfigMetaStore struct {
	rec *recordStore[models.ConfigMeta]
}

func NewConfigMetaStore(files *FileStore) *ConfigMetaStore {
	return &ConfigMetaStore{
		rec: newRecordStore[models.ConfigMeta](files, constants.ConfigMetaFileName, configMetaChain, nil),
	}
}

func currentMetaWeek(now time.Time) (func(models.ConfigMeta) bool, func() models.ConfigMeta) {
	weekStart := timepolicy.WeekStartKey(now)
	usable := func(m models.ConfigMeta) bool { return m.WeekStart == weekStart }
	fresh := func() models.ConfigMeta { return models.NewConfigMeta(weekStart) }
	return usable, fresh
}

// LoadOrCreate returns this week's save counter.
func (s *ConfigMetaStore) LoadOrCreate(ctx context.Context, now time.Time) (Snapshot[models.ConfigMeta], error) {
	usable, fresh := currentMetaWeek(now)
	return s.rec.loadOrCreate(ctx, usable, fresh)
}

// Reserve claims one configuration save for this week. allow decides, against
// the current counter, whether the save may happen; its error is returned
// unchanged and nothing is written.
func (s *ConfigMetaStore) Reserve(ctx context.Context, now time.Time, allow func(models.ConfigMeta) error) (models.ConfigMeta, error) {
	usable, fresh := currentMetaWeek(now)
	return s.rec.update(ctx, usable, fresh, func(m *models.ConfigMeta) error {
		if err := allow(*m); err != nil {
			return err
		}
		m.SavesThisWeek++
		m.LastConfigSave = &now
		return nil
	})
}
